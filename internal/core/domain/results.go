package domain

import "github.com/btcsuite/btcd/btcutil"

// OpenChannelResult is the closed set of outcomes of an open-channel
// attempt. Backend error codes outside this set are a contract violation
// and surface as errors, never as one of these values.
type OpenChannelResult int

const (
	OpenChannelOk OpenChannelResult = iota
	OpenChannelAlreadyExists
	OpenChannelCannotAffordFunding
	OpenChannelNeedMoreConfirmations
	OpenChannelPeerNotConnected
)

func (r OpenChannelResult) String() string {
	switch r {
	case OpenChannelOk:
		return "ok"
	case OpenChannelAlreadyExists:
		return "already-exists"
	case OpenChannelCannotAffordFunding:
		return "cannot-afford-funding"
	case OpenChannelNeedMoreConfirmations:
		return "need-more-confirmations"
	case OpenChannelPeerNotConnected:
		return "peer-not-connected"
	default:
		return "unknown"
	}
}

type ConnectionResult int

const (
	ConnectionOk ConnectionResult = iota
	ConnectionCouldNotConnect
)

func (r ConnectionResult) String() string {
	switch r {
	case ConnectionOk:
		return "ok"
	case ConnectionCouldNotConnect:
		return "could-not-connect"
	default:
		return "unknown"
	}
}

type OpenChannelRequest struct {
	Node          NodeURI
	ChannelAmount btcutil.Amount
	FeeRate       uint64 // sat/vB
}

type OpenChannelResponse struct {
	Result OpenChannelResult
}
