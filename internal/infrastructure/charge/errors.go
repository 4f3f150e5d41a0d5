package charge

import (
	"errors"
	"fmt"

	"github.com/lampo-ln/lampo/internal/core/domain"
	"github.com/lampo-ln/lampo/pkg/charge"
)

// ErrUnsupportedErrorCode flags a backend error code outside the known
// set for a mapped operation. It signals a contract mismatch between
// this client and the backend and is never coerced into a result value.
var ErrUnsupportedErrorCode = errors.New("unsupported backend error code")

const (
	codeChannelAlreadyExists  = "channel-already-exists"
	codeCannotAffordFunding   = "cannot-afford-funding"
	codeNeedMoreConfirmations = "need-more-confirmations"
	codePeerNotConnected      = "peer-not-connected"
	codeCouldNotConnect       = "could-not-connect"
)

func mapOpenChannelCode(code string) (domain.OpenChannelResult, error) {
	switch code {
	case codeChannelAlreadyExists:
		return domain.OpenChannelAlreadyExists, nil
	case codeCannotAffordFunding:
		return domain.OpenChannelCannotAffordFunding, nil
	case codeNeedMoreConfirmations:
		return domain.OpenChannelNeedMoreConfirmations, nil
	case codePeerNotConnected:
		return domain.OpenChannelPeerNotConnected, nil
	default:
		return 0, fmt.Errorf("%w: %q for open-channel", ErrUnsupportedErrorCode, code)
	}
}

func mapConnectCode(code string) (domain.ConnectionResult, error) {
	switch code {
	case codeCouldNotConnect:
		return domain.ConnectionCouldNotConnect, nil
	default:
		return 0, fmt.Errorf("%w: %q for connect-to-peer", ErrUnsupportedErrorCode, code)
	}
}

// apiErrorCode extracts the machine-readable code from a transport
// failure. Failures without a code (network errors, malformed bodies)
// are not mappable and must propagate as-is.
func apiErrorCode(err error) (string, bool) {
	var apiErr *charge.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	return "", false
}
