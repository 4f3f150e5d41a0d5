package domain

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

type Channel struct {
	IsPublic     bool
	IsActive     bool
	RemoteNode   *btcec.PublicKey
	LocalBalance btcutil.Amount
	Capacity     btcutil.Amount
	ChannelPoint wire.OutPoint
}

// NewChannel parses the remote pubkey and channel point eagerly. Unlike
// node URIs, a malformed field here is fatal: a channel we cannot fully
// identify must not be silently skipped.
func NewChannel(
	isPublic, isActive bool, remotePubkey, channelPoint string,
	localBalance, capacity btcutil.Amount,
) (Channel, error) {
	raw, err := hex.DecodeString(remotePubkey)
	if err != nil {
		return Channel{}, fmt.Errorf("invalid remote pubkey %q: %v", remotePubkey, err)
	}
	pubkey, err := btcec.ParsePubKey(raw)
	if err != nil {
		return Channel{}, fmt.Errorf("invalid remote pubkey %q: %v", remotePubkey, err)
	}

	outpoint, err := wire.NewOutPointFromString(channelPoint)
	if err != nil {
		return Channel{}, fmt.Errorf("invalid channel point %q: %v", channelPoint, err)
	}

	return Channel{
		IsPublic:     isPublic,
		IsActive:     isActive,
		RemoteNode:   pubkey,
		LocalBalance: localBalance,
		Capacity:     capacity,
		ChannelPoint: *outpoint,
	}, nil
}
