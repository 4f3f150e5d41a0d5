package domain

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
)

// NodeURI is a parsed peer connection string of the form pubkey@host:port.
type NodeURI struct {
	PubKey *btcec.PublicKey
	Host   string
}

func ParseNodeURI(uri string) (NodeURI, error) {
	parts := strings.SplitN(uri, "@", 2)
	if len(parts) != 2 || parts[1] == "" {
		return NodeURI{}, fmt.Errorf("invalid node URI %q: expected pubkey@host", uri)
	}

	raw, err := hex.DecodeString(parts[0])
	if err != nil {
		return NodeURI{}, fmt.Errorf("invalid node pubkey in URI %q: %v", uri, err)
	}
	pubkey, err := btcec.ParsePubKey(raw)
	if err != nil {
		return NodeURI{}, fmt.Errorf("invalid node pubkey in URI %q: %v", uri, err)
	}

	return NodeURI{PubKey: pubkey, Host: parts[1]}, nil
}

func (u NodeURI) String() string {
	return fmt.Sprintf("%s@%s", hex.EncodeToString(u.PubKey.SerializeCompressed()), u.Host)
}

type NodeInfo struct {
	BlockHeight uint32
	URIs        []NodeURI
}

// NewNodeInfo parses the given peer URIs, dropping the malformed ones.
// A bad URI never fails the whole node info.
func NewNodeInfo(blockHeight uint32, uris []string) NodeInfo {
	info := NodeInfo{BlockHeight: blockHeight}
	for _, uri := range uris {
		parsed, err := ParseNodeURI(uri)
		if err != nil {
			continue
		}
		info.URIs = append(info.URIs, parsed)
	}
	return info
}
