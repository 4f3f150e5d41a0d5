package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lampo-ln/lampo/internal/core/domain"
)

const (
	pubkeyA = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	pubkeyB = "02c6047f9441ed7d6d3045406e95c07cd85c778e4b8cef3ca7abac09b95c709ee5"
)

func TestParseNodeURI(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		uri, err := domain.ParseNodeURI(pubkeyA + "@127.0.0.1:9735")
		require.NoError(t, err)
		require.Equal(t, "127.0.0.1:9735", uri.Host)
		require.Equal(t, pubkeyA+"@127.0.0.1:9735", uri.String())
	})

	t.Run("invalid", func(t *testing.T) {
		fixtures := []string{
			"",
			"garbage",
			pubkeyA,
			pubkeyA + "@",
			"notahexkey@127.0.0.1:9735",
			"abcdef@127.0.0.1:9735",
		}
		for _, fixture := range fixtures {
			_, err := domain.ParseNodeURI(fixture)
			require.Error(t, err, "uri %q", fixture)
		}
	})
}

func TestNewNodeInfo(t *testing.T) {
	uris := []string{
		pubkeyA + "@127.0.0.1:9735",
		"garbage",
		pubkeyB + "@ln.example.com:9735",
	}

	info := domain.NewNodeInfo(815000, uris)
	require.Equal(t, uint32(815000), info.BlockHeight)

	// malformed entries are dropped, order of the rest is preserved
	require.Len(t, info.URIs, 2)
	require.Equal(t, "127.0.0.1:9735", info.URIs[0].Host)
	require.Equal(t, "ln.example.com:9735", info.URIs[1].Host)
}
