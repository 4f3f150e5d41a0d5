package charge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lampo-ln/lampo/internal/core/domain"
	"github.com/lampo-ln/lampo/pkg/charge"
)

func TestMapOpenChannelCode(t *testing.T) {
	known := map[string]domain.OpenChannelResult{
		"channel-already-exists":  domain.OpenChannelAlreadyExists,
		"cannot-afford-funding":   domain.OpenChannelCannotAffordFunding,
		"need-more-confirmations": domain.OpenChannelNeedMoreConfirmations,
		"peer-not-connected":      domain.OpenChannelPeerNotConnected,
	}

	for code, want := range known {
		got, err := mapOpenChannelCode(code)
		require.NoError(t, err, "code %q", code)
		require.Equal(t, want, got, "code %q", code)
	}

	for _, code := range []string{"", "ok", "unexpected-new-code", "could-not-connect"} {
		_, err := mapOpenChannelCode(code)
		require.ErrorIs(t, err, ErrUnsupportedErrorCode, "code %q", code)
	}
}

func TestMapConnectCode(t *testing.T) {
	got, err := mapConnectCode("could-not-connect")
	require.NoError(t, err)
	require.Equal(t, domain.ConnectionCouldNotConnect, got)

	for _, code := range []string{"", "ok", "peer-not-connected", "unexpected-new-code"} {
		_, err := mapConnectCode(code)
		require.ErrorIs(t, err, ErrUnsupportedErrorCode, "code %q", code)
	}
}

func TestApiErrorCode(t *testing.T) {
	code, ok := apiErrorCode(&charge.APIError{Code: "peer-not-connected", Message: "no peer"})
	require.True(t, ok)
	require.Equal(t, "peer-not-connected", code)

	_, ok = apiErrorCode(&charge.HTTPError{StatusCode: 500})
	require.False(t, ok)
}
