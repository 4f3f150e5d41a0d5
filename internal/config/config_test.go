package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveBackendOpts(t *testing.T) {
	t.Run("no backend configured", func(t *testing.T) {
		opts, err := deriveBackendOpts("", "", "", "")
		require.NoError(t, err)
		require.Nil(t, opts)
	})

	t.Run("charge backend", func(t *testing.T) {
		opts, err := deriveBackendOpts("http://charge:9112/", "", "token", "")
		require.NoError(t, err)
		require.NotNil(t, opts)
		require.Equal(t, ChargeBackend, opts.Type)
		require.Equal(t, "http://charge:9112", opts.ChargeURL)
		require.Equal(t, "ws://charge:9112", opts.ChargeWSURL)
		require.Equal(t, "token", opts.ChargeToken)
	})

	t.Run("charge backend over https", func(t *testing.T) {
		opts, err := deriveBackendOpts("https://charge.example.com", "", "token", "")
		require.NoError(t, err)
		require.Equal(t, "wss://charge.example.com", opts.ChargeWSURL)
	})

	t.Run("explicit ws url wins", func(t *testing.T) {
		opts, err := deriveBackendOpts(
			"http://charge:9112", "ws://push.example.com:9113", "token", "",
		)
		require.NoError(t, err)
		require.Equal(t, "ws://push.example.com:9113", opts.ChargeWSURL)
	})

	t.Run("charge without token", func(t *testing.T) {
		_, err := deriveBackendOpts("http://charge:9112", "", "", "")
		require.ErrorContains(t, err, "without access token")
	})

	t.Run("invalid charge url", func(t *testing.T) {
		_, err := deriveBackendOpts("not a url", "", "token", "")
		require.ErrorContains(t, err, "invalid charge URL")
	})

	t.Run("invalid charge scheme", func(t *testing.T) {
		_, err := deriveBackendOpts("ftp://charge:9112", "", "token", "")
		require.ErrorContains(t, err, "invalid charge URL scheme")
	})

	t.Run("lnd backend", func(t *testing.T) {
		opts, err := deriveBackendOpts("", "", "", "lnd:10009")
		require.NoError(t, err)
		require.Equal(t, LndBackend, opts.Type)
		require.Equal(t, "lnd:10009", opts.LndHost)
	})

	t.Run("both backends rejected", func(t *testing.T) {
		_, err := deriveBackendOpts("http://charge:9112", "", "token", "lnd:10009")
		require.ErrorContains(t, err, "cannot set both")
	})
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, uint32(4), cfg.LogLevel)
	require.Nil(t, cfg.GetBackendOpts())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LAMPO_CHARGE_URL", "http://localhost:9112")
	t.Setenv("LAMPO_CHARGE_TOKEN", "secret")
	t.Setenv("LAMPO_LOG_LEVEL", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, uint32(5), cfg.LogLevel)

	opts := cfg.GetBackendOpts()
	require.NotNil(t, opts)
	require.Equal(t, ChargeBackend, opts.Type)
	require.Equal(t, "http://localhost:9112", opts.ChargeURL)
	require.Equal(t, "ws://localhost:9112", opts.ChargeWSURL)
	require.Equal(t, "secret", opts.ChargeToken)
}
