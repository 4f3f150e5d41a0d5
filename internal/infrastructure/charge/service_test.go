package charge

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/stretchr/testify/require"

	"github.com/lampo-ln/lampo/internal/core/domain"
	"github.com/lampo-ln/lampo/internal/test/mockcharge"
	"github.com/lampo-ln/lampo/pkg/charge"
)

const (
	testToken = "test-token"
	pubkeyA   = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

	// BOLT11 test vector, 2500uBTC
	testPaymentRequest = "lnbc2500u1pvjluezpp5qqqsyqcyq5rqwzqfqqqsyqcyq5rqwzqfqqqsyqcyq5rqwzqfqypqdq5xysxxatsyp3k7enxv4jsxqzpuaztrnwngzn3kdzw5hydlzf03qdgm2hdq27cqv3agm2awhz5se903vruatfhq77w3ls4evs3ch9zw97j25emudupq63nyw24cg27h2rspfj9srp"
)

var testURIs = []string{
	pubkeyA + "@127.0.0.1:9735",
	"garbage",
	"02c6047f9441ed7d6d3045406e95c07cd85c778e4b8cef3ca7abac09b95c709ee5@ln.example.com:9735",
}

func newTestService(t *testing.T) (*service, *mockcharge.Server) {
	t.Helper()

	srv := mockcharge.New(mockcharge.Config{
		ListenAddr:  "127.0.0.1:0",
		Token:       testToken,
		BlockHeight: 815000,
		URIs:        testURIs,
	})
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })

	svc := NewService(&charge.Client{
		URL:   srv.URL(),
		WSURL: srv.WSURL(),
		Token: testToken,
	})
	return svc.(*service), srv
}

func TestGetInfo(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	info, err := svc.GetInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(815000), info.BlockHeight)

	// the garbage URI is dropped, the rest keep their order
	require.Len(t, info.URIs, 2)
	require.Equal(t, "127.0.0.1:9735", info.URIs[0].Host)
	require.Equal(t, "ln.example.com:9735", info.URIs[1].Host)

	again, err := svc.GetInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, info, again)
}

func TestInvoiceLifecycle(t *testing.T) {
	svc, srv := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, domain.CreateInvoiceRequest{
		Amount:      lnwire.MilliSatoshi(21000000),
		Description: "a note",
		Expiry:      time.Hour,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.NotEmpty(t, created.PaymentRequest)
	require.Equal(t, domain.InvoiceUnpaid, created.Status)
	require.NotNil(t, created.Amount)
	require.Equal(t, lnwire.MilliSatoshi(21000000), *created.Amount)
	require.Nil(t, created.PaidAt)

	fetched, err := svc.GetInvoice(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, fetched)

	require.NoError(t, srv.SettleInvoice(created.ID))
	paid, err := svc.GetInvoice(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InvoicePaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	require.NotNil(t, paid.AmountReceived)
	require.Equal(t, lnwire.MilliSatoshi(21000000), *paid.AmountReceived)

	_, err = svc.GetInvoice(ctx, "missing")
	require.Error(t, err)
}

func TestCancelInvoice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, domain.CreateInvoiceRequest{
		Amount: lnwire.MilliSatoshi(1000),
	})
	require.NoError(t, err)

	require.NoError(t, svc.CancelInvoice(ctx, created.ID))

	cancelled, err := svc.GetInvoice(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InvoiceCancelled, cancelled.Status)
}

func TestPay(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Pay(ctx, domain.PayRequest{PaymentRequest: testPaymentRequest})
	require.NoError(t, err)
	require.Equal(t, domain.PaymentComplete, resp.Status)
	require.NotEmpty(t, resp.Preimage)
	require.NotEmpty(t, resp.PaymentHash)

	payment, err := svc.GetPayment(ctx, resp.PaymentHash)
	require.NoError(t, err)
	require.Equal(t, domain.PaymentComplete, payment.Status)
	require.Equal(t, resp.Preimage, payment.Preimage)

	// net amount is derived from total and fee
	require.NotNil(t, payment.Amount())
	require.Equal(t, *payment.TotalAmount-*payment.Fee, *payment.Amount())

	_, err = svc.GetPayment(ctx, strings.Repeat("00", 32))
	require.Error(t, err)
}

func TestPayRejectsMalformedPaymentRequest(t *testing.T) {
	svc, srv := newTestService(t)

	// shut the backend down: the request must be rejected locally
	require.NoError(t, srv.Stop())

	_, err := svc.Pay(context.Background(), domain.PayRequest{PaymentRequest: "not-an-invoice"})
	require.ErrorContains(t, err, "invalid payment request")
}

func TestListChannels(t *testing.T) {
	svc, srv := newTestService(t)
	ctx := context.Background()

	goodChannel := charge.Channel{
		Public:          true,
		Active:          true,
		RemotePubkey:    pubkeyA,
		LocalBalanceSat: 500000,
		CapacitySat:     1000000,
		ChannelPoint:    strings.Repeat("ab", 32) + ":0",
	}

	t.Run("ok", func(t *testing.T) {
		srv.SetChannels([]charge.Channel{goodChannel})

		channels, err := svc.ListChannels(ctx)
		require.NoError(t, err)
		require.Len(t, channels, 1)
		require.True(t, channels[0].IsPublic)
		require.Equal(t, uint32(0), channels[0].ChannelPoint.Index)
	})

	t.Run("unparsable channel point is fatal", func(t *testing.T) {
		bad := goodChannel
		bad.ChannelPoint = "not-an-outpoint"
		srv.SetChannels([]charge.Channel{goodChannel, bad})

		_, err := svc.ListChannels(ctx)
		require.ErrorContains(t, err, "invalid channel point")
	})

	t.Run("unparsable remote key is fatal", func(t *testing.T) {
		bad := goodChannel
		bad.RemotePubkey = "nothex"
		srv.SetChannels([]charge.Channel{bad})

		_, err := svc.ListChannels(ctx)
		require.ErrorContains(t, err, "invalid remote pubkey")
	})
}

func TestOpenChannel(t *testing.T) {
	svc, srv := newTestService(t)
	ctx := context.Background()

	node, err := domain.ParseNodeURI(pubkeyA + "@127.0.0.1:9735")
	require.NoError(t, err)
	req := domain.OpenChannelRequest{Node: node, ChannelAmount: 1000000, FeeRate: 2}

	t.Run("ok", func(t *testing.T) {
		resp, err := svc.OpenChannel(ctx, req)
		require.NoError(t, err)
		require.Equal(t, domain.OpenChannelOk, resp.Result)
	})

	t.Run("known code becomes a result", func(t *testing.T) {
		srv.SetOpenChannelCode("peer-not-connected")
		defer srv.SetOpenChannelCode("")

		resp, err := svc.OpenChannel(ctx, req)
		require.NoError(t, err)
		require.Equal(t, domain.OpenChannelPeerNotConnected, resp.Result)
	})

	t.Run("unknown code escalates", func(t *testing.T) {
		srv.SetOpenChannelCode("unexpected-new-code")
		defer srv.SetOpenChannelCode("")

		_, err := svc.OpenChannel(ctx, req)
		require.ErrorIs(t, err, ErrUnsupportedErrorCode)
	})
}

func TestConnectTo(t *testing.T) {
	svc, srv := newTestService(t)
	ctx := context.Background()

	node, err := domain.ParseNodeURI(pubkeyA + "@127.0.0.1:9735")
	require.NoError(t, err)

	t.Run("ok", func(t *testing.T) {
		result, err := svc.ConnectTo(ctx, node)
		require.NoError(t, err)
		require.Equal(t, domain.ConnectionOk, result)
	})

	t.Run("known code becomes a result", func(t *testing.T) {
		srv.SetConnectCode("could-not-connect")
		defer srv.SetConnectCode("")

		result, err := svc.ConnectTo(ctx, node)
		require.NoError(t, err)
		require.Equal(t, domain.ConnectionCouldNotConnect, result)
	})

	t.Run("unknown code escalates", func(t *testing.T) {
		srv.SetConnectCode("unexpected-new-code")
		defer srv.SetConnectCode("")

		_, err := svc.ConnectTo(ctx, node)
		require.ErrorIs(t, err, ErrUnsupportedErrorCode)
	})
}

func TestGetDepositAddress(t *testing.T) {
	svc, _ := newTestService(t)

	address, err := svc.GetDepositAddress(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, address)
}

func TestUnauthorized(t *testing.T) {
	_, srv := newTestService(t)

	svc := NewService(&charge.Client{URL: srv.URL(), WSURL: srv.WSURL(), Token: "wrong"})
	_, err := svc.GetInfo(context.Background())
	require.Error(t, err)
}
