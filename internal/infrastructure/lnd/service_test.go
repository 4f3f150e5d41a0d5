package lnd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/lampo-ln/lampo/internal/core/domain"
)

func TestOpenChannelResultFromError(t *testing.T) {
	tests := []struct {
		msg    string
		result domain.OpenChannelResult
		mapped bool
	}{
		{"channel already exists", domain.OpenChannelAlreadyExists, true},
		{"already have a pending channel with pubkey 02ab", domain.OpenChannelAlreadyExists, true},
		{"not enough witness outputs to create funding transaction", domain.OpenChannelCannotAffordFunding, true},
		{"insufficient funds available to construct transaction", domain.OpenChannelCannotAffordFunding, true},
		{"cannot fund channel with unconfirmed outputs", domain.OpenChannelNeedMoreConfirmations, true},
		{"peer is not connected", domain.OpenChannelPeerNotConnected, true},
		{"not connected to peer 02ab", domain.OpenChannelPeerNotConnected, true},
		{"something else entirely", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			result, ok := openChannelResultFromError(errors.New(tt.msg))
			require.Equal(t, tt.mapped, ok)
			if tt.mapped {
				require.Equal(t, tt.result, result)
			}
		})
	}
}

func TestConnectResultFromError(t *testing.T) {
	t.Run("dial failures map to could-not-connect", func(t *testing.T) {
		for _, msg := range []string{
			"dial tcp 127.0.0.1:9735: connect: connection refused",
			"read tcp 127.0.0.1:9735: i/o timeout",
			"dial tcp 10.0.0.1:9735: connect: no route to host",
			"dial tcp [::1]:9735: connect: network is unreachable",
			"unable to connect to peer",
		} {
			result, ok := connectResultFromError(errors.New(msg))
			require.True(t, ok, "message %q", msg)
			require.Equal(t, domain.ConnectionCouldNotConnect, result)
		}
	})

	// cancellation must never turn into a result value
	t.Run("cancellation stays an error", func(t *testing.T) {
		for _, err := range []error{
			context.Canceled,
			context.DeadlineExceeded,
			status.Error(codes.Canceled, "context canceled"),
			status.Error(codes.DeadlineExceeded, "deadline exceeded"),
		} {
			_, ok := connectResultFromError(err)
			require.False(t, ok, "error %v", err)
		}
	})

	t.Run("unreachable node backend stays an error", func(t *testing.T) {
		_, ok := connectResultFromError(
			status.Error(codes.Unavailable, "connection error: dial tcp: connection refused"),
		)
		require.False(t, ok)
	})

	t.Run("unrecognized messages stay errors", func(t *testing.T) {
		_, ok := connectResultFromError(errors.New("pubkey mismatch"))
		require.False(t, ok)
	})
}

func TestInvoiceFromRPC(t *testing.T) {
	rhash := []byte{0x01, 0x02, 0x03}
	now := time.Now().Unix()

	t.Run("settled", func(t *testing.T) {
		invoice := invoiceFromRPC(&lnrpc.Invoice{
			RHash:          rhash,
			CreationDate:   now,
			Expiry:         3600,
			SettleDate:     now + 10,
			State:          lnrpc.Invoice_SETTLED,
			ValueMsat:      21000,
			AmtPaidMsat:    21000,
			PaymentRequest: "lnbcrt1...",
		})
		require.Equal(t, "010203", invoice.ID)
		require.Equal(t, domain.InvoicePaid, invoice.Status)
		require.NotNil(t, invoice.PaidAt)
		require.Equal(t, time.Unix(now+10, 0), *invoice.PaidAt)
		require.NotNil(t, invoice.Amount)
		require.Equal(t, lnwire.MilliSatoshi(21000), *invoice.Amount)
		require.NotNil(t, invoice.AmountReceived)
		require.Equal(t, lnwire.MilliSatoshi(21000), *invoice.AmountReceived)
	})

	t.Run("canceled", func(t *testing.T) {
		invoice := invoiceFromRPC(&lnrpc.Invoice{
			RHash:        rhash,
			CreationDate: now,
			Expiry:       3600,
			State:        lnrpc.Invoice_CANCELED,
		})
		require.Equal(t, domain.InvoiceCancelled, invoice.Status)
		require.Nil(t, invoice.PaidAt)
	})

	t.Run("open", func(t *testing.T) {
		invoice := invoiceFromRPC(&lnrpc.Invoice{
			RHash:        rhash,
			CreationDate: now,
			Expiry:       3600,
			State:        lnrpc.Invoice_OPEN,
		})
		require.Equal(t, domain.InvoiceUnpaid, invoice.Status)
	})

	t.Run("open past expiry", func(t *testing.T) {
		invoice := invoiceFromRPC(&lnrpc.Invoice{
			RHash:        rhash,
			CreationDate: now - 7200,
			Expiry:       3600,
			State:        lnrpc.Invoice_OPEN,
		})
		require.Equal(t, domain.InvoiceExpired, invoice.Status)
	})

	t.Run("zero amount invoice has nil amount", func(t *testing.T) {
		invoice := invoiceFromRPC(&lnrpc.Invoice{
			RHash:        rhash,
			CreationDate: now,
			Expiry:       3600,
			State:        lnrpc.Invoice_OPEN,
		})
		require.Nil(t, invoice.Amount)
		require.Nil(t, invoice.AmountReceived)
	})
}

func TestPaymentFromRPC(t *testing.T) {
	in := &lnrpc.Payment{
		PaymentHash:     "ab01",
		PaymentPreimage: "cd02",
		ValueMsat:       5000,
		FeeMsat:         100,
		CreationDate:    time.Now().Unix(),
		Status:          lnrpc.Payment_SUCCEEDED,
	}

	payment := paymentFromRPC(in)
	require.Equal(t, domain.PaymentComplete, payment.Status)
	require.Equal(t, "ab01", payment.PaymentHash)
	require.Equal(t, lnwire.MilliSatoshi(5000), *payment.TotalAmount)
	require.Equal(t, lnwire.MilliSatoshi(100), *payment.Fee)
	require.Equal(t, lnwire.MilliSatoshi(4900), *payment.Amount())

	in.Status = lnrpc.Payment_FAILED
	require.Equal(t, domain.PaymentFailed, paymentFromRPC(in).Status)

	in.Status = lnrpc.Payment_IN_FLIGHT
	require.Equal(t, domain.PaymentPending, paymentFromRPC(in).Status)
}
