package ports

import (
	"context"
	"errors"

	"github.com/lampo-ln/lampo/internal/core/domain"
)

// ErrListenerClosed is returned by InvoiceListener.Receive once the
// listener reached its terminal state, whatever caused the transition.
var ErrListenerClosed = errors.New("invoice listener is closed")

// LightningClient is the unified node client contract. One implementation
// exists per backend; callers hold only this interface and never see
// backend wire shapes or raw error codes.
//
// Adapters are stateless between calls: every operation builds its result
// from scratch out of the transport response. Operations may run
// concurrently against the same client. Transport failures propagate
// unmapped except for OpenChannel and ConnectTo, whose known backend
// error codes become first-class result values.
type LightningClient interface {
	GetInfo(ctx context.Context) (*domain.NodeInfo, error)
	GetInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, error)
	CreateInvoice(ctx context.Context, req domain.CreateInvoiceRequest) (*domain.Invoice, error)
	CancelInvoice(ctx context.Context, invoiceID string) error
	GetPayment(ctx context.Context, paymentHash string) (*domain.Payment, error)
	Pay(ctx context.Context, req domain.PayRequest) (*domain.PayResponse, error)
	ListChannels(ctx context.Context) ([]domain.Channel, error)
	OpenChannel(ctx context.Context, req domain.OpenChannelRequest) (*domain.OpenChannelResponse, error)
	ConnectTo(ctx context.Context, node domain.NodeURI) (domain.ConnectionResult, error)
	GetDepositAddress(ctx context.Context) (string, error)

	// Listen opens a dedicated push connection to the backend and returns
	// an already-running listener surfacing settled invoices. The listener
	// owns its connection; closing it never affects the client.
	Listen(ctx context.Context) (InvoiceListener, error)
}

// InvoiceListener delivers invoice settlement events in backend send
// order. It does not reconnect: once closed, by Close, by cancellation or
// by the remote side, it stays closed and a new Listen call is needed.
type InvoiceListener interface {
	// Receive blocks until the next settled invoice arrives, the given
	// context is cancelled, or the listener closes. It never returns a
	// partial result: the error is nil iff the invoice is not. A
	// settlement event that cannot be resolved to a full invoice after
	// bounded retries is dropped with a warning, not delivered partially.
	Receive(ctx context.Context) (*domain.Invoice, error)

	// Close tears down the push connection. Idempotent.
	Close() error
}
