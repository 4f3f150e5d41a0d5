package lnd

import (
	"context"
	"fmt"

	"github.com/lightningnetwork/lnd/lnrpc"
	log "github.com/sirupsen/logrus"

	"github.com/lampo-ln/lampo/internal/core/domain"
	"github.com/lampo-ln/lampo/internal/core/ports"
)

// invoiceListener surfaces settled invoices from an exclusive
// SubscribeInvoices stream. The stream is tied to its own derived
// context, so cancelling the Listen context or calling Close tears it
// down without touching the shared client connection.
type invoiceListener struct {
	invoices chan *domain.Invoice
	cancel   context.CancelFunc
}

func newInvoiceListener(ctx context.Context, svc *service) (*invoiceListener, error) {
	runCtx, cancel := context.WithCancel(svc.getCtx(ctx))
	stream, err := svc.client.SubscribeInvoices(runCtx, &lnrpc.InvoiceSubscription{})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("establish invoice subscription: %w", err)
	}

	listener := &invoiceListener{
		invoices: make(chan *domain.Invoice),
		cancel:   cancel,
	}
	go listener.run(runCtx, stream)

	return listener, nil
}

func (l *invoiceListener) run(ctx context.Context, stream lnrpc.Lightning_SubscribeInvoicesClient) {
	defer close(l.invoices)
	defer l.cancel()

	for {
		invoice, err := stream.Recv()
		if err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Debug("invoice subscription closed")
			}
			return
		}

		if invoice.State != lnrpc.Invoice_SETTLED {
			continue
		}

		select {
		case l.invoices <- invoiceFromRPC(invoice):
		case <-ctx.Done():
			return
		}
	}
}

func (l *invoiceListener) Receive(ctx context.Context) (*domain.Invoice, error) {
	select {
	case invoice, ok := <-l.invoices:
		if !ok {
			return nil, ports.ErrListenerClosed
		}
		return invoice, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *invoiceListener) Close() error {
	l.cancel()
	return nil
}
