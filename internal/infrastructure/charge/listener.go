package charge

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/lampo-ln/lampo/internal/core/domain"
	"github.com/lampo-ln/lampo/internal/core/ports"
	"github.com/lampo-ln/lampo/pkg/charge"
)

const (
	wsHandshakeTimeout = 5 * time.Second

	resolveAttempts   = 3
	resolveRetryDelay = 500 * time.Millisecond
)

// invoiceListener owns one exclusive push connection. It is started by
// Listen and runs until the first terminal event: Close, cancellation of
// the Listen context, or the remote side dropping the connection. There
// is no reconnect; a fresh Listen call is the way back.
type invoiceListener struct {
	svc      *service
	ws       *charge.Websocket
	invoices chan *domain.Invoice
	cancel   context.CancelFunc
}

func newInvoiceListener(ctx context.Context, svc *service) (*invoiceListener, error) {
	ws := svc.client.NewWebsocket()
	if err := ws.ConnectAndSubscribe(ctx, wsHandshakeTimeout); err != nil {
		return nil, fmt.Errorf("establish push connection: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	listener := &invoiceListener{
		svc:      svc,
		ws:       ws,
		invoices: make(chan *domain.Invoice),
		cancel:   cancel,
	}

	// The websocket read loop cannot be interrupted by a context, so
	// cancellation tears the connection down instead.
	go func() {
		<-runCtx.Done()
		if err := ws.Close(); err != nil {
			log.WithError(err).Debug("failed to close push connection")
		}
	}()
	go listener.run(runCtx)

	return listener, nil
}

func (l *invoiceListener) run(ctx context.Context) {
	defer close(l.invoices)
	defer l.cancel()

	for {
		select {
		case update, ok := <-l.ws.Updates:
			if !ok {
				log.Debug("push connection closed")
				return
			}

			// The frame only references the invoice; resolve the full
			// entity before handing it to the consumer.
			invoice, err := l.resolveInvoice(ctx, update.InvoiceID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.WithError(err).Warnf("dropping settlement event for invoice %s, resolution failed %d times", update.InvoiceID, resolveAttempts)
				continue
			}

			select {
			case l.invoices <- invoice:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// resolveInvoice fetches the invoice a settlement frame refers to,
// retrying transient failures a bounded number of times before the
// event is given up on.
func (l *invoiceListener) resolveInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	var err error
	for attempt := 0; attempt < resolveAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(resolveRetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		var invoice *domain.Invoice
		if invoice, err = l.svc.GetInvoice(ctx, invoiceID); err == nil {
			return invoice, nil
		}
	}
	return nil, err
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
	return l.ws.Close()
}
