package domain

import (
	"time"

	"github.com/lightningnetwork/lnd/lnwire"
)

type InvoiceStatus int

const (
	InvoiceUnpaid InvoiceStatus = iota
	InvoicePaid
	InvoiceExpired
	InvoiceCancelled
)

func (s InvoiceStatus) String() string {
	switch s {
	case InvoiceUnpaid:
		return "unpaid"
	case InvoicePaid:
		return "paid"
	case InvoiceExpired:
		return "expired"
	case InvoiceCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

type Invoice struct {
	ID             string
	Amount         *lnwire.MilliSatoshi
	CreatedAt      time.Time
	PaidAt         *time.Time
	ExpiresAt      time.Time
	PaymentRequest string
	Status         InvoiceStatus
	AmountReceived *lnwire.MilliSatoshi
}

type CreateInvoiceRequest struct {
	Amount      lnwire.MilliSatoshi
	Description string
	Expiry      time.Duration
}
