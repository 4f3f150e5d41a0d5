package domain

import (
	"time"

	"github.com/lightningnetwork/lnd/lnwire"
)

type PaymentStatus int

const (
	PaymentPending PaymentStatus = iota
	PaymentComplete
	PaymentFailed
)

func (s PaymentStatus) String() string {
	switch s {
	case PaymentPending:
		return "pending"
	case PaymentComplete:
		return "complete"
	case PaymentFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type Payment struct {
	ID             string
	TotalAmount    *lnwire.MilliSatoshi
	Fee            *lnwire.MilliSatoshi
	AmountSent     *lnwire.MilliSatoshi
	CreatedAt      time.Time
	PaymentRequest string
	Preimage       string
	PaymentHash    string
	Status         PaymentStatus
}

// Amount is the net amount of the payment, total minus fee. It is nil
// whenever either operand is unknown.
func (p Payment) Amount() *lnwire.MilliSatoshi {
	if p.TotalAmount == nil || p.Fee == nil {
		return nil
	}
	net := *p.TotalAmount - *p.Fee
	return &net
}

type PayRequest struct {
	PaymentRequest string
	MaxFee         *lnwire.MilliSatoshi
}

type PayResponse struct {
	PaymentHash   string
	Preimage      string
	Amount        *lnwire.MilliSatoshi
	Fee           *lnwire.MilliSatoshi
	Status        PaymentStatus
	FailureReason string
}
