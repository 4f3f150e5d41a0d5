package utils

import (
	"encoding/hex"

	decodepay "github.com/nbd-wtf/ln-decodepay"
)

// DecodeInvoice returns the amount in sats and the payment hash of a
// BOLT11 payment request.
func DecodeInvoice(invoice string) (uint64, []byte, error) {
	bolt11, err := decodepay.Decodepay(invoice)
	if err != nil {
		return 0, nil, err
	}

	amount := uint64(bolt11.MSatoshi / 1000)
	paymentHash, err := hex.DecodeString(bolt11.PaymentHash)
	if err != nil {
		return 0, nil, err
	}

	return amount, paymentHash, nil
}

func MsatsFromInvoice(invoice string) int64 {
	bolt11, err := decodepay.Decodepay(invoice)
	if err != nil {
		return 0
	}
	return bolt11.MSatoshi
}

func IsValidInvoice(invoice string) bool {
	_, err := decodepay.Decodepay(invoice)
	return err == nil
}
