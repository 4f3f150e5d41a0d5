package domain_test

import (
	"testing"

	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/stretchr/testify/require"

	"github.com/lampo-ln/lampo/internal/core/domain"
)

func msat(v uint64) *lnwire.MilliSatoshi {
	amount := lnwire.MilliSatoshi(v)
	return &amount
}

func TestPaymentAmount(t *testing.T) {
	tests := []struct {
		name  string
		total *lnwire.MilliSatoshi
		fee   *lnwire.MilliSatoshi
		want  *lnwire.MilliSatoshi
	}{
		{name: "total minus fee", total: msat(21000), fee: msat(1000), want: msat(20000)},
		{name: "zero fee", total: msat(21000), fee: msat(0), want: msat(21000)},
		{name: "nil total", total: nil, fee: msat(1000), want: nil},
		{name: "nil fee", total: msat(21000), fee: nil, want: nil},
		{name: "both nil", total: nil, fee: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payment := domain.Payment{TotalAmount: tt.total, Fee: tt.fee}
			got := payment.Amount()
			if tt.want == nil {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.Equal(t, *tt.want, *got)
		})
	}
}
