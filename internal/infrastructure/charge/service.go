package charge

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/lampo-ln/lampo/internal/core/domain"
	"github.com/lampo-ln/lampo/internal/core/ports"
	"github.com/lampo-ln/lampo/pkg/charge"
	"github.com/lampo-ln/lampo/utils"
)

type service struct {
	client *charge.Client
}

// NewService wraps a Charge transport client into the unified node
// client contract. The service holds no mutable state of its own: the
// transport client may serve any number of concurrent calls.
func NewService(client *charge.Client) ports.LightningClient {
	return &service{client: client}
}

func (s *service) GetInfo(ctx context.Context) (*domain.NodeInfo, error) {
	resp, err := s.client.GetInfo(ctx)
	if err != nil {
		return nil, err
	}

	info := domain.NewNodeInfo(resp.BlockHeight, resp.URIs)
	return &info, nil
}

func (s *service) GetInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	resp, err := s.client.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return invoiceFromWire(resp)
}

func (s *service) CreateInvoice(
	ctx context.Context, req domain.CreateInvoiceRequest,
) (*domain.Invoice, error) {
	resp, err := s.client.CreateInvoice(ctx, charge.CreateInvoiceRequest{
		AmountMsat:  int64(req.Amount),
		Description: req.Description,
		Expiry:      int64(req.Expiry / time.Second),
		Label:       uuid.New().String(),
	})
	if err != nil {
		return nil, err
	}
	return invoiceFromWire(resp)
}

func (s *service) CancelInvoice(ctx context.Context, invoiceID string) error {
	return s.client.CancelInvoice(ctx, invoiceID)
}

func (s *service) GetPayment(ctx context.Context, paymentHash string) (*domain.Payment, error) {
	resp, err := s.client.GetPayment(ctx, paymentHash)
	if err != nil {
		return nil, err
	}
	return paymentFromWire(resp)
}

func (s *service) Pay(ctx context.Context, req domain.PayRequest) (*domain.PayResponse, error) {
	// validate invoice
	if !utils.IsValidInvoice(req.PaymentRequest) {
		return nil, fmt.Errorf("invalid payment request %q", req.PaymentRequest)
	}

	wireReq := charge.PayRequest{PaymentRequest: req.PaymentRequest}
	if req.MaxFee != nil {
		maxFee := int64(*req.MaxFee)
		wireReq.MaxFeeMsat = &maxFee
	}

	resp, err := s.client.Pay(ctx, wireReq)
	if err != nil {
		return nil, err
	}

	status, err := paymentStatusFromWire(resp.Status)
	if err != nil {
		return nil, err
	}

	return &domain.PayResponse{
		PaymentHash:   resp.PaymentHash,
		Preimage:      resp.Preimage,
		Amount:        msatFromWire(resp.AmountMsat),
		Fee:           msatFromWire(resp.FeeMsat),
		Status:        status,
		FailureReason: resp.FailureReason,
	}, nil
}

func (s *service) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	resp, err := s.client.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	channels := make([]domain.Channel, 0, len(resp.Channels))
	for _, ch := range resp.Channels {
		channel, err := domain.NewChannel(
			ch.Public, ch.Active, ch.RemotePubkey, ch.ChannelPoint,
			btcutil.Amount(ch.LocalBalanceSat), btcutil.Amount(ch.CapacitySat),
		)
		if err != nil {
			return nil, fmt.Errorf("channel listing: %w", err)
		}
		channels = append(channels, channel)
	}

	return channels, nil
}

func (s *service) OpenChannel(
	ctx context.Context, req domain.OpenChannelRequest,
) (*domain.OpenChannelResponse, error) {
	_, err := s.client.OpenChannel(ctx, charge.OpenChannelRequest{
		NodeURI:      req.Node.String(),
		AmountSat:    int64(req.ChannelAmount),
		FeeRateSatVB: req.FeeRate,
	})
	if err != nil {
		code, ok := apiErrorCode(err)
		if !ok {
			return nil, err
		}
		result, err := mapOpenChannelCode(code)
		if err != nil {
			return nil, err
		}
		return &domain.OpenChannelResponse{Result: result}, nil
	}

	return &domain.OpenChannelResponse{Result: domain.OpenChannelOk}, nil
}

func (s *service) ConnectTo(ctx context.Context, node domain.NodeURI) (domain.ConnectionResult, error) {
	if err := s.client.ConnectPeer(ctx, charge.ConnectRequest{NodeURI: node.String()}); err != nil {
		code, ok := apiErrorCode(err)
		if !ok {
			return 0, err
		}
		return mapConnectCode(code)
	}

	return domain.ConnectionOk, nil
}

func (s *service) GetDepositAddress(ctx context.Context) (string, error) {
	resp, err := s.client.NewAddress(ctx)
	if err != nil {
		return "", err
	}
	return resp.Address, nil
}

func (s *service) Listen(ctx context.Context) (ports.InvoiceListener, error) {
	return newInvoiceListener(ctx, s)
}

func invoiceFromWire(in *charge.Invoice) (*domain.Invoice, error) {
	status, err := invoiceStatusFromWire(in.Status)
	if err != nil {
		return nil, err
	}

	return &domain.Invoice{
		ID:             in.ID,
		Amount:         msatFromWire(in.AmountMsat),
		CreatedAt:      time.Unix(in.CreatedAt, 0),
		PaidAt:         timeFromWire(in.PaidAt),
		ExpiresAt:      time.Unix(in.ExpiresAt, 0),
		PaymentRequest: in.PaymentRequest,
		Status:         status,
		AmountReceived: msatFromWire(in.ReceivedMsat),
	}, nil
}

func paymentFromWire(in *charge.Payment) (*domain.Payment, error) {
	status, err := paymentStatusFromWire(in.Status)
	if err != nil {
		return nil, err
	}

	return &domain.Payment{
		ID:             in.ID,
		TotalAmount:    msatFromWire(in.AmountMsat),
		Fee:            msatFromWire(in.FeeMsat),
		AmountSent:     msatFromWire(in.AmountMsat),
		CreatedAt:      time.Unix(in.CreatedAt, 0),
		PaymentRequest: in.PaymentRequest,
		Preimage:       in.Preimage,
		PaymentHash:    in.PaymentHash,
		Status:         status,
	}, nil
}

func invoiceStatusFromWire(status string) (domain.InvoiceStatus, error) {
	switch status {
	case charge.StatusUnpaid:
		return domain.InvoiceUnpaid, nil
	case charge.StatusPaid:
		return domain.InvoicePaid, nil
	case charge.StatusExpired:
		return domain.InvoiceExpired, nil
	case charge.StatusCancelled:
		return domain.InvoiceCancelled, nil
	default:
		return 0, fmt.Errorf("unknown invoice status %q", status)
	}
}

func paymentStatusFromWire(status string) (domain.PaymentStatus, error) {
	switch status {
	case charge.StatusPending:
		return domain.PaymentPending, nil
	case charge.StatusComplete:
		return domain.PaymentComplete, nil
	case charge.StatusFailed:
		return domain.PaymentFailed, nil
	default:
		return 0, fmt.Errorf("unknown payment status %q", status)
	}
}

func msatFromWire(v *int64) *lnwire.MilliSatoshi {
	if v == nil {
		return nil
	}
	msat := lnwire.MilliSatoshi(*v)
	return &msat
}

func timeFromWire(unix *int64) *time.Time {
	if unix == nil {
		return nil
	}
	t := time.Unix(*unix, 0)
	return &t
}
