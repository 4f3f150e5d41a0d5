package lnd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnrpc/invoicesrpc"
	"github.com/lightningnetwork/lnd/lnwire"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/lampo-ln/lampo/internal/core/domain"
	"github.com/lampo-ln/lampo/internal/core/ports"
)

type service struct {
	client   lnrpc.LightningClient
	invoices invoicesrpc.InvoicesClient
	conn     *grpc.ClientConn
	macaroon string
}

// NewService dials the LND gRPC endpoint and verifies it by fetching the
// node identity. An empty tlsCertPath disables transport security, which
// is only sane against a regtest node.
func NewService(
	ctx context.Context, host, tlsCertPath, macaroonPath string,
) (ports.LightningClient, error) {
	if host == "" {
		return nil, fmt.Errorf("empty lnd host")
	}

	creds := insecure.NewCredentials()
	if tlsCertPath != "" {
		tlsCreds, err := credentials.NewClientTLSFromFile(tlsCertPath, "")
		if err != nil {
			return nil, fmt.Errorf("unable to load tls cert: %v", err)
		}
		creds = tlsCreds
	}

	macaroon := ""
	if macaroonPath != "" {
		raw, err := os.ReadFile(macaroonPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read macaroon: %v", err)
		}
		macaroon = hex.EncodeToString(raw)
	}

	conn, err := grpc.NewClient(host, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("unable to dial %s: %v", host, err)
	}

	svc := &service{
		client:   lnrpc.NewLightningClient(conn),
		invoices: invoicesrpc.NewInvoicesClient(conn),
		conn:     conn,
		macaroon: macaroon,
	}

	info, err := svc.client.GetInfo(svc.getCtx(ctx), &lnrpc.GetInfoRequest{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to get info: %v", err)
	}

	log.Infof("connected to LND version %s with pubkey %s", info.GetVersion(), info.GetIdentityPubkey())

	return svc, nil
}

func (s *service) Close() error {
	return s.conn.Close()
}

func (s *service) getCtx(ctx context.Context) context.Context {
	if s.macaroon == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "macaroon", s.macaroon)
}

func (s *service) GetInfo(ctx context.Context) (*domain.NodeInfo, error) {
	info, err := s.client.GetInfo(s.getCtx(ctx), &lnrpc.GetInfoRequest{})
	if err != nil {
		return nil, err
	}

	nodeInfo := domain.NewNodeInfo(info.BlockHeight, info.Uris)
	return &nodeInfo, nil
}

func (s *service) GetInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	rhash, err := hex.DecodeString(invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice id %q: %v", invoiceID, err)
	}

	invoice, err := s.client.LookupInvoice(s.getCtx(ctx), &lnrpc.PaymentHash{RHash: rhash})
	if err != nil {
		return nil, err
	}

	return invoiceFromRPC(invoice), nil
}

func (s *service) CreateInvoice(
	ctx context.Context, req domain.CreateInvoiceRequest,
) (*domain.Invoice, error) {
	ctx = s.getCtx(ctx)
	resp, err := s.client.AddInvoice(ctx, &lnrpc.Invoice{
		ValueMsat: int64(req.Amount),
		Memo:      req.Description,
		Expiry:    int64(req.Expiry / time.Second),
	})
	if err != nil {
		return nil, err
	}

	invoice, err := s.client.LookupInvoice(ctx, &lnrpc.PaymentHash{RHash: resp.RHash})
	if err != nil {
		return nil, err
	}

	return invoiceFromRPC(invoice), nil
}

func (s *service) CancelInvoice(ctx context.Context, invoiceID string) error {
	rhash, err := hex.DecodeString(invoiceID)
	if err != nil {
		return fmt.Errorf("invalid invoice id %q: %v", invoiceID, err)
	}

	_, err = s.invoices.CancelInvoice(s.getCtx(ctx), &invoicesrpc.CancelInvoiceMsg{
		PaymentHash: rhash,
	})
	return err
}

func (s *service) GetPayment(ctx context.Context, paymentHash string) (*domain.Payment, error) {
	resp, err := s.client.ListPayments(s.getCtx(ctx), &lnrpc.ListPaymentsRequest{
		IncludeIncomplete: true,
	})
	if err != nil {
		return nil, err
	}

	for _, payment := range resp.Payments {
		if payment.PaymentHash == paymentHash {
			return paymentFromRPC(payment), nil
		}
	}

	return nil, fmt.Errorf("payment %s not found", paymentHash)
}

func (s *service) Pay(ctx context.Context, req domain.PayRequest) (*domain.PayResponse, error) {
	ctx = s.getCtx(ctx)

	// validate invoice
	if _, err := s.client.DecodePayReq(ctx, &lnrpc.PayReqString{
		PayReq: req.PaymentRequest,
	}); err != nil {
		return nil, err
	}

	sendReq := &lnrpc.SendRequest{PaymentRequest: req.PaymentRequest}
	if req.MaxFee != nil {
		sendReq.FeeLimit = &lnrpc.FeeLimit{
			Limit: &lnrpc.FeeLimit_FixedMsat{FixedMsat: int64(*req.MaxFee)},
		}
	}

	resp, err := s.client.SendPaymentSync(ctx, sendReq)
	if err != nil {
		return nil, err
	}

	if reason := resp.GetPaymentError(); reason != "" {
		return &domain.PayResponse{
			Status:        domain.PaymentFailed,
			FailureReason: reason,
		}, nil
	}

	out := &domain.PayResponse{
		PaymentHash: hex.EncodeToString(resp.GetPaymentHash()),
		Preimage:    hex.EncodeToString(resp.GetPaymentPreimage()),
		Status:      domain.PaymentComplete,
	}
	if route := resp.GetPaymentRoute(); route != nil {
		amount := lnwire.MilliSatoshi(route.TotalAmtMsat - route.TotalFeesMsat)
		fee := lnwire.MilliSatoshi(route.TotalFeesMsat)
		out.Amount = &amount
		out.Fee = &fee
	}

	return out, nil
}

func (s *service) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	resp, err := s.client.ListChannels(s.getCtx(ctx), &lnrpc.ListChannelsRequest{})
	if err != nil {
		return nil, err
	}

	channels := make([]domain.Channel, 0, len(resp.Channels))
	for _, ch := range resp.Channels {
		channel, err := domain.NewChannel(
			!ch.Private, ch.Active, ch.RemotePubkey, ch.ChannelPoint,
			btcutil.Amount(ch.LocalBalance), btcutil.Amount(ch.Capacity),
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
	_, err := s.client.OpenChannelSync(s.getCtx(ctx), &lnrpc.OpenChannelRequest{
		NodePubkey:         req.Node.PubKey.SerializeCompressed(),
		LocalFundingAmount: int64(req.ChannelAmount),
		SatPerVbyte:        req.FeeRate,
	})
	if err != nil {
		result, ok := openChannelResultFromError(err)
		if !ok {
			return nil, err
		}
		return &domain.OpenChannelResponse{Result: result}, nil
	}

	return &domain.OpenChannelResponse{Result: domain.OpenChannelOk}, nil
}

// LND has no machine-readable error codes on the channel funding path,
// only message text. Anything outside the recognized set stays an error.
func openChannelResultFromError(err error) (domain.OpenChannelResult, bool) {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "channel already exists"),
		strings.Contains(msg, "already have a pending channel"):
		return domain.OpenChannelAlreadyExists, true
	case strings.Contains(msg, "not enough witness outputs"),
		strings.Contains(msg, "insufficient funds"):
		return domain.OpenChannelCannotAffordFunding, true
	case strings.Contains(msg, "unconfirmed"):
		return domain.OpenChannelNeedMoreConfirmations, true
	case strings.Contains(msg, "peer is not connected"),
		strings.Contains(msg, "not connected to peer"):
		return domain.OpenChannelPeerNotConnected, true
	default:
		return 0, false
	}
}

func (s *service) ConnectTo(ctx context.Context, node domain.NodeURI) (domain.ConnectionResult, error) {
	_, err := s.client.ConnectPeer(s.getCtx(ctx), &lnrpc.ConnectPeerRequest{
		Addr: &lnrpc.LightningAddress{
			Pubkey: hex.EncodeToString(node.PubKey.SerializeCompressed()),
			Host:   node.Host,
		},
	})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already connected to peer") {
			return domain.ConnectionOk, nil
		}
		result, ok := connectResultFromError(err)
		if !ok {
			return 0, err
		}
		log.WithError(err).Debugf("failed to connect to %s", node)
		return result, nil
	}

	return domain.ConnectionOk, nil
}

// connectResultFromError recognizes peer dial failures by message text,
// the only signal LND gives on this path. Cancellation and anything
// unrecognized stay errors.
func connectResultFromError(err error) (domain.ConnectionResult, bool) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	switch status.Code(err) {
	case codes.Canceled, codes.DeadlineExceeded, codes.Unavailable:
		return 0, false
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "i/o timeout"),
		strings.Contains(msg, "no route to host"),
		strings.Contains(msg, "network is unreachable"),
		strings.Contains(msg, "dial tcp"),
		strings.Contains(msg, "dial proxy failed"),
		strings.Contains(msg, "unable to connect"):
		return domain.ConnectionCouldNotConnect, true
	default:
		return 0, false
	}
}

func (s *service) GetDepositAddress(ctx context.Context) (string, error) {
	resp, err := s.client.NewAddress(s.getCtx(ctx), &lnrpc.NewAddressRequest{
		Type: lnrpc.AddressType_WITNESS_PUBKEY_HASH,
	})
	if err != nil {
		return "", err
	}
	return resp.Address, nil
}

func (s *service) Listen(ctx context.Context) (ports.InvoiceListener, error) {
	return newInvoiceListener(ctx, s)
}

func invoiceFromRPC(in *lnrpc.Invoice) *domain.Invoice {
	out := &domain.Invoice{
		ID:             hex.EncodeToString(in.RHash),
		CreatedAt:      time.Unix(in.CreationDate, 0),
		ExpiresAt:      time.Unix(in.CreationDate+in.Expiry, 0),
		PaymentRequest: in.PaymentRequest,
	}

	if in.ValueMsat > 0 {
		amount := lnwire.MilliSatoshi(in.ValueMsat)
		out.Amount = &amount
	}

	switch in.State {
	case lnrpc.Invoice_SETTLED:
		out.Status = domain.InvoicePaid
		paidAt := time.Unix(in.SettleDate, 0)
		out.PaidAt = &paidAt
		received := lnwire.MilliSatoshi(in.AmtPaidMsat)
		out.AmountReceived = &received
	case lnrpc.Invoice_CANCELED:
		out.Status = domain.InvoiceCancelled
	default:
		out.Status = domain.InvoiceUnpaid
		if time.Now().After(out.ExpiresAt) {
			out.Status = domain.InvoiceExpired
		}
	}

	return out
}

func paymentFromRPC(in *lnrpc.Payment) *domain.Payment {
	amount := lnwire.MilliSatoshi(in.ValueMsat)
	fee := lnwire.MilliSatoshi(in.FeeMsat)

	out := &domain.Payment{
		ID:             in.PaymentHash,
		TotalAmount:    &amount,
		Fee:            &fee,
		AmountSent:     &amount,
		CreatedAt:      time.Unix(in.CreationDate, 0),
		PaymentRequest: in.PaymentRequest,
		Preimage:       in.PaymentPreimage,
		PaymentHash:    in.PaymentHash,
	}

	switch in.Status {
	case lnrpc.Payment_SUCCEEDED:
		out.Status = domain.PaymentComplete
	case lnrpc.Payment_FAILED:
		out.Status = domain.PaymentFailed
	default:
		out.Status = domain.PaymentPending
	}

	return out
}
