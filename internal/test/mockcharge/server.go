package mockcharge

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/lampo-ln/lampo/pkg/charge"
)

// Server is an in-memory Charge backend for tests and local development.
// It implements the full /v1 HTTP surface plus the /v1/ws push channel,
// and exposes hooks to settle invoices and to force error codes on the
// channel operations.
type Server struct {
	cfg Config

	mu              sync.RWMutex
	invoices        map[string]*charge.Invoice
	payments        map[string]*charge.Payment
	channels        []charge.Channel
	openChannelCode string
	connectCode     string

	wsMu      sync.RWMutex
	wsClients map[*websocket.Conn]*wsClient
	upgrader  websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener
}

type Config struct {
	ListenAddr  string
	Token       string
	BlockHeight uint32
	URIs        []string
}

type wsClient struct {
	subscribed bool
	mu         sync.Mutex
}

func New(cfg Config) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":9112"
	}
	if cfg.BlockHeight == 0 {
		cfg.BlockHeight = 800000
	}

	return &Server{
		cfg:       cfg,
		invoices:  make(map[string]*charge.Invoice),
		payments:  make(map[string]*charge.Payment),
		wsClients: make(map[*websocket.Conn]*wsClient),
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/ws", s.handleWS)
	mux.HandleFunc("/v1/info", s.withAuth(s.handleInfo))
	mux.HandleFunc("/v1/invoice", s.withAuth(s.handleCreateInvoice))
	mux.HandleFunc("/v1/invoice/", s.withAuth(s.handleInvoice))
	mux.HandleFunc("/v1/payment/", s.withAuth(s.handlePayment))
	mux.HandleFunc("/v1/pay", s.withAuth(s.handlePay))
	mux.HandleFunc("/v1/channels", s.withAuth(s.handleChannels))
	mux.HandleFunc("/v1/channel/open", s.withAuth(s.handleOpenChannel))
	mux.HandleFunc("/v1/peer/connect", s.withAuth(s.handleConnectPeer))
	mux.HandleFunc("/v1/address", s.withAuth(s.handleAddress))

	s.httpServer = &http.Server{Handler: mux}

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.listener = ln

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("mock charge server stopped unexpectedly")
		}
	}()

	return nil
}

func (s *Server) Stop() error {
	s.wsMu.Lock()
	for conn := range s.wsClients {
		_ = conn.Close()
	}
	s.wsClients = make(map[*websocket.Conn]*wsClient)
	s.wsMu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// URL returns the http base address of the running server.
func (s *Server) URL() string {
	return "http://" + s.listener.Addr().String()
}

// WSURL returns the ws base address of the running server.
func (s *Server) WSURL() string {
	return "ws://" + s.listener.Addr().String()
}

// SettleInvoice marks an invoice as paid and pushes the settlement event
// to every subscribed websocket client.
func (s *Server) SettleInvoice(id string) error {
	s.mu.Lock()
	invoice, ok := s.invoices[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("invoice %s not found", id)
	}
	now := time.Now().Unix()
	invoice.Status = charge.StatusPaid
	invoice.PaidAt = &now
	if invoice.AmountMsat != nil {
		received := *invoice.AmountMsat
		invoice.ReceivedMsat = &received
	}
	s.mu.Unlock()

	s.pushInvoiceSettled(id)
	return nil
}

// PushSettlement pushes a settlement event without touching stored
// invoices, so tests can emit frames referencing unknown invoices.
func (s *Server) PushSettlement(id string) {
	s.pushInvoiceSettled(id)
}

// SetOpenChannelCode makes subsequent open-channel calls fail with the
// given error code; empty restores success.
func (s *Server) SetOpenChannelCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openChannelCode = code
}

// SetConnectCode makes subsequent connect-peer calls fail with the given
// error code; empty restores success.
func (s *Server) SetConnectCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectCode = code
}

func (s *Server) SetChannels(channels []charge.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = channels
}

func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.cfg.Token {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid access token")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, charge.GetInfoResponse{
		BlockHeight: s.cfg.BlockHeight,
		URIs:        s.cfg.URIs,
	})
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "method not allowed")
		return
	}
	var req charge.CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-body", "invalid body")
		return
	}
	if req.AmountMsat <= 0 {
		writeError(w, http.StatusBadRequest, "invalid-amount", "amount must be positive")
		return
	}

	now := time.Now().Unix()
	expiry := req.Expiry
	if expiry <= 0 {
		expiry = 3600
	}
	amount := req.AmountMsat
	invoice := &charge.Invoice{
		ID:             uuid.New().String(),
		AmountMsat:     &amount,
		CreatedAt:      now,
		ExpiresAt:      now + expiry,
		PaymentRequest: fakePaymentRequest(),
		Status:         charge.StatusUnpaid,
	}

	s.mu.Lock()
	s.invoices[invoice.ID] = invoice
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, invoice)
}

func (s *Server) handleInvoice(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path)
	if len(parts) != 3 {
		writeError(w, http.StatusNotFound, "not-found", "not found")
		return
	}
	id := parts[2]

	switch r.Method {
	case http.MethodGet:
		s.mu.RLock()
		invoice, ok := s.invoices[id]
		s.mu.RUnlock()
		if !ok {
			writeError(w, http.StatusNotFound, "invoice-not-found", fmt.Sprintf("invoice %s not found", id))
			return
		}
		writeJSON(w, http.StatusOK, invoice)
	case http.MethodDelete:
		s.mu.Lock()
		invoice, ok := s.invoices[id]
		if ok && invoice.Status == charge.StatusUnpaid {
			invoice.Status = charge.StatusCancelled
		}
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusNotFound, "invoice-not-found", fmt.Sprintf("invoice %s not found", id))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "method not allowed")
	}
}

func (s *Server) handlePayment(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path)
	if r.Method != http.MethodGet || len(parts) != 3 {
		writeError(w, http.StatusNotFound, "not-found", "not found")
		return
	}
	hash := parts[2]

	s.mu.RLock()
	payment, ok := s.payments[hash]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "payment-not-found", fmt.Sprintf("payment %s not found", hash))
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "method not allowed")
		return
	}
	var req charge.PayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PaymentRequest == "" {
		writeError(w, http.StatusBadRequest, "invalid-body", "invalid body")
		return
	}

	preimage := randomBytes(32)
	hash := sha256.Sum256(preimage)
	amount := int64(21000)
	fee := int64(1000)

	payment := &charge.Payment{
		ID:             uuid.New().String(),
		AmountMsat:     &amount,
		FeeMsat:        &fee,
		CreatedAt:      time.Now().Unix(),
		PaymentRequest: req.PaymentRequest,
		Preimage:       hex.EncodeToString(preimage),
		PaymentHash:    hex.EncodeToString(hash[:]),
		Status:         charge.StatusComplete,
	}

	s.mu.Lock()
	s.payments[payment.PaymentHash] = payment
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, charge.PayResponse{
		PaymentHash: payment.PaymentHash,
		Preimage:    payment.Preimage,
		AmountMsat:  payment.AmountMsat,
		FeeMsat:     payment.FeeMsat,
		Status:      charge.StatusComplete,
	})
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "method not allowed")
		return
	}
	s.mu.RLock()
	channels := make([]charge.Channel, len(s.channels))
	copy(channels, s.channels)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, charge.ListChannelsResponse{Channels: channels})
}

func (s *Server) handleOpenChannel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "method not allowed")
		return
	}
	var req charge.OpenChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-body", "invalid body")
		return
	}

	s.mu.RLock()
	code := s.openChannelCode
	s.mu.RUnlock()
	if code != "" {
		writeError(w, http.StatusConflict, code, fmt.Sprintf("open channel rejected: %s", code))
		return
	}

	writeJSON(w, http.StatusOK, charge.OpenChannelResponse{
		ChannelPoint: randomTxID() + ":0",
	})
}

func (s *Server) handleConnectPeer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "method not allowed")
		return
	}
	var req charge.ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-body", "invalid body")
		return
	}

	s.mu.RLock()
	code := s.connectCode
	s.mu.RUnlock()
	if code != "" {
		writeError(w, http.StatusBadGateway, code, fmt.Sprintf("connect rejected: %s", code))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (s *Server) handleAddress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, charge.NewAddressResponse{
		Address: "bcrt1q" + hex.EncodeToString(randomBytes(16)),
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.cfg.Token {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid access token")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	s.wsMu.Lock()
	s.wsClients[conn] = &wsClient{}
	s.wsMu.Unlock()

	defer func() {
		s.wsMu.Lock()
		delete(s.wsClients, conn)
		s.wsMu.Unlock()
		_ = conn.Close()
	}()

	for {
		var msg struct {
			Op      string `json:"op"`
			Channel string `json:"channel"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		if msg.Op == "subscribe" && msg.Channel == "invoice.settled" {
			s.wsMu.Lock()
			client := s.wsClients[conn]
			if client != nil {
				client.subscribed = true
			}
			s.wsMu.Unlock()
			if client == nil {
				continue
			}

			client.mu.Lock()
			_ = conn.WriteJSON(map[string]string{
				"event":   "subscribe",
				"channel": "invoice.settled",
			})
			client.mu.Unlock()
		}
	}
}

func (s *Server) pushInvoiceSettled(id string) {
	payload := charge.InvoiceEvent{
		Event:     "invoice.settled",
		InvoiceID: id,
		Status:    charge.StatusPaid,
	}

	s.wsMu.RLock()
	defer s.wsMu.RUnlock()

	for conn, client := range s.wsClients {
		if !client.subscribed {
			continue
		}
		client.mu.Lock()
		err := conn.WriteJSON(payload)
		client.mu.Unlock()
		if err != nil {
			log.WithError(err).Warn("failed to push ws event")
		}
	}
}

func splitPath(path string) []string {
	trimmed := strings.Trim(strings.TrimSpace(path), "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": msg},
	})
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}

func randomTxID() string {
	return hex.EncodeToString(randomBytes(32))
}

func fakePaymentRequest() string {
	return "lnbcrt210u1" + hex.EncodeToString(randomBytes(24))
}
