package charge

import "fmt"

const (
	StatusUnpaid    = "unpaid"
	StatusPaid      = "paid"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"

	StatusPending  = "pending"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

type GetInfoResponse struct {
	BlockHeight uint32   `json:"blockHeight"`
	URIs        []string `json:"uris"`
}

type Invoice struct {
	ID             string `json:"id"`
	AmountMsat     *int64 `json:"msatoshi"`
	ReceivedMsat   *int64 `json:"msatoshiReceived"`
	CreatedAt      int64  `json:"createdAt"`
	PaidAt         *int64 `json:"paidAt"`
	ExpiresAt      int64  `json:"expiresAt"`
	PaymentRequest string `json:"paymentRequest"`
	Status         string `json:"status"`
}

type CreateInvoiceRequest struct {
	AmountMsat  int64  `json:"msatoshi"`
	Description string `json:"description"`
	Expiry      int64  `json:"expiry"`
	Label       string `json:"label"`
}

type Payment struct {
	ID             string `json:"id"`
	AmountMsat     *int64 `json:"amountMsat"`
	FeeMsat        *int64 `json:"feeMsat"`
	CreatedAt      int64  `json:"createdAt"`
	PaymentRequest string `json:"paymentRequest"`
	Preimage       string `json:"preimage"`
	PaymentHash    string `json:"paymentHash"`
	Status         string `json:"status"`
}

type PayRequest struct {
	PaymentRequest string `json:"paymentRequest"`
	MaxFeeMsat     *int64 `json:"maxFeeMsat,omitempty"`
}

type PayResponse struct {
	PaymentHash   string `json:"paymentHash"`
	Preimage      string `json:"preimage"`
	AmountMsat    *int64 `json:"amountMsat"`
	FeeMsat       *int64 `json:"feeMsat"`
	Status        string `json:"status"`
	FailureReason string `json:"failureReason,omitempty"`
}

type Channel struct {
	Public          bool   `json:"public"`
	Active          bool   `json:"active"`
	RemotePubkey    string `json:"remotePubkey"`
	LocalBalanceSat int64  `json:"localBalanceSat"`
	CapacitySat     int64  `json:"capacitySat"`
	ChannelPoint    string `json:"channelPoint"`
}

type ListChannelsResponse struct {
	Channels []Channel `json:"channels"`
}

type OpenChannelRequest struct {
	NodeURI      string `json:"nodeUri"`
	AmountSat    int64  `json:"amountSat"`
	FeeRateSatVB uint64 `json:"feeRateSatVb"`
}

type OpenChannelResponse struct {
	ChannelPoint string `json:"channelPoint"`
}

type ConnectRequest struct {
	NodeURI string `json:"nodeUri"`
}

type NewAddressResponse struct {
	Address string `json:"address"`
}

// InvoiceEvent is a push notification frame. Frames carrying an empty ID
// (subscription acks, keepalives) carry no invoice reference.
type InvoiceEvent struct {
	Event     string `json:"event"`
	InvoiceID string `json:"id"`
	Status    string `json:"status"`
}

// APIError is a backend-signaled failure carrying a machine-readable
// error code next to the human-readable message.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("charge: %s (%s)", e.Message, e.Code)
}

type errorEnvelope struct {
	Error *APIError `json:"error"`
}
