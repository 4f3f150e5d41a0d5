package charge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client talks to a Charge-style node backend: JSON over HTTP for
// request/response operations, a websocket endpoint for push
// notifications. Both are authenticated with the same access token.
type Client struct {
	URL    string
	WSURL  string
	Token  string
	Client http.Client
}

func (c *Client) GetInfo(ctx context.Context) (*GetInfoResponse, error) {
	return sendGetRequest[GetInfoResponse](ctx, c, "/info")
}

func (c *Client) GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	return sendGetRequest[Invoice](ctx, c, fmt.Sprintf("/invoice/%s", invoiceID))
}

func (c *Client) CreateInvoice(ctx context.Context, request CreateInvoiceRequest) (*Invoice, error) {
	return sendPostRequest[Invoice](ctx, c, "/invoice", request)
}

func (c *Client) CancelInvoice(ctx context.Context, invoiceID string) error {
	_, err := sendDeleteRequest[struct{}](ctx, c, fmt.Sprintf("/invoice/%s", invoiceID))
	return err
}

func (c *Client) GetPayment(ctx context.Context, paymentHash string) (*Payment, error) {
	return sendGetRequest[Payment](ctx, c, fmt.Sprintf("/payment/%s", paymentHash))
}

func (c *Client) Pay(ctx context.Context, request PayRequest) (*PayResponse, error) {
	return sendPostRequest[PayResponse](ctx, c, "/pay", request)
}

func (c *Client) ListChannels(ctx context.Context) (*ListChannelsResponse, error) {
	return sendGetRequest[ListChannelsResponse](ctx, c, "/channels")
}

func (c *Client) OpenChannel(ctx context.Context, request OpenChannelRequest) (*OpenChannelResponse, error) {
	return sendPostRequest[OpenChannelResponse](ctx, c, "/channel/open", request)
}

func (c *Client) ConnectPeer(ctx context.Context, request ConnectRequest) error {
	_, err := sendPostRequest[struct{}](ctx, c, "/peer/connect", request)
	return err
}

func (c *Client) NewAddress(ctx context.Context) (*NewAddressResponse, error) {
	return sendGetRequest[NewAddressResponse](ctx, c, "/address")
}

func sendGetRequest[T any](ctx context.Context, c *Client, endpoint string) (*T, error) {
	return callApi[T](ctx, c, http.MethodGet, c.URL+"/v1"+endpoint, nil)
}

func sendPostRequest[T any](ctx context.Context, c *Client, endpoint string, requestBody any) (*T, error) {
	return callApi[T](ctx, c, http.MethodPost, c.URL+"/v1"+endpoint, requestBody)
}

func sendDeleteRequest[T any](ctx context.Context, c *Client, endpoint string) (*T, error) {
	return callApi[T](ctx, c, http.MethodDelete, c.URL+"/v1"+endpoint, nil)
}

func callApi[T any](ctx context.Context, c *Client, method, url string, reqBody any) (*T, error) {
	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("new %s %s: %w", method, url, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var envelope errorEnvelope
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil && envelope.Error.Code != "" {
			envelope.Error.StatusCode = res.StatusCode
			return nil, envelope.Error
		}

		msg := strings.TrimSpace(string(raw))
		if len(msg) > 2000 {
			msg = msg[:2000] + "...(truncated)"
		}
		return nil, &HTTPError{
			Method:     method,
			URL:        url,
			StatusCode: res.StatusCode,
			Body:       msg,
		}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		var zero T
		return &zero, nil
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		snip := strings.TrimSpace(string(raw))
		if len(snip) > 300 {
			snip = snip[:300] + "...(truncated)"
		}
		return nil, fmt.Errorf("unmarshal JSON: %w (body: %q)", err, snip)
	}

	return &out, nil
}

// HTTPError is a non-2xx response whose body did not carry a structured
// backend error code.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}
