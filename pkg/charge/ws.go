package charge

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsEndpoint        = "/v1/ws"
	invoiceChannel    = "invoice.settled"
	subscribeAckEvent = "subscribe"
)

type subscribeMessage struct {
	Op      string `json:"op"`
	Channel string `json:"channel"`
}

// Websocket is a single-use push connection. Updates carries decoded
// notification frames in arrival order and is closed as soon as the
// connection drops, whoever closed it.
type Websocket struct {
	Updates <-chan InvoiceEvent

	client    *Client
	conn      *websocket.Conn
	updates   chan InvoiceEvent
	done      chan struct{}
	closeOnce sync.Once
}

func (c *Client) NewWebsocket() *Websocket {
	updates := make(chan InvoiceEvent)
	return &Websocket{
		Updates: updates,
		client:  c,
		updates: updates,
		done:    make(chan struct{}),
	}
}

// ConnectAndSubscribe dials the push endpoint, subscribes to invoice
// settlement events and waits for the subscription ack before starting
// the reader loop.
func (ws *Websocket) ConnectAndSubscribe(ctx context.Context, timeout time.Duration) error {
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	header := http.Header{}
	if ws.client.Token != "" {
		header.Set("Authorization", "Bearer "+ws.client.Token)
	}

	wsURL := ws.client.WSURL + wsEndpoint
	conn, _, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}

	if err := conn.WriteJSON(subscribeMessage{Op: "subscribe", Channel: invoiceChannel}); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		conn.Close()
		return err
	}
	var ack InvoiceEvent
	if err := conn.ReadJSON(&ack); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe ack: %w", err)
	}
	if ack.Event != subscribeAckEvent {
		conn.Close()
		return fmt.Errorf("unexpected frame %q while waiting for subscribe ack", ack.Event)
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		conn.Close()
		return err
	}

	ws.conn = conn
	go ws.readLoop()

	return nil
}

func (ws *Websocket) readLoop() {
	defer close(ws.updates)
	for {
		var event InvoiceEvent
		if err := ws.conn.ReadJSON(&event); err != nil {
			return
		}
		if event.InvoiceID == "" {
			// ack or keepalive frame
			continue
		}
		select {
		case ws.updates <- event:
		case <-ws.done:
			return
		}
	}
}

func (ws *Websocket) Close() error {
	var err error
	ws.closeOnce.Do(func() {
		close(ws.done)
		if ws.conn == nil {
			return
		}
		deadline := time.Now().Add(time.Second)
		_ = ws.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			deadline,
		)
		err = ws.conn.Close()
	})
	return err
}
