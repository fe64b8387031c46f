package command

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// backendAck is the backend's per-command response frame.
type backendAck struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// WSForwarder forwards commands to an authoritative backend over a
// websocket connection. Requests are fire-and-forget from the caller's
// perspective; each one is answered by a single ack frame in order.
type WSForwarder struct {
	logger *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// DialBackend connects to the authoritative backend.
func DialBackend(url string, logger *zap.Logger) (*WSForwarder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial backend %s: %w", url, err)
	}
	logger.Info("connected to authoritative backend", zap.String("url", url))
	return &WSForwarder{logger: logger, conn: conn}, nil
}

// Forward sends the payload and reads the matching ack on a background
// goroutine. done receives nil on acceptance, an error on rejection or
// transport failure.
func (f *WSForwarder) Forward(payload []byte, done func(err error)) {
	go func() {
		err := f.roundTrip(payload)
		if done != nil {
			done(err)
		}
	}()
}

// roundTrip serializes write+read pairs: the backend answers each
// command frame with exactly one ack frame.
func (f *WSForwarder) roundTrip(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conn == nil {
		return fmt.Errorf("backend connection closed")
	}
	if err := f.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("backend write failed: %w", err)
	}
	_, data, err := f.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("backend read failed: %w", err)
	}

	var ack backendAck
	if err := json.Unmarshal(data, &ack); err != nil {
		return fmt.Errorf("malformed backend ack: %w", err)
	}
	if !ack.OK {
		return fmt.Errorf("backend rejected command: %s", ack.Error)
	}
	return nil
}

// Close shuts the backend connection down.
func (f *WSForwarder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return nil
	}
	err := f.conn.Close()
	f.conn = nil
	return err
}
