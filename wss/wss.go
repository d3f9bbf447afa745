package wss

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/opengrill/pitboss/internal/logging"
	"github.com/opengrill/pitboss/transport"
)

// DefaultBaseURL is the vendor's relay. A grill's socket lives at
// DefaultBaseURL + grill id.
const DefaultBaseURL = "wss://socket.dansonscorp.com/to/"

// Conn is a cloud socket transport to a grill.
type Conn struct {
	grillID string
	url     string
	appID   string

	calls *transport.Calls

	mu      sync.Mutex
	socket  *websocket.Conn
	running bool

	// writeMu serializes frame writes; the websocket allows one writer.
	writeMu sync.Mutex

	cbMu    sync.Mutex
	stateCb transport.StateCallback
	vdataCb transport.VDataCallback
}

var _ transport.Transport = (*Conn)(nil)

// Option adjusts a Conn.
type Option func(*Conn)

// WithBaseURL points the connection at a different relay, such as a test
// server.
func WithBaseURL(base string) Option {
	return func(c *Conn) { c.url = base + c.grillID }
}

// NewConn builds a cloud socket transport for the grill with the given id.
// Nothing is sent until Connect.
func NewConn(grillID string, opts ...Option) *Conn {
	c := &Conn{
		grillID: grillID,
		url:     DefaultBaseURL + grillID,
		appID:   uuid.NewString(),
		calls:   transport.NewCalls(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GrillID returns the grill id this connection talks to.
func (c *Conn) GrillID() string { return c.grillID }

// AppID returns the session's app id.
func (c *Conn) AppID() string { return c.appID }

// Connect dials the relay and starts the read loop.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.socket != nil {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.mu.Unlock()

	sock, err := c.dial(ctx)
	if err != nil {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return err
	}
	c.install(sock)
	logging.Info("cloud socket connected", zap.String("grill_id", c.grillID))
	return nil
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	sock, resp, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("%w: %s: %v", transport.ErrGrillUnavailable, c.grillID, err)
	}
	return sock, nil
}

func (c *Conn) install(sock *websocket.Conn) {
	c.mu.Lock()
	if !c.running {
		// Disconnect won the race while we were dialing.
		c.mu.Unlock()
		sock.Close()
		return
	}
	c.socket = sock
	c.mu.Unlock()
	go c.readLoop(sock)
}

// Disconnect closes the socket, fails in-flight commands, and stops the
// reconnect loop.
func (c *Conn) Disconnect() error {
	c.mu.Lock()
	c.running = false
	sock := c.socket
	c.socket = nil
	c.mu.Unlock()

	c.calls.FailAll(transport.ErrNotConnected)
	if sock == nil {
		return nil
	}
	c.writeMu.Lock()
	sock.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return sock.Close()
}

func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.socket != nil
}

func (c *Conn) OnState(cb transport.StateCallback) {
	c.cbMu.Lock()
	c.stateCb = cb
	c.cbMu.Unlock()
}

func (c *Conn) OnVData(cb transport.VDataCallback) {
	c.cbMu.Lock()
	c.vdataCb = cb
	c.cbMu.Unlock()
}

// SendCommand sends one command, stamped with the session's app id, and
// waits for the grill's response.
func (c *Conn) SendCommand(ctx context.Context, method string, params any) (map[string]any, error) {
	ctx, cancel := transport.WithDefaultTimeout(ctx)
	defer cancel()

	id := c.calls.NextID()
	cmd := transport.NewCommand(id, method, params)
	cmd.AppID = c.appID
	frame, err := cmd.Encode()
	if err != nil {
		return nil, err
	}
	return c.calls.Do(ctx, id, func() error { return c.writeFrame(frame) })
}

// SendCommandWithoutAnswer sends a command the grill never answers.
func (c *Conn) SendCommandWithoutAnswer(ctx context.Context, method string, params any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := transport.NewNotification(method, params)
	cmd.AppID = c.appID
	frame, err := cmd.Encode()
	if err != nil {
		return err
	}
	return c.writeFrame(frame)
}

func (c *Conn) writeFrame(frame []byte) error {
	c.mu.Lock()
	sock := c.socket
	c.mu.Unlock()
	if sock == nil {
		return transport.ErrNotConnected
	}

	logging.LogFrame("wss", "send", frame)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return sock.WriteMessage(websocket.TextMessage, frame)
}

func (c *Conn) readLoop(sock *websocket.Conn) {
	for {
		_, data, err := sock.ReadMessage()
		if err != nil {
			break
		}
		c.handleFrame(data)
	}
	c.onConnectionLost(sock)
}

func (c *Conn) handleFrame(data []byte) {
	logging.LogFrame("wss", "recv", data)

	frame, err := transport.ParseFrame(data)
	if err != nil {
		logging.Warn("discarding unparseable frame", zap.ByteString("frame", data))
		return
	}

	// The relay broadcasts responses to every session of the grill;
	// frames stamped for another session are not ours to act on.
	if frame.AppID != "" && frame.AppID != c.appID {
		logging.Debug("dropping frame for another session", zap.String("app_id", frame.AppID))
		return
	}

	if len(frame.Status) > 0 {
		c.cbMu.Lock()
		cb := c.stateCb
		c.cbMu.Unlock()
		if cb != nil {
			for _, status := range frame.Status {
				cb(status, "")
			}
		}
		return
	}

	if frame.ID != nil {
		if c.calls.Resolve(frame) == transport.Unmatched {
			logging.Debug("frame matches no waiting command", zap.Int("id", *frame.ID))
		}
		return
	}

	if payload, ok := vdataPayload(frame.Result); ok {
		c.cbMu.Lock()
		cb := c.vdataCb
		c.cbMu.Unlock()
		if cb != nil {
			cb(payload)
		}
	}
}

// vdataPayload renders a bare result as the virtual data payload. String
// results pass through unquoted; anything else travels as its JSON text.
// Empty results are not virtual data.
func vdataPayload(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		if t == "" {
			return "", false
		}
		return t, true
	case map[string]any:
		if len(t) == 0 {
			return "", false
		}
	case []any:
		if len(t) == 0 {
			return "", false
		}
	case bool:
		if !t {
			return "", false
		}
	case float64:
		if t == 0 {
			return "", false
		}
	}
	return string(raw), true
}

func (c *Conn) onConnectionLost(sock *websocket.Conn) {
	c.mu.Lock()
	if c.socket != sock {
		// Deliberately closed or already superseded.
		c.mu.Unlock()
		return
	}
	c.socket = nil
	running := c.running
	c.mu.Unlock()

	c.calls.FailAll(transport.ErrNotConnected)
	if !running {
		return
	}
	logging.Warn("cloud socket lost, reconnecting", zap.String("grill_id", c.grillID))
	go c.reconnectLoop()
}

func (c *Conn) reconnectLoop() {
	bo := newReconnectBackoff()
	for {
		time.Sleep(bo.NextBackOff())
		if !c.keepRunning() {
			return
		}
		sock, err := c.dial(context.Background())
		if err != nil {
			logging.Warn("reconnect failed", zap.String("grill_id", c.grillID), zap.Error(err))
			continue
		}
		c.install(sock)
		logging.Info("cloud socket reconnected", zap.String("grill_id", c.grillID))
		return
	}
}

// newReconnectBackoff waits 1, 2, 4, 8 and 16 seconds, then every 30
// seconds for as long as it takes.
func newReconnectBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0
	return bo
}

func (c *Conn) keepRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
