package ble

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/opengrill/pitboss/internal/logging"
	"github.com/opengrill/pitboss/transport"
)

const (
	// writeChunkSize is the largest write the firmware accepts on rpc_data.
	writeChunkSize = 20
	// lengthSize is the width of the tx_ctl and rx_ctl length frames.
	lengthSize = 4
	// maxFrameSize caps announced inbound frames; anything bigger is a
	// corrupt length, not a real RPC response.
	maxFrameSize = 1 << 20
)

const (
	stateLogPrefix = "<==PB: "
	vdataLogPrefix = "<==PBD: "
)

// Conn is a Bluetooth LE transport to a grill controller.
type Conn struct {
	adapter Adapter
	calls   *transport.Calls

	mu        sync.Mutex
	address   string
	enabled   bool
	connected bool
	conn      Connection
	rpcData   Characteristic
	rpcTxCtl  Characteristic
	done      chan struct{}

	// writeMu keeps one frame's length announcement and body writes from
	// interleaving with another's.
	writeMu sync.Mutex

	cbMu    sync.Mutex
	stateCb transport.StateCallback
	vdataCb transport.VDataCallback
}

var _ transport.Transport = (*Conn)(nil)

// NewConn builds a BLE transport for the controller at address. Nothing is
// sent until Connect.
func NewConn(adapter Adapter, address string) *Conn {
	return &Conn{
		adapter: adapter,
		address: address,
		calls:   transport.NewCalls(),
	}
}

// Address returns the controller's address.
func (c *Conn) Address() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address
}

// Connect establishes the link, retrying with backoff until ctx ends or 30
// seconds pass. It subscribes to the controller's rx_ctl and debug log
// characteristics and starts the frame reader.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	address := c.address
	enabled := c.enabled
	c.mu.Unlock()

	if !enabled {
		if err := c.adapter.Enable(); err != nil {
			return fmt.Errorf("enabling bluetooth: %w", err)
		}
		c.mu.Lock()
		c.enabled = true
		c.mu.Unlock()
	}

	var conn Connection
	connect := func() error {
		var err error
		conn, err = c.adapter.Connect(ctx, address)
		return err
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 8 * time.Second
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(connect, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("connecting to %s: %w", address, err)
	}

	if err := c.establish(conn); err != nil {
		conn.Disconnect()
		return err
	}
	logging.Info("grill connected", zap.String("address", address))
	return nil
}

func (c *Conn) establish(conn Connection) error {
	rpcData, err := conn.DiscoverCharacteristic(ServiceRPCUUID, CharRPCDataUUID)
	if err != nil {
		return fmt.Errorf("rpc data characteristic: %w", err)
	}
	rpcTxCtl, err := conn.DiscoverCharacteristic(ServiceRPCUUID, CharRPCTxCtlUUID)
	if err != nil {
		return fmt.Errorf("rpc tx_ctl characteristic: %w", err)
	}
	rpcRxCtl, err := conn.DiscoverCharacteristic(ServiceRPCUUID, CharRPCRxCtlUUID)
	if err != nil {
		return fmt.Errorf("rpc rx_ctl characteristic: %w", err)
	}
	debugLog, err := conn.DiscoverCharacteristic(ServiceDebugUUID, CharDebugLogUUID)
	if err != nil {
		return fmt.Errorf("debug log characteristic: %w", err)
	}

	incoming := make(chan int, 8)
	done := make(chan struct{})

	if err := rpcRxCtl.Subscribe(func(data []byte) { c.onRxCtl(incoming, data) }); err != nil {
		return fmt.Errorf("subscribing to rpc rx_ctl: %w", err)
	}
	if err := debugLog.Subscribe(c.onDebugLog); err != nil {
		return fmt.Errorf("subscribing to debug log: %w", err)
	}
	conn.OnDisconnect(c.onConnectionLost)

	c.mu.Lock()
	c.conn = conn
	c.rpcData = rpcData
	c.rpcTxCtl = rpcTxCtl
	c.connected = true
	c.done = done
	c.mu.Unlock()

	go c.readLoop(rpcData, incoming, done)
	return nil
}

// Disconnect tears the link down and fails in-flight commands.
func (c *Conn) Disconnect() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	conn := c.conn
	c.teardownLocked()
	c.mu.Unlock()

	c.calls.FailAll(transport.ErrNotConnected)
	return conn.Disconnect()
}

// ResetDevice drops the current link and connects again, optionally at a new
// address. Callers use it when the grill power-cycles and comes back as a
// fresh peripheral.
func (c *Conn) ResetDevice(ctx context.Context, address string) error {
	if err := c.Disconnect(); err != nil {
		logging.Debug("disconnect before reset", zap.Error(err))
	}
	if address != "" {
		c.mu.Lock()
		c.address = address
		c.mu.Unlock()
	}
	return c.Connect(ctx)
}

func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
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

// SendCommand sends one command and waits for the controller's response.
func (c *Conn) SendCommand(ctx context.Context, method string, params any) (map[string]any, error) {
	ctx, cancel := transport.WithDefaultTimeout(ctx)
	defer cancel()

	id := c.calls.NextID()
	frame, err := transport.NewCommand(id, method, params).Encode()
	if err != nil {
		return nil, err
	}
	return c.calls.Do(ctx, id, func() error { return c.writeFrame(frame) })
}

// SendCommandWithoutAnswer sends a command the controller never answers.
func (c *Conn) SendCommandWithoutAnswer(ctx context.Context, method string, params any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	frame, err := transport.NewNotification(method, params).Encode()
	if err != nil {
		return err
	}
	return c.writeFrame(frame)
}

func (c *Conn) writeFrame(frame []byte) error {
	c.mu.Lock()
	txCtl, data, connected := c.rpcTxCtl, c.rpcData, c.connected
	c.mu.Unlock()
	if !connected {
		return transport.ErrNotConnected
	}

	logging.LogFrame("ble", "send", frame)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := txCtl.Write(encodeLength(len(frame))); err != nil {
		return fmt.Errorf("writing tx_ctl: %w", err)
	}
	for off := 0; off < len(frame); off += writeChunkSize {
		end := off + writeChunkSize
		if end > len(frame) {
			end = len(frame)
		}
		if err := data.Write(frame[off:end]); err != nil {
			return fmt.Errorf("writing rpc data: %w", err)
		}
	}
	return nil
}

func (c *Conn) onRxCtl(incoming chan int, data []byte) {
	n, err := decodeLength(data)
	if err != nil {
		logging.Warn("bad rx_ctl frame", zap.Error(err))
		return
	}
	if n <= 0 || n > maxFrameSize {
		logging.Warn("implausible frame length announced", zap.Int("length", n))
		return
	}
	select {
	case incoming <- n:
	default:
		logging.Warn("reader backlogged, dropping announced frame", zap.Int("length", n))
	}
}

func (c *Conn) readLoop(rpcData Characteristic, incoming <-chan int, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case n := <-incoming:
			frame, err := readFull(rpcData, n)
			if err != nil {
				logging.Warn("reading rpc frame", zap.Error(err))
				continue
			}
			logging.LogFrame("ble", "recv", frame)
			switch c.calls.ResolveRaw(frame) {
			case transport.Matched:
			case transport.Unmatched:
				logging.Debug("frame matches no waiting command", zap.ByteString("frame", frame))
			case transport.Malformed:
				logging.Warn("discarding unparseable frame", zap.ByteString("frame", frame))
			}
		}
	}
}

func readFull(char Characteristic, n int) ([]byte, error) {
	frame := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(frame) < n {
		k, err := char.Read(buf[:n-len(frame)])
		if err != nil {
			return nil, err
		}
		if k == 0 {
			return nil, fmt.Errorf("short read: %d of %d bytes", len(frame), n)
		}
		frame = append(frame, buf[:k]...)
	}
	return frame, nil
}

// onDebugLog routes firmware log lines. State pushes and virtual data ride
// the debug log rather than the RPC characteristics.
func (c *Conn) onDebugLog(data []byte) {
	line := string(data)
	if payload, ok := cutLogLine(line, stateLogPrefix); ok {
		c.cbMu.Lock()
		cb := c.stateCb
		c.cbMu.Unlock()
		if cb != nil {
			cb(payload, "")
		}
		return
	}
	if payload, ok := cutLogLine(line, vdataLogPrefix); ok {
		c.cbMu.Lock()
		cb := c.vdataCb
		c.cbMu.Unlock()
		if cb != nil {
			cb(payload)
		}
		return
	}
	logging.Debug("device log", zap.String("line", line))
}

// cutLogLine extracts the payload from a "<prefix><payload> [<n>]" log
// line. The bracketed length must match the payload; a mismatch means the
// firmware truncated the line.
func cutLogLine(line, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(line, prefix)
	if !ok {
		return "", false
	}
	i := strings.LastIndexByte(rest, ' ')
	if i < 0 {
		return "", false
	}
	payload, trailer := rest[:i], rest[i+1:]
	if len(trailer) < 3 || trailer[0] != '[' || trailer[len(trailer)-1] != ']' {
		return "", false
	}
	n, err := strconv.Atoi(trailer[1 : len(trailer)-1])
	if err != nil || n != len(payload) {
		return "", false
	}
	return payload, true
}

func (c *Conn) onConnectionLost() {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	address := c.address
	c.teardownLocked()
	c.mu.Unlock()

	c.calls.FailAll(transport.ErrNotConnected)
	logging.Warn("grill connection lost", zap.String("address", address))
}

// teardownLocked clears the link state. Caller holds mu.
func (c *Conn) teardownLocked() {
	c.connected = false
	c.conn = nil
	c.rpcData = nil
	c.rpcTxCtl = nil
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
}

func encodeLength(n int) []byte {
	buf := make([]byte, lengthSize)
	binary.BigEndian.PutUint32(buf, uint32(n))
	return buf
}

func decodeLength(data []byte) (int, error) {
	if len(data) != lengthSize {
		return 0, fmt.Errorf("control frame is %d bytes, want %d", len(data), lengthSize)
	}
	return int(binary.BigEndian.Uint32(data)), nil
}
