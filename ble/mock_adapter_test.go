package ble

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

// mockCharacteristic records writes, lets tests push notifications, and
// serves reads from a preloaded buffer.
type mockCharacteristic struct {
	mu       sync.Mutex
	writes   [][]byte
	callback func([]byte)
	readBuf  []byte
	readMax  int // max bytes served per Read, 0 for no limit
	readErr  error
}

func (c *mockCharacteristic) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.writes = append(c.writes, cp)
	return nil
}

func (c *mockCharacteristic) Read(buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return 0, c.readErr
	}
	if len(c.readBuf) == 0 {
		return 0, nil
	}
	n := len(buf)
	if c.readMax > 0 && n > c.readMax {
		n = c.readMax
	}
	if n > len(c.readBuf) {
		n = len(c.readBuf)
	}
	copy(buf, c.readBuf[:n])
	c.readBuf = c.readBuf[n:]
	return n, nil
}

func (c *mockCharacteristic) Subscribe(cb func([]byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = cb
	return nil
}

// SimulateNotification delivers a notification to the subscriber.
func (c *mockCharacteristic) SimulateNotification(data []byte) {
	c.mu.Lock()
	cb := c.callback
	c.mu.Unlock()
	if cb != nil {
		cb(data)
	}
}

func (c *mockCharacteristic) loadRead(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readBuf = append([]byte(nil), data...)
}

func (c *mockCharacteristic) allWrites() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

func (c *mockCharacteristic) subscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callback != nil
}

// mockConnection simulates a connected grill controller.
type mockConnection struct {
	rpcData  *mockCharacteristic
	rpcTxCtl *mockCharacteristic
	rpcRxCtl *mockCharacteristic
	debugLog *mockCharacteristic

	mu           sync.Mutex
	disconnectCb func()
	disconnected bool
}

func newMockConnection() *mockConnection {
	return &mockConnection{
		rpcData:  &mockCharacteristic{},
		rpcTxCtl: &mockCharacteristic{},
		rpcRxCtl: &mockCharacteristic{},
		debugLog: &mockCharacteristic{},
	}
}

func (c *mockConnection) DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error) {
	switch charUUID {
	case CharRPCDataUUID:
		return c.rpcData, nil
	case CharRPCTxCtlUUID:
		return c.rpcTxCtl, nil
	case CharRPCRxCtlUUID:
		return c.rpcRxCtl, nil
	case CharDebugLogUUID:
		return c.debugLog, nil
	default:
		return nil, fmt.Errorf("mock: unknown characteristic UUID %q", charUUID)
	}
}

func (c *mockConnection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	return nil
}

func (c *mockConnection) OnDisconnect(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectCb = cb
}

// SimulateDisconnect triggers the disconnect callback, as the stack does
// when the peripheral drops.
func (c *mockConnection) SimulateDisconnect() {
	c.mu.Lock()
	cb := c.disconnectCb
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (c *mockConnection) isDisconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

// mockAdapter simulates the BLE stack.
type mockAdapter struct {
	mu         sync.Mutex
	connection *mockConnection
	connects   int
	connectErr error
}

func newMockAdapter() *mockAdapter {
	return &mockAdapter{}
}

func (a *mockAdapter) Enable() error { return nil }

func (a *mockAdapter) Connect(_ context.Context, _ string) (Connection, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connects++
	if a.connectErr != nil {
		return nil, a.connectErr
	}
	conn := newMockConnection()
	a.connection = conn
	return conn, nil
}

func (a *mockAdapter) latestConnection() *mockConnection {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connection
}

func (a *mockAdapter) connectCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connects
}

func TestMockAdapterImplementsInterface(t *testing.T) {
	var _ Adapter = (*mockAdapter)(nil)
}

func TestMockConnectionImplementsInterface(t *testing.T) {
	var _ Connection = (*mockConnection)(nil)
}

func TestMockCharacteristicImplementsInterface(t *testing.T) {
	var _ Characteristic = (*mockCharacteristic)(nil)
}
