package ble

import (
	"context"
	"fmt"
	"sync"

	"tinygo.org/x/bluetooth"
)

// SystemAdapter drives the host's BLE stack through tinygo.org/x/bluetooth.
// On Linux the address is the controller's MAC; on macOS it is the
// CoreBluetooth UUID the OS assigns to the peripheral.
type SystemAdapter struct {
	adapter *bluetooth.Adapter

	// mu protects the connections map.
	mu          sync.Mutex
	connections map[string]*systemConnection // keyed by normalized address
}

func NewSystemAdapter() *SystemAdapter {
	return &SystemAdapter{
		adapter:     bluetooth.DefaultAdapter,
		connections: make(map[string]*systemConnection),
	}
}

func (a *SystemAdapter) Enable() error {
	if err := a.adapter.Enable(); err != nil {
		return err
	}

	// The stack fires this with connected=false when a peripheral drops;
	// route it to the matching connection's OnDisconnect callback.
	a.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		key := device.Address.String()
		a.mu.Lock()
		conn, ok := a.connections[key]
		delete(a.connections, key)
		a.mu.Unlock()
		if ok {
			conn.fireDisconnect()
		}
	})

	return nil
}

func (a *SystemAdapter) Connect(ctx context.Context, address string) (Connection, error) {
	var addr bluetooth.Address
	addr.Set(address)

	// The stack's Connect blocks with its own timeout and cannot be
	// cancelled from here; wrap it so the caller's ctx is still honored.
	type connectResult struct {
		device bluetooth.Device
		err    error
	}
	ch := make(chan connectResult, 1)
	go func() {
		device, err := a.adapter.Connect(addr, bluetooth.ConnectionParams{})
		ch <- connectResult{device, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("connect to %s: %w", address, ctx.Err())
	case result := <-ch:
		if result.err != nil {
			return nil, fmt.Errorf("connect to %s: %w", address, result.err)
		}
		conn := &systemConnection{device: &result.device}
		a.mu.Lock()
		a.connections[addr.String()] = conn
		a.mu.Unlock()
		return conn, nil
	}
}

var _ Adapter = (*SystemAdapter)(nil)

type systemConnection struct {
	device *bluetooth.Device

	mu           sync.Mutex
	disconnectCb func()
}

func (c *systemConnection) DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error) {
	svcUUID, err := bluetooth.ParseUUID(serviceUUID)
	if err != nil {
		return nil, err
	}
	chrUUID, err := bluetooth.ParseUUID(charUUID)
	if err != nil {
		return nil, err
	}

	svcs, err := c.device.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil {
		return nil, fmt.Errorf("discover services: %w", err)
	}
	if len(svcs) == 0 {
		return nil, fmt.Errorf("service %s not found", serviceUUID)
	}

	chars, err := svcs[0].DiscoverCharacteristics([]bluetooth.UUID{chrUUID})
	if err != nil {
		return nil, fmt.Errorf("discover characteristics: %w", err)
	}
	if len(chars) == 0 {
		return nil, fmt.Errorf("characteristic %s not found", charUUID)
	}

	return &systemCharacteristic{char: &chars[0]}, nil
}

func (c *systemConnection) Disconnect() error {
	return c.device.Disconnect()
}

func (c *systemConnection) OnDisconnect(cb func()) {
	c.mu.Lock()
	c.disconnectCb = cb
	c.mu.Unlock()
}

func (c *systemConnection) fireDisconnect() {
	c.mu.Lock()
	cb := c.disconnectCb
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

var _ Connection = (*systemConnection)(nil)

type systemCharacteristic struct {
	char *bluetooth.DeviceCharacteristic
}

func (c *systemCharacteristic) Write(data []byte) error {
	_, err := c.char.WriteWithoutResponse(data)
	return err
}

func (c *systemCharacteristic) Read(buf []byte) (int, error) {
	return c.char.Read(buf)
}

func (c *systemCharacteristic) Subscribe(cb func([]byte)) error {
	return c.char.EnableNotifications(func(buf []byte) {
		cb(buf)
	})
}

var _ Characteristic = (*systemCharacteristic)(nil)
