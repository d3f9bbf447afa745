package ble

import "context"

// Mongoose OS GATT UUIDs exposed by the grill controller.
const (
	ServiceDebugUUID = "5f6d4f53-5f44-4247-5f53-56435f49445f"
	CharDebugLogUUID = "306d4f53-5f44-4247-5f6c-6f675f5f5f30"

	ServiceRPCUUID   = "5f6d4f53-5f52-5043-5f53-56435f49445f"
	CharRPCDataUUID  = "5f6d4f53-5f52-5043-5f64-6174615f5f5f"
	CharRPCTxCtlUUID = "5f6d4f53-5f52-5043-5f74-785f63746c5f"
	CharRPCRxCtlUUID = "5f6d4f53-5f52-5043-5f72-785f63746c5f"
)

// Characteristic is a BLE GATT characteristic.
type Characteristic interface {
	// Write sends data to the characteristic.
	Write(data []byte) error
	// Read reads the characteristic value into buf.
	Read(buf []byte) (int, error)
	// Subscribe registers a callback for notifications on this characteristic.
	Subscribe(callback func(data []byte)) error
}

// Connection is an active BLE link to a controller.
type Connection interface {
	// DiscoverCharacteristic finds a characteristic by UUID within a service.
	DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error)
	// Disconnect terminates the connection.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the connection drops.
	OnDisconnect(callback func())
}

// Adapter abstracts the BLE stack so tests can substitute a mock.
type Adapter interface {
	// Enable powers on the adapter.
	Enable() error
	// Connect establishes a connection to the controller at address.
	Connect(ctx context.Context, address string) (Connection, error)
}
