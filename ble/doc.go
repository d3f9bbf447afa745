// Package ble connects to a Pit Boss grill directly over Bluetooth LE.
//
// The controller runs Mongoose OS and exposes its RPC service over GATT.
// Frames are JSON, the same dialect the cloud socket speaks, but the
// characteristics impose their own framing:
//
//   - rpc_tx_ctl: the client writes a 4-byte big-endian frame length here
//     before streaming the frame body.
//   - rpc_data: the frame body travels in write chunks of at most 20 bytes.
//     Inbound frame bodies are read back from the same characteristic.
//   - rpc_rx_ctl: the controller notifies a 4-byte big-endian length here
//     when it has a frame for us to read.
//
// Pushed state never arrives on the RPC characteristics. The firmware prints
// it on the debug log characteristic as lines of the form
//
//	<==PB: <hex payload> [<length>]
//
// where the bracketed length must match the payload; mismatches are truncated
// lines and are dropped. Virtual data lines use the <==PBD: prefix.
//
// # Adapters
//
// Conn drives an Adapter rather than the bluetooth stack directly so tests
// can substitute a mock. SystemAdapter is the real one, backed by
// tinygo.org/x/bluetooth.
//
// # Connection Loss
//
// A dropped link fails all in-flight commands with ErrNotConnected and stays
// down until the caller reconnects with Connect or swaps in a fresh device
// handle with ResetDevice. Reconnect policy belongs to the application.
package ble
