// Package wss connects to a Pit Boss grill through the vendor's cloud
// socket, for grills that are online over Wi-Fi rather than in Bluetooth
// range.
//
// The socket relays frames between every client of a grill and the grill
// itself. Commands carry the session's app id so responses can be routed
// back: a frame stamped with a different app id belongs to someone else's
// session and is dropped without further inspection. Frames without an app
// id, such as pushed status batches, are for everyone.
//
// A frame is dispatched by shape: a "status" array fans out to the state
// callback one element at a time, an "id" resolves the matching in-flight
// command, and a bare "result" with no id is virtual data.
//
// # Reconnection
//
// Unlike the Bluetooth transport, the cloud socket heals itself: when the
// link drops while the connection is supposed to be up, it redials on an
// exponential schedule of 1, 2, 4, 8 and 16 seconds, then every 30 seconds
// until the socket is back or Disconnect is called. Commands in flight when
// the link drops fail with ErrNotConnected; callers retry once reconnected.
package wss
