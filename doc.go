// Package pitboss is a client for Pit Boss pellet grill controllers.
//
// A PitBoss speaks the controller's JSON-RPC dialect over one of two
// transports: Bluetooth LE (package ble) when within radio range, or the
// vendor's websocket relay (package wss) from anywhere. The grill model name
// selects a definition from the embedded registry (package grills), which
// determines how telemetry frames decode and which commands the control
// board accepts.
//
// # Connecting
//
//	conn := wss.NewConn("grill-id")
//	pb, err := pitboss.New(conn, "PBV4PS2", pitboss.WithPassword("secret"))
//	if err != nil {
//		return err
//	}
//	if err := pb.Start(ctx); err != nil {
//		return err
//	}
//	defer pb.Stop()
//
// # State
//
// The controller pushes telemetry on its own schedule. SubscribeState
// registers a callback for the merged state map; updates are delivered on a
// dispatch goroutine so a slow subscriber never stalls the transport read
// loop. GetState polls the same data on demand without touching the
// retained push state.
//
// # Authentication
//
// Password-protected grills expect a "psw" proof on most calls, built by
// encoding the password under an uptime-derived rotating key (package
// codec). WithPassword arms this; the device uptime behind the key is
// fetched via PB.GetTime and cached briefly so bursts of commands share one
// reading.
package pitboss
