// Package transport defines the connection contract between the PitBoss
// client and a grill, plus the RPC bookkeeping shared by every transport.
//
// # Transports
//
// A grill is reachable two ways: directly over Bluetooth LE (package ble) or
// through the vendor's cloud socket (package wss). Both speak the same
// JSON-RPC dialect; Transport abstracts over them so the client never cares
// which carries the bytes.
//
// # Call Tracking
//
// Commands carry a small integer id that wraps at 2048. Calls hands out ids,
// parks each in-flight command until its response frame arrives, and maps
// error frames onto RPCError. A transport feeds every inbound frame to
// Resolve; frames that match a pending command are consumed there, everything
// else is the transport's to route (pushed state, virtual data).
//
// # Push Delivery
//
// Controllers push state unprompted and at a pace of their own choosing.
// Notifier decouples subscriber callbacks from the transport read loop with a
// bounded queue that drops the oldest update under pressure, so a stalled
// subscriber can never back up a Bluetooth connection.
package transport
