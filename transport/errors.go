package transport

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when a command is sent on a transport that has
// no live link.
var ErrNotConnected = errors.New("not connected")

// ErrGrillUnavailable is returned when the cloud socket reports the grill is
// not online.
var ErrGrillUnavailable = errors.New("grill unavailable")

// RPCError is an error frame returned by the controller.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "Unknown error"
	}
	if e.Code != 0 {
		return fmt.Sprintf("rpc error %d: %s", e.Code, msg)
	}
	return "rpc error: " + msg
}
