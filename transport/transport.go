package transport

import (
	"context"
	"encoding/json"
	"time"
)

// DefaultTimeout bounds a command round-trip when the caller's context
// carries no deadline of its own.
const DefaultTimeout = 60 * time.Second

// StateCallback receives pushed controller state. A transport fills whichever
// slots the push carried; unused slots are empty strings.
type StateCallback func(status, temperatures string)

// VDataCallback receives pushed virtual data as raw JSON.
type VDataCallback func(payload string)

// Transport carries JSON-RPC commands to a grill and routes its pushes.
type Transport interface {
	// Connect establishes the link. It returns once commands can be sent.
	Connect(ctx context.Context) error

	// Disconnect tears the link down and fails any in-flight commands.
	Disconnect() error

	// IsConnected reports whether commands can currently be sent.
	IsConnected() bool

	// SendCommand sends one command and waits for its response. The
	// result is the response frame's result object, nil when the frame
	// carried none.
	SendCommand(ctx context.Context, method string, params any) (map[string]any, error)

	// SendCommandWithoutAnswer sends a command that never gets a
	// response frame, such as a config save that reboots the controller.
	SendCommandWithoutAnswer(ctx context.Context, method string, params any) error

	// OnState registers the callback for pushed controller state.
	OnState(cb StateCallback)

	// OnVData registers the callback for pushed virtual data.
	OnVData(cb VDataCallback)
}

// Command is one outbound RPC frame. Commands sent without an id never
// receive a response.
type Command struct {
	ID     *int   `json:"id,omitempty"`
	Method string `json:"method"`
	Params any    `json:"params"`
	AppID  string `json:"app_id,omitempty"`
}

// NewCommand builds a command expecting a response under id.
func NewCommand(id int, method string, params any) Command {
	return Command{ID: &id, Method: method, Params: normalizeParams(params)}
}

// NewNotification builds a fire-and-forget command.
func NewNotification(method string, params any) Command {
	return Command{Method: method, Params: normalizeParams(params)}
}

// Encode renders the command as a JSON frame.
func (c Command) Encode() ([]byte, error) {
	return json.Marshal(c)
}

// normalizeParams keeps "params" an object on the wire; the firmware's RPC
// layer chokes on null.
func normalizeParams(params any) any {
	if params == nil {
		return map[string]any{}
	}
	return params
}

// Frame is one inbound message. Depending on the transport it may be a
// command response (id set), a batch of pushed status messages, or virtual
// data (result without id).
type Frame struct {
	ID     *int            `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
	AppID  string          `json:"app_id"`
	Status []string        `json:"status"`
}

// ParseFrame decodes one inbound frame.
func ParseFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// DecodeResult unpacks a frame's result into a map. A result that is absent
// or not a JSON object decodes to nil.
func DecodeResult(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
