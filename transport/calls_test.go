package transport

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestNextIDWraps(t *testing.T) {
	c := NewCalls()

	if got := c.NextID(); got != 1 {
		t.Fatalf("first NextID() = %d, want 1", got)
	}
	for i := 2; i <= 2047; i++ {
		if got := c.NextID(); got != i {
			t.Fatalf("NextID() = %d, want %d", got, i)
		}
	}
	if got := c.NextID(); got != 0 {
		t.Errorf("NextID() after 2047 = %d, want 0", got)
	}
	if got := c.NextID(); got != 1 {
		t.Errorf("NextID() after wrap = %d, want 1", got)
	}
}

// startCall runs Do on its own goroutine and returns once the command has
// been transmitted, so a Resolve in the test body cannot race registration.
func startCall(t *testing.T, c *Calls, ctx context.Context, id int) chan error {
	t.Helper()
	sent := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := c.Do(ctx, id, func() error {
			close(sent)
			return nil
		})
		done <- err
	}()
	select {
	case <-sent:
	case <-time.After(5 * time.Second):
		t.Fatal("command was never transmitted")
	}
	return done
}

func TestDoResolvesResult(t *testing.T) {
	c := NewCalls()
	id := c.NextID()

	sent := make(chan struct{})
	type out struct {
		res map[string]any
		err error
	}
	done := make(chan out, 1)
	go func() {
		res, err := c.Do(context.Background(), id, func() error {
			close(sent)
			return nil
		})
		done <- out{res, err}
	}()
	<-sent

	frame, err := ParseFrame([]byte(`{"id":1,"result":{"time":42}}`))
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	if d := c.Resolve(frame); d != Matched {
		t.Fatalf("Resolve() = %v, want Matched", d)
	}

	got := <-done
	if got.err != nil {
		t.Fatalf("Do() error = %v", got.err)
	}
	want := map[string]any{"time": float64(42)}
	if !reflect.DeepEqual(got.res, want) {
		t.Errorf("Do() result = %v, want %v", got.res, want)
	}
}

func TestDoResolvesRPCError(t *testing.T) {
	c := NewCalls()
	id := c.NextID()
	done := startCall(t, c, context.Background(), id)

	if d := c.ResolveRaw([]byte(`{"id":1,"error":{"code":1234,"message":"Oh noes"}}`)); d != Matched {
		t.Fatalf("ResolveRaw() = %v, want Matched", d)
	}

	err := <-done
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("Do() error = %T, want *RPCError", err)
	}
	if rpcErr.Code != 1234 {
		t.Errorf("Code = %d, want 1234", rpcErr.Code)
	}
	if got := rpcErr.Error(); got != "rpc error 1234: Oh noes" {
		t.Errorf("Error() = %q, want %q", got, "rpc error 1234: Oh noes")
	}
}

func TestRPCErrorDefaultMessage(t *testing.T) {
	err := &RPCError{Code: 7}
	if got := err.Error(); got != "rpc error 7: Unknown error" {
		t.Errorf("Error() = %q, want %q", got, "rpc error 7: Unknown error")
	}
	err = &RPCError{}
	if got := err.Error(); got != "rpc error: Unknown error" {
		t.Errorf("Error() = %q, want %q", got, "rpc error: Unknown error")
	}
}

func TestResolveDispositions(t *testing.T) {
	c := NewCalls()

	tests := []struct {
		name  string
		frame string
		want  Disposition
	}{
		{name: "no pending command", frame: `{"id":9,"result":{}}`, want: Unmatched},
		{name: "no id", frame: `{"result":{"x":1}}`, want: Unmatched},
		{name: "pushed status", frame: `{"status":["fe0b00"]}`, want: Unmatched},
		{name: "not json", frame: `{"id":`, want: Malformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.ResolveRaw([]byte(tt.frame)); got != tt.want {
				t.Errorf("ResolveRaw() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveConsumesSlot(t *testing.T) {
	c := NewCalls()
	id := c.NextID()
	done := startCall(t, c, context.Background(), id)

	frame := []byte(`{"id":1,"result":{}}`)
	if d := c.ResolveRaw(frame); d != Matched {
		t.Fatalf("first ResolveRaw() = %v, want Matched", d)
	}
	if err := <-done; err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	// A duplicate response for the same id has nowhere to go.
	if d := c.ResolveRaw(frame); d != Unmatched {
		t.Errorf("second ResolveRaw() = %v, want Unmatched", d)
	}
}

func TestDoContextCancelled(t *testing.T) {
	c := NewCalls()
	ctx, cancel := context.WithCancel(context.Background())
	id := c.NextID()
	done := startCall(t, c, ctx, id)

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
	if n := c.Pending(); n != 0 {
		t.Errorf("Pending() = %d, want 0", n)
	}
	if d := c.ResolveRaw([]byte(`{"id":1,"result":{}}`)); d != Unmatched {
		t.Errorf("ResolveRaw() after cancel = %v, want Unmatched", d)
	}
}

func TestDoTransmitError(t *testing.T) {
	c := NewCalls()
	boom := errors.New("radio silence")

	_, err := c.Do(context.Background(), c.NextID(), func() error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Do() error = %v, want %v", err, boom)
	}
	if n := c.Pending(); n != 0 {
		t.Errorf("Pending() = %d, want 0", n)
	}
}

func TestFailAll(t *testing.T) {
	c := NewCalls()
	first := startCall(t, c, context.Background(), c.NextID())
	second := startCall(t, c, context.Background(), c.NextID())

	c.FailAll(ErrNotConnected)

	for i, done := range []chan error{first, second} {
		if err := <-done; !errors.Is(err, ErrNotConnected) {
			t.Errorf("call %d error = %v, want ErrNotConnected", i, err)
		}
	}
	if n := c.Pending(); n != 0 {
		t.Errorf("Pending() = %d, want 0", n)
	}
}

func TestDecodeResult(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{name: "object", raw: `{"time":5}`, want: map[string]any{"time": float64(5)}},
		{name: "empty object", raw: `{}`, want: map[string]any{}},
		{name: "absent", raw: ``, want: nil},
		{name: "null", raw: `null`, want: nil},
		{name: "array", raw: `[1,2]`, want: nil},
		{name: "scalar", raw: `5`, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeResult(json.RawMessage(tt.raw))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeResult(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCommandEncode(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want map[string]any
	}{
		{
			name: "command with id",
			cmd:  NewCommand(5, "PB.GetState", map[string]any{}),
			want: map[string]any{"id": float64(5), "method": "PB.GetState", "params": map[string]any{}},
		},
		{
			name: "nil params become an object",
			cmd:  NewCommand(1, "RPC.Ping", nil),
			want: map[string]any{"id": float64(1), "method": "RPC.Ping", "params": map[string]any{}},
		},
		{
			name: "notification has no id",
			cmd:  NewNotification("Config.Save", map[string]any{"reboot": true}),
			want: map[string]any{"method": "Config.Save", "params": map[string]any{"reboot": true}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.cmd.Encode()
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			var got map[string]any
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Encode() = %v, want %v", got, tt.want)
			}
		})
	}

	// The id zero is a real id after the counter wraps and must stay on
	// the wire.
	data, err := NewCommand(0, "PB.GetTime", nil).Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if id, ok := got["id"]; !ok || id != float64(0) {
		t.Errorf("id = %v, want 0 present", got["id"])
	}
}

func TestParseFrameStatus(t *testing.T) {
	f, err := ParseFrame([]byte(`{"status":["fe0b01","fe0c02"],"app_id":"abc"}`))
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	if f.ID != nil {
		t.Errorf("ID = %v, want nil", *f.ID)
	}
	if f.AppID != "abc" {
		t.Errorf("AppID = %q, want abc", f.AppID)
	}
	if !reflect.DeepEqual(f.Status, []string{"fe0b01", "fe0c02"}) {
		t.Errorf("Status = %v, want [fe0b01 fe0c02]", f.Status)
	}
}

func TestWithDefaultTimeout(t *testing.T) {
	ctx, cancel := WithDefaultTimeout(context.Background())
	defer cancel()
	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("Deadline() ok = false, want true")
	}
	if remaining := time.Until(deadline); remaining > DefaultTimeout || remaining < DefaultTimeout-time.Minute/2 {
		t.Errorf("deadline %v from now, want about %v", remaining, DefaultTimeout)
	}

	parent, parentCancel := context.WithTimeout(context.Background(), time.Second)
	defer parentCancel()
	ctx2, cancel2 := WithDefaultTimeout(parent)
	defer cancel2()
	d1, _ := parent.Deadline()
	d2, _ := ctx2.Deadline()
	if !d1.Equal(d2) {
		t.Errorf("deadline changed from %v to %v, want unchanged", d1, d2)
	}
}
