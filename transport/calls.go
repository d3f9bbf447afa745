package transport

import (
	"context"
	"sync"
)

// Disposition says what Resolve did with an inbound frame.
type Disposition int

const (
	// Matched means the frame answered a pending command and was consumed.
	Matched Disposition = iota
	// Unmatched means the frame is not a response to any pending command.
	Unmatched
	// Malformed means the frame was not parseable JSON.
	Malformed
)

type callResult struct {
	result map[string]any
	err    error
}

// Calls tracks in-flight commands by id.
type Calls struct {
	mu      sync.Mutex
	lastID  int
	pending map[int]chan callResult
}

func NewCalls() *Calls {
	return &Calls{pending: make(map[int]chan callResult)}
}

// NextID returns the next command id. Ids wrap at 2048, matching the width
// the controller firmware accepts.
func (c *Calls) NextID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastID = (c.lastID + 1) % 2048
	return c.lastID
}

// Do registers id, runs transmit, and waits for the response or the context.
// A transmit error and a context end both unregister the id so a late frame
// for it is treated as unmatched.
func (c *Calls) Do(ctx context.Context, id int, transmit func() error) (map[string]any, error) {
	ch := make(chan callResult, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	if err := transmit(); err != nil {
		c.drop(id)
		return nil, err
	}

	select {
	case <-ctx.Done():
		c.drop(id)
		return nil, ctx.Err()
	case res := <-ch:
		return res.result, res.err
	}
}

// Resolve delivers a response frame to the command waiting on its id.
func (c *Calls) Resolve(f *Frame) Disposition {
	if f == nil || f.ID == nil {
		return Unmatched
	}
	c.mu.Lock()
	ch, ok := c.pending[*f.ID]
	if ok {
		delete(c.pending, *f.ID)
	}
	c.mu.Unlock()
	if !ok {
		return Unmatched
	}
	if f.Error != nil {
		ch <- callResult{err: f.Error}
	} else {
		ch <- callResult{result: DecodeResult(f.Result)}
	}
	return Matched
}

// ResolveRaw parses data and resolves it.
func (c *Calls) ResolveRaw(data []byte) Disposition {
	f, err := ParseFrame(data)
	if err != nil {
		return Malformed
	}
	return c.Resolve(f)
}

// FailAll delivers err to every pending command. Transports call it when the
// link drops.
func (c *Calls) FailAll(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[int]chan callResult)
	c.mu.Unlock()
	for _, ch := range pending {
		ch <- callResult{err: err}
	}
}

// Pending reports the number of in-flight commands.
func (c *Calls) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Calls) drop(id int) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// WithDefaultTimeout applies DefaultTimeout to a context that carries no
// deadline of its own.
func WithDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultTimeout)
}
