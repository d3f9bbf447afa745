package transport

import (
	"sync"

	"github.com/opengrill/pitboss/internal/logging"
)

// defaultQueueSize is how many undelivered pushes a Notifier holds before it
// starts dropping the oldest.
const defaultQueueSize = 32

// Notifier runs subscriber callbacks on its own goroutine so a slow
// subscriber cannot stall a transport's read loop. The queue is bounded;
// under pressure the oldest undelivered notification is dropped, since a
// fresher controller state supersedes a stale one.
type Notifier struct {
	mu      sync.Mutex
	queue   chan func()
	done    chan struct{}
	started bool
}

func NewNotifier(capacity int) *Notifier {
	if capacity <= 0 {
		capacity = defaultQueueSize
	}
	return &Notifier{queue: make(chan func(), capacity)}
}

// Start launches the delivery goroutine. Starting a started Notifier is a
// no-op.
func (n *Notifier) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return
	}
	n.started = true
	n.done = make(chan struct{})
	go n.run(n.queue, n.done)
}

// Stop halts delivery. Queued notifications are kept for a later Start.
// Stopping a stopped Notifier is a no-op.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.started {
		return
	}
	n.started = false
	close(n.done)
}

// Post enqueues one notification, dropping the oldest queued one when full.
// Posts on a stopped Notifier are discarded.
func (n *Notifier) Post(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.started {
		return
	}
	for {
		select {
		case n.queue <- fn:
			return
		default:
		}
		select {
		case <-n.queue:
			logging.Debug("notification queue full, dropping oldest")
		default:
		}
	}
}

func (n *Notifier) run(queue chan func(), done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case fn := <-queue:
			fn()
		}
	}
}
