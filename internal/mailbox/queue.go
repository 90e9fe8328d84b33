// Package mailbox provides the ordered, unbounded message queues that connect
// the control goroutine and the render goroutine.
//
// A Queue never blocks the sender. The receiver may block (Recv) or poll
// (TryRecv); Ready exposes a wakeup channel so a receiver can wait on a queue
// alongside other channels in a select.
package mailbox

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("mailbox: queue closed")

// Status is the outcome of a TryRecv call.
type Status int

const (
	// Received means a message was returned.
	Received Status = iota
	// Empty means the queue is open but has no messages.
	Empty
	// Closed means the queue is closed and fully drained.
	Closed
)

// Queue is a FIFO queue with no capacity limit. It is safe for one or more
// senders and a single receiver.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	head   int
	closed bool
	ready  chan struct{}
}

// New creates an empty open queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{ready: make(chan struct{}, 1)}
}

// Send appends v. It never blocks.
func (q *Queue[T]) Send(v T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	q.signal()
	return nil
}

// TryRecv returns the oldest message without blocking.
func (q *Queue[T]) TryRecv() (T, Status) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.head < len(q.items) {
		v := q.items[q.head]
		q.items[q.head] = zero
		q.head++
		if q.head == len(q.items) {
			q.items = q.items[:0]
			q.head = 0
		}
		return v, Received
	}
	if q.closed {
		return zero, Closed
	}
	return zero, Empty
}

// Recv blocks until a message is available, the queue is closed and
// drained (ErrClosed), or ctx is done (ctx.Err()).
func (q *Queue[T]) Recv(ctx context.Context) (T, error) {
	for {
		v, status := q.TryRecv()
		switch status {
		case Received:
			return v, nil
		case Closed:
			return v, ErrClosed
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Ready returns a channel that receives a value after Send or Close. A
// wakeup may be spurious; callers must still poll with TryRecv.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Len returns the number of queued messages.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Close stops further sends. Messages already queued are still delivered.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.signal()
}

// Discard closes the queue and drops everything still queued. It returns
// the number of dropped messages.
func (q *Queue[T]) Discard() int {
	q.mu.Lock()
	n := len(q.items) - q.head
	q.items, q.head = nil, 0
	wasClosed := q.closed
	q.closed = true
	q.mu.Unlock()

	if !wasClosed {
		q.signal()
	}
	return n
}

func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
