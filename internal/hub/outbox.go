package hub

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when sending to, or receiving from, a closed Outbox.
var ErrClosed = errors.New("outbox closed")

// Outbox is an unbounded FIFO of outbound push messages for one connection.
// Any number of goroutines may Send; exactly one should call Next.
type Outbox struct {
	mu     sync.Mutex
	queue  [][]byte
	ready  chan struct{}
	done   chan struct{}
	closed bool
}

func newOutbox() *Outbox {
	return &Outbox{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Send enqueues msg. It never blocks.
func (o *Outbox) Send(msg []byte) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.queue = append(o.queue, msg)
	o.mu.Unlock()

	select {
	case o.ready <- struct{}{}:
	default:
	}
	return nil
}

// Next blocks until a message is queued, the outbox is closed, or ctx is done.
// Messages queued before Close are discarded once the outbox is closed.
func (o *Outbox) Next(ctx context.Context) ([]byte, error) {
	for {
		o.mu.Lock()
		if o.closed {
			o.mu.Unlock()
			return nil, ErrClosed
		}
		if len(o.queue) > 0 {
			msg := o.queue[0]
			o.queue[0] = nil
			o.queue = o.queue[1:]
			o.mu.Unlock()
			return msg, nil
		}
		o.mu.Unlock()

		select {
		case <-o.ready:
		case <-o.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Len reports the number of queued messages.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Close marks the outbox closed and wakes the receiver. It is idempotent.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	o.queue = nil
	close(o.done)
}

// Done is closed when the outbox is closed.
func (o *Outbox) Done() <-chan struct{} {
	return o.done
}
