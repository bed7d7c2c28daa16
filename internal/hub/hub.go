// Package hub tracks open push connections and fans reload messages out to them.
package hub

import (
	"log/slog"
	"sync"
)

// Registry maps connection ids to their outboxes. Ids start at 1, increase
// monotonically, and are never reused. The zero value is not usable; call New.
type Registry struct {
	logger *slog.Logger
	conns  map[uint64]*Outbox
	next   uint64
	mu     sync.Mutex
}

// New returns an empty registry. If logger is nil, the default slog logger is used.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger.With("component", "hub"),
		conns:  make(map[uint64]*Outbox),
	}
}

// Register allocates the next id and a fresh outbox for it.
func (r *Registry) Register() (uint64, *Outbox) {
	out := newOutbox()

	r.mu.Lock()
	r.next++
	id := r.next
	r.conns[id] = out
	size := len(r.conns)
	r.mu.Unlock()

	r.logger.Debug("connection registered", slog.Uint64("id", id), slog.Int("active", size))
	return id, out
}

// Unregister removes id and closes its outbox. Removing an absent id is a no-op.
func (r *Registry) Unregister(id uint64) {
	r.mu.Lock()
	out, ok := r.conns[id]
	delete(r.conns, id)
	size := len(r.conns)
	r.mu.Unlock()

	if !ok {
		return
	}
	out.Close()
	r.logger.Debug("connection unregistered", slog.Uint64("id", id), slog.Int("active", size))
}

// Broadcast sends msg to every connection registered at the time of the call.
// A failed send is logged and left for that connection's own disconnect path.
func (r *Registry) Broadcast(msg []byte) {
	type target struct {
		id  uint64
		out *Outbox
	}

	r.mu.Lock()
	targets := make([]target, 0, len(r.conns))
	for id, out := range r.conns {
		targets = append(targets, target{id: id, out: out})
	}
	r.mu.Unlock()

	for _, t := range targets {
		if err := t.out.Send(msg); err != nil {
			r.logger.Debug("broadcast send failed", slog.Uint64("id", t.id), slog.Any("err", err))
		}
	}
}

// Len reports the number of registered connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
