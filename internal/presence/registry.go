// Package presence tracks which users currently hold an active real-time
// channel. The registry is a routing optimization only: it lives for the
// lifetime of the process and the durable message store stays the source
// of truth for anything it forgets.
package presence

import "sync"

// Channel is the delivery endpoint bound to a user while connected.
type Channel interface {
	Push(payload []byte) error
}

// Registry associates a user identity with at most one active channel.
// Instances are constructed at the composition root and injected; there is
// no package-level registry.
type Registry struct {
	mu       sync.Mutex
	channels map[int64]Channel
}

func NewRegistry() *Registry {
	return &Registry{channels: make(map[int64]Channel)}
}

// Bind associates userID with ch. An existing binding for userID is
// overwritten: last connect wins, there is no multi-device fan-out.
func (r *Registry) Bind(userID int64, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[userID] = ch
}

// Unbind removes the binding for userID. Unbinding an identity with no
// current binding is a no-op.
func (r *Registry) Unbind(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, userID)
}

// UnbindChannel removes the binding for userID only while ch is still the
// bound channel, so the teardown of an overwritten connection cannot evict
// its successor.
func (r *Registry) UnbindChannel(userID int64, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channels[userID] == ch {
		delete(r.channels, userID)
	}
}

// Lookup returns the channel bound to userID. A missing binding is not an
// error: callers skip the real-time push and rely on the durable read path.
func (r *Registry) Lookup(userID int64) (Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[userID]
	return ch, ok
}
