// ABOUTME: Priority-sorted hook registry: registration, lookup by event, and sorted dispatch order.
// ABOUTME: Registrations are frozen for a swarm execution once the subscriber list is frozen (spec invariant).

package hook

import (
	"sort"
	"sync"
)

// Registry holds hook registrations grouped by event.
type Registry struct {
	mu    sync.RWMutex
	byEvt map[Event][]*Registration
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byEvt: make(map[Event][]*Registration)}
}

// Register adds a hook registration. Within an event, registrations run in
// descending priority order; ties preserve registration order (stable sort).
func (r *Registry) Register(reg *Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byEvt[reg.Event] = append(r.byEvt[reg.Event], reg)
	sort.SliceStable(r.byEvt[reg.Event], func(i, j int) bool {
		return r.byEvt[reg.Event][i].Priority > r.byEvt[reg.Event][j].Priority
	})
}

// For returns the registrations bound to event, in dispatch order.
func (r *Registry) For(event Event) []*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Registration, len(r.byEvt[event]))
	copy(out, r.byEvt[event])
	return out
}
