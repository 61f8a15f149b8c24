// ABOUTME: Two-tier semaphore scheduler: a swarm-wide global limit acquired before
// ABOUTME: each agent's local limit, released in reverse order, per spec §4.2/§5.

package agent

// Scheduler gates concurrent tool execution for one agent. The global
// semaphore is shared across every agent in a swarm (constructed once by the
// Swarm and handed to each Agent); the local semaphore is private to this agent.
type Scheduler struct {
	global chan struct{}
	local  chan struct{}
}

// NewScheduler builds a Scheduler over a swarm-shared global semaphore and a
// dedicated local semaphore of size localSize. Either may be nil/zero, in
// which case only the configured tier is acquired (spec §4.2 step 1: "If
// only one is configured, acquire only that").
func NewScheduler(global chan struct{}, localSize int) *Scheduler {
	s := &Scheduler{global: global}
	if localSize > 0 {
		s.local = make(chan struct{}, localSize)
	}
	return s
}

// NewGlobalSemaphore constructs the swarm-wide semaphore channel of the given size.
func NewGlobalSemaphore(size int) chan struct{} {
	if size <= 0 {
		return nil
	}
	return make(chan struct{}, size)
}

// acquire acquires the global semaphore, then the local one, blocking on
// either as needed. release (via the returned func) releases in reverse order.
func (s *Scheduler) acquire() func() {
	if s.global != nil {
		s.global <- struct{}{}
	}
	if s.local != nil {
		s.local <- struct{}{}
	}
	return func() {
		if s.local != nil {
			<-s.local
		}
		if s.global != nil {
			<-s.global
		}
	}
}

// acquireLocal acquires only this agent's local slot, per spec §5: a
// delegation call holds the caller's local slot for the duration of waiting
// on the delegate, but not the swarm-wide global slot — the delegate's own
// Runner.Ask acquires its own global+local pair independently when it
// dispatches its tool calls. Acquiring the global slot here too would let a
// long-running delegation chain starve unrelated agents of global capacity
// for no reason, since the caller isn't doing any tool work of its own while
// it waits.
func (s *Scheduler) acquireLocal() func() {
	if s.local != nil {
		s.local <- struct{}{}
	}
	return func() {
		if s.local != nil {
			<-s.local
		}
	}
}
