// Package concurrency implements a FIFO-fair counting semaphore, grounded
// in the teacher's worker-pool-free Go-channel idiom (the rest of the pack
// leans on sync/channels rather than a dedicated semaphore type, so this is
// built from first principles: a bounded counter plus a waiter queue,
// release handing the permit straight to the head waiter to avoid
// starvation).
package concurrency

import (
	"context"
	"sync"
)

// Semaphore is a counting semaphore with capacity C >= 1. Release hands a
// permit directly to the oldest waiter (FIFO) if one exists, else returns
// the permit to the pool — this avoids the thundering-herd and
// out-of-order wakeups a condition-variable-broadcast implementation
// would allow.
type Semaphore struct {
	mu       sync.Mutex
	permits  int
	waiters  []chan struct{}
}

// New creates a Semaphore with the given capacity. Capacity < 1 is
// clamped to 1.
func New(capacity int) *Semaphore {
	if capacity < 1 {
		capacity = 1
	}
	return &Semaphore{permits: capacity}
}

// Acquire blocks until a permit is available or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	s.mu.Lock()
	if s.permits > 0 {
		s.permits--
		s.mu.Unlock()
		return nil
	}
	wait := make(chan struct{})
	s.waiters = append(s.waiters, wait)
	s.mu.Unlock()

	select {
	case <-wait:
		return nil
	case <-ctx.Done():
		s.abandon(wait)
		return ctx.Err()
	}
}

// abandon removes a waiter that gave up due to context cancellation. If
// the waiter had already been handed a permit (a release raced the
// cancellation), the permit is returned to the pool instead of being
// lost.
func (s *Semaphore) abandon(wait chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.waiters {
		if w == wait {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
	// Not found in the waiter queue: it was already signaled. Drain the
	// channel (non-blocking) and return its permit to the pool.
	select {
	case <-wait:
		s.permits++
	default:
	}
}

// Release returns a permit, handing it directly to the oldest waiter if
// one is queued.
func (s *Semaphore) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.waiters) > 0 {
		w := s.waiters[0]
		s.waiters = s.waiters[1:]
		close(w)
		return
	}
	s.permits++
}
