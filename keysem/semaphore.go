/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package keysem

import (
	"context"
	"math"
	"sync"

	"github.com/rs/xid"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

// Semaphore is a counting semaphore with a fixed capacity.
// It is shared between the Registry and all callers that obtained it,
// and stays usable after it has been removed from the Registry.
type Semaphore struct {
	id       xid.ID
	capacity uint
	weighted *semaphore.Weighted
	inUse    atomic.Int64
}

// Capacities above math.MaxInt64 can never be exhausted, so the underlying weighted semaphore is bounded by it.
func newSemaphore(capacity uint) *Semaphore {
	size := int64(math.MaxInt64)
	if uint64(capacity) < math.MaxInt64 {
		size = int64(capacity)
	}
	return &Semaphore{
		id:       xid.New(),
		capacity: capacity,
		weighted: semaphore.NewWeighted(size),
	}
}

// ID returns a unique identifier of the semaphore.
// Semaphores created for the same key before and after removal have different IDs.
func (s *Semaphore) ID() string {
	return s.id.String()
}

// Capacity returns the maximum number of permits that may be held at the same time.
func (s *Semaphore) Capacity() uint {
	return s.capacity
}

// InUse returns the number of permits that are currently held.
func (s *Semaphore) InUse() int {
	return int(s.inUse.Load())
}

// Acquire blocks until a permit is available or ctx is done.
// Waiters are admitted in FIFO order.
// On failure, ctx.Err() is returned and no permit is held.
func (s *Semaphore) Acquire(ctx context.Context) (*Permit, error) {
	if err := s.weighted.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	s.inUse.Inc()
	return &Permit{sem: s}, nil
}

// TryAcquire acquires a permit without blocking.
// It returns false if no permit is available at the moment.
func (s *Semaphore) TryAcquire() (*Permit, bool) {
	if !s.weighted.TryAcquire(1) {
		return nil, false
	}
	s.inUse.Inc()
	return &Permit{sem: s}, true
}

// Do acquires a permit, calls fn and releases the permit after fn returns (or panics).
func (s *Semaphore) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	permit, err := s.Acquire(ctx)
	if err != nil {
		return err
	}
	defer permit.Release()
	return fn(ctx)
}

// Permit is a unit of concurrency obtained from a Semaphore.
type Permit struct {
	sem  *Semaphore
	once sync.Once
}

// Release returns the permit to its semaphore. Only the first call has an effect.
func (p *Permit) Release() {
	p.once.Do(func() {
		p.sem.inUse.Dec()
		p.sem.weighted.Release(1)
	})
}
