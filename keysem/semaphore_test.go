/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package keysem

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestSemaphore_BoundedConcurrency(t *testing.T) {
	const capacity = 3
	sem := newSemaphore(capacity)

	permits := make([]*Permit, 0, capacity)
	for i := 0; i < capacity; i++ {
		p, err := sem.Acquire(context.Background())
		require.NoError(t, err)
		permits = append(permits, p)
	}
	require.Equal(t, capacity, sem.InUse())

	acquired := make(chan *Permit)
	go func() {
		p, err := sem.Acquire(context.Background())
		if err == nil {
			acquired <- p
		}
	}()

	select {
	case <-acquired:
		t.Fatal("permit acquired beyond capacity")
	case <-time.After(100 * time.Millisecond):
	}

	permits[0].Release()
	select {
	case p := <-acquired:
		p.Release()
	case <-time.After(time.Second):
		t.Fatal("waiter is not admitted after release")
	}
	for _, p := range permits[1:] {
		p.Release()
	}
	require.Equal(t, 0, sem.InUse())
}

func TestSemaphore_AcquireCanceled(t *testing.T) {
	sem := newSemaphore(1)
	held, err := sem.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	p, err := sem.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Nil(t, p)
	require.Equal(t, 1, sem.InUse())

	held.Release()
	p, ok := sem.TryAcquire()
	require.True(t, ok)
	p.Release()
}

func TestSemaphore_ZeroCapacity(t *testing.T) {
	sem := newSemaphore(0)
	_, ok := sem.TryAcquire()
	require.False(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := sem.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSemaphore_HugeCapacity(t *testing.T) {
	sem := New[string]().GetOrCreate("k", math.MaxUint64)
	require.Equal(t, uint(math.MaxUint64), sem.Capacity())

	p1, ok := sem.TryAcquire()
	require.True(t, ok)
	defer p1.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	p2, err := sem.Acquire(ctx)
	require.NoError(t, err)
	defer p2.Release()
	require.Equal(t, 2, sem.InUse())
}

func TestPermit_ReleaseIsIdempotent(t *testing.T) {
	sem := newSemaphore(1)
	p, ok := sem.TryAcquire()
	require.True(t, ok)

	p.Release()
	p.Release()
	require.Equal(t, 0, sem.InUse())

	p2, ok := sem.TryAcquire()
	require.True(t, ok)
	_, ok = sem.TryAcquire()
	require.False(t, ok, "double release must not add an extra permit")
	p2.Release()
}

func TestSemaphore_Do(t *testing.T) {
	t.Run("returns fn error and releases permit", func(t *testing.T) {
		sem := newSemaphore(1)
		fnErr := errors.New("fn failed")
		err := sem.Do(context.Background(), func(context.Context) error {
			assert.Equal(t, 1, sem.InUse())
			return fnErr
		})
		require.ErrorIs(t, err, fnErr)
		require.Equal(t, 0, sem.InUse())
	})

	t.Run("releases permit on panic", func(t *testing.T) {
		sem := newSemaphore(1)
		require.Panics(t, func() {
			_ = sem.Do(context.Background(), func(context.Context) error {
				panic("boom")
			})
		})
		require.Equal(t, 0, sem.InUse())
	})

	t.Run("fn is not called when context is done", func(t *testing.T) {
		sem := newSemaphore(1)
		held, ok := sem.TryAcquire()
		require.True(t, ok)
		defer held.Release()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		called := false
		err := sem.Do(ctx, func(context.Context) error {
			called = true
			return nil
		})
		require.ErrorIs(t, err, context.Canceled)
		require.False(t, called)
	})

	t.Run("limits concurrent calls", func(t *testing.T) {
		const capacity = 2
		sem := newSemaphore(capacity)
		var current, maxSeen atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = sem.Do(context.Background(), func(context.Context) error {
					n := current.Inc()
					for {
						prev := maxSeen.Load()
						if n <= prev || maxSeen.CompareAndSwap(prev, n) {
							break
						}
					}
					time.Sleep(10 * time.Millisecond)
					current.Dec()
					return nil
				})
			}()
		}
		wg.Wait()
		require.LessOrEqual(t, maxSeen.Load(), int32(capacity))
		require.Equal(t, 0, sem.InUse())
	})
}
