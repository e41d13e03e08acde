/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package keysem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// rendezvous lets a task inside a critical section wait until the given number of tasks are inside at once.
type rendezvous struct {
	arrived chan struct{}
	want    int
}

func newRendezvous(want int) *rendezvous {
	return &rendezvous{arrived: make(chan struct{}, want), want: want}
}

// arrive reports whether all tasks met before the timeout.
func (r *rendezvous) arrive(timeout time.Duration) bool {
	r.arrived <- struct{}{}
	deadline := time.After(timeout)
	for {
		if len(r.arrived) >= r.want {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(time.Millisecond):
		}
	}
}

func TestScenario_SameKeyRunsSequentially(t *testing.T) {
	const work = 100 * time.Millisecond
	registry := New[string]()

	startedAt := time.Now()
	eg, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 2; i++ {
		eg.Go(func() error {
			return registry.GetOrCreate("foo", 1).Do(ctx, func(context.Context) error {
				time.Sleep(work)
				return nil
			})
		})
	}
	require.NoError(t, eg.Wait())
	require.GreaterOrEqual(t, time.Since(startedAt), 2*work)
}

func TestScenario_DistinctKeysRunConcurrently(t *testing.T) {
	registry := New[string]()
	meeting := newRendezvous(2)

	eg, ctx := errgroup.WithContext(context.Background())
	met := make(chan bool, 2)
	for _, key := range []string{"foo", "bar"} {
		key := key
		eg.Go(func() error {
			return registry.GetOrCreate(key, 1).Do(ctx, func(context.Context) error {
				met <- meeting.arrive(5 * time.Second)
				return nil
			})
		})
	}
	require.NoError(t, eg.Wait())
	close(met)
	for ok := range met {
		require.True(t, ok, "critical sections for distinct keys did not overlap")
	}
}

func TestScenario_WithinCapacityRunsConcurrently(t *testing.T) {
	registry := New[string]()
	meeting := newRendezvous(3)

	eg, ctx := errgroup.WithContext(context.Background())
	met := make(chan bool, 3)
	for i := 0; i < 3; i++ {
		eg.Go(func() error {
			return registry.GetOrCreate("foo", 5).Do(ctx, func(context.Context) error {
				met <- meeting.arrive(5 * time.Second)
				return nil
			})
		})
	}
	require.NoError(t, eg.Wait())
	close(met)
	for ok := range met {
		require.True(t, ok, "three holders of a 5-permit semaphore did not overlap")
	}
	require.Equal(t, uint(5), registry.GetOrCreate("foo", 1).Capacity())
}

func TestScenario_HolderOfOneKeyNeverBlocksAnother(t *testing.T) {
	registry := New[string]()
	held, err := registry.GetOrCreate("k1", 1).Acquire(context.Background())
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p, err := registry.GetOrCreate("k2", 1).Acquire(ctx)
	require.NoError(t, err)
	p.Release()
}
