/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestCompositeUnit_StartStop(t *testing.T) {
	var running atomic.Int32
	units := []*mockUnit{newMockUnit("a", &running), newMockUnit("b", &running), newMockUnit("c", &running)}
	cu := NewCompositeUnit(units[0], units[1], units[2])

	fatalErr := make(chan error, 1)
	go cu.Start(fatalErr)
	require.Eventually(t, func() bool { return running.Load() == 3 }, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, cu.Stop(true))
	require.Eventually(t, func() bool { return running.Load() == 0 }, 3*time.Second, 10*time.Millisecond)
	for _, u := range units {
		require.Equal(t, int32(1), u.gracefulStopCalls.Load())
	}
	require.Empty(t, fatalErr)
}

func TestCompositeUnit_FatalErrorStopsOthers(t *testing.T) {
	var running atomic.Int32
	healthy := newMockUnit("healthy", &running)
	failing := newMockUnit("failing", &running)
	failing.startErr = errors.New("listen failed")
	cu := NewCompositeUnit(healthy, failing)

	fatalErr := make(chan error, 1)
	cu.Start(fatalErr)

	var cuErr *CompositeUnitError
	require.ErrorAs(t, <-fatalErr, &cuErr)
	require.Equal(t, []error{failing.startErr}, cuErr.UnitErrors)
	require.Equal(t, int32(1), healthy.stopCalls.Load())
	require.Zero(t, healthy.gracefulStopCalls.Load())
	require.Eventually(t, func() bool { return running.Load() == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestCompositeUnit_StopErrors(t *testing.T) {
	var running atomic.Int32
	a, b, c := newMockUnit("a", &running), newMockUnit("b", &running), newMockUnit("c", &running)
	a.stopErr = errors.New("internal error")
	c.stopErr = errors.New("internal error")
	cu := NewCompositeUnit(a, b, c)

	err := cu.Stop(true)
	var cuErr *CompositeUnitError
	require.ErrorAs(t, err, &cuErr)
	require.Len(t, cuErr.UnitErrors, 2)
	require.EqualError(t, err, "a: internal error; c: internal error")
}
