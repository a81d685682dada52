package kat

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestScheduler_RequiresCallback(t *testing.T) {
	s := NewDefaultCheckScheduler(0, true, zaptest.NewLogger(t))
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "callback must be registered")
}

func TestScheduler_RunOnce(t *testing.T) {
	s := NewDefaultCheckScheduler(0, true, zaptest.NewLogger(t))

	var calls atomic.Int32
	s.RegisterCallback(func() error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, int32(1), calls.Load())

	// Run-once mode spawns no goroutine; shutdown completes immediately.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.WaitForShutdown(ctx))
}

func TestScheduler_RunOncePropagatesCallbackError(t *testing.T) {
	s := NewDefaultCheckScheduler(0, true, zaptest.NewLogger(t))
	s.RegisterCallback(func() error { return assert.AnError })
	assert.ErrorIs(t, s.Start(context.Background()), assert.AnError)
}

func TestScheduler_Periodic(t *testing.T) {
	s := NewDefaultCheckScheduler(20*time.Millisecond, false, zaptest.NewLogger(t))

	var calls atomic.Int32
	s.RegisterCallback(func() error {
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))

	// One immediate run plus at least one periodic tick.
	require.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	assert.False(t, s.Stopped())
	require.NoError(t, s.Stop())
	assert.True(t, s.Stopped())

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.NoError(t, s.WaitForShutdown(waitCtx))

	// No further runs after Stop.
	after := calls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
}

func TestScheduler_StopIdempotent(t *testing.T) {
	s := NewDefaultCheckScheduler(time.Hour, false, zaptest.NewLogger(t))
	s.RegisterCallback(func() error { return nil })

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
}
