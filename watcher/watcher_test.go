package watcher_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/primeflash/flasharb/chain/chaintest"
	"github.com/primeflash/flasharb/notify"
	"github.com/primeflash/flasharb/watcher"
)

func testConfig() watcher.Config {
	return watcher.Config{
		PollInterval:   5 * time.Millisecond,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

func TestWatcherTriggersCyclePerHeightAdvance(t *testing.T) {
	var height atomic.Uint64
	height.Store(100)
	client := &chaintest.Client{
		BlockNumberFn: func(context.Context) (uint64, error) {
			return height.Load(), nil
		},
	}

	var cycles atomic.Int32
	w := watcher.New(client, func(context.Context) error {
		cycles.Add(1)
		return nil
	}, testConfig(), notify.Nop{}, nil, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Same height: no cycle.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), cycles.Load())

	// One advance, one cycle.
	height.Store(101)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), cycles.Load())

	// Re-observing the same height stays a no-op.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), cycles.Load())

	height.Store(103)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(2), cycles.Load())

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcherFatalOnFirstHeightRead(t *testing.T) {
	client := &chaintest.Client{
		BlockNumberFn: func(context.Context) (uint64, error) {
			return 0, errors.New("transport down")
		},
	}

	w := watcher.New(client, func(context.Context) error {
		t.Fatal("cycle must not run")
		return nil
	}, testConfig(), notify.Nop{}, nil, zaptest.NewLogger(t))

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial block height")
}

func TestWatcherBacksOffOnCycleError(t *testing.T) {
	var height atomic.Uint64
	height.Store(1)
	client := &chaintest.Client{
		BlockNumberFn: func(context.Context) (uint64, error) {
			return height.Load(), nil
		},
	}

	var cycleTimes []time.Time
	cycleDone := make(chan struct{}, 8)
	w := watcher.New(client, func(context.Context) error {
		cycleTimes = append(cycleTimes, time.Now())
		cycleDone <- struct{}{}
		height.Add(1) // keep the head advancing so cycles keep firing
		return errors.New("boom")
	}, testConfig(), notify.Nop{}, nil, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		height.Add(1)
		done <- w.Run(ctx)
	}()

	// Wait for three failing cycles, then inspect the gaps.
	for i := 0; i < 3; i++ {
		select {
		case <-cycleDone:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for cycle")
		}
	}
	cancel()
	<-done

	require.GreaterOrEqual(t, len(cycleTimes), 3)
	firstGap := cycleTimes[1].Sub(cycleTimes[0])
	secondGap := cycleTimes[2].Sub(cycleTimes[1])

	cfg := testConfig()
	assert.GreaterOrEqual(t, firstGap, cfg.InitialBackoff)
	// Backoff escalates: the second failure sleeps twice as long.
	assert.GreaterOrEqual(t, secondGap, 2*cfg.InitialBackoff)
}

func TestWatcherNoBackoffAfterCleanCycle(t *testing.T) {
	var height atomic.Uint64
	height.Store(1)
	client := &chaintest.Client{
		BlockNumberFn: func(context.Context) (uint64, error) {
			return height.Load(), nil
		},
	}

	var cycleTimes []time.Time
	cycleDone := make(chan struct{}, 8)
	w := watcher.New(client, func(context.Context) error {
		cycleTimes = append(cycleTimes, time.Now())
		cycleDone <- struct{}{}
		height.Add(1)
		return nil
	}, testConfig(), notify.Nop{}, nil, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		height.Add(1)
		done <- w.Run(ctx)
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-cycleDone:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for cycle")
		}
	}
	cancel()
	<-done

	require.GreaterOrEqual(t, len(cycleTimes), 3)
	// Clean cycles proceed straight to the next poll; well under the
	// backoff interval.
	gap := cycleTimes[1].Sub(cycleTimes[0])
	assert.Less(t, gap, testConfig().InitialBackoff)
}
