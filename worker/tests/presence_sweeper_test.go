package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/teamloft/teamloft/worker"
)

type fakeSweepable struct {
	calls    atomic.Int64
	lastSeen atomic.Int64
	swept    chan struct{}
}

func newFakeSweepable() *fakeSweepable {
	return &fakeSweepable{swept: make(chan struct{}, 8)}
}

func (f *fakeSweepable) Sweep(olderThan time.Duration) int {
	f.calls.Add(1)
	f.lastSeen.Store(int64(olderThan))
	select {
	case f.swept <- struct{}{}:
	default:
	}
	return 1
}

func TestPresenceSweeper_SweepsBothTargets(t *testing.T) {
	presence := newFakeSweepable()
	throttle := newFakeSweepable()

	sweeper := worker.NewPresenceSweeper(presence, throttle, 1, 60*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Run(ctx)

	select {
	case <-presence.swept:
	case <-time.After(2 * time.Second):
		assert.Fail(t, "timed out waiting for presence sweep")
	}
	select {
	case <-throttle.swept:
	case <-time.After(2 * time.Second):
		assert.Fail(t, "timed out waiting for throttle sweep")
	}

	assert.Equal(t, int64(60*time.Second), presence.lastSeen.Load())
	assert.GreaterOrEqual(t, presence.calls.Load(), int64(1))
}

func TestPresenceSweeper_StopsOnShutdown(t *testing.T) {
	presence := newFakeSweepable()
	throttle := newFakeSweepable()

	sweeper := worker.NewPresenceSweeper(presence, throttle, 1, 60*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		assert.Fail(t, "sweeper did not stop on shutdown")
	}
	assert.Equal(t, int64(0), presence.calls.Load())
}
