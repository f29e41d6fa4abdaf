package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsJobs(t *testing.T) {
	p := NewPool(3, 10, nil)
	p.Start(context.Background())

	var n atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(Func{JobName: "inc", Fn: func(context.Context) error {
			n.Add(1)
			return nil
		}}))
	}

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(10), n.Load())
	assert.Equal(t, int64(10), p.Stats().Completed)
}

func TestPool_QueueFull(t *testing.T) {
	p := NewPool(1, 1, nil)
	block := make(chan struct{})
	started := make(chan struct{})
	p.Start(context.Background())

	require.NoError(t, p.Submit(Func{JobName: "block", Fn: func(context.Context) error {
		close(started)
		<-block
		return nil
	}}))
	<-started
	require.NoError(t, p.Submit(Func{JobName: "queued", Fn: func(context.Context) error { return nil }}))

	err := p.Submit(Func{JobName: "overflow", Fn: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrQueueFull)

	close(block)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	p := NewPool(1, 1, nil)
	p.Start(context.Background())
	require.NoError(t, p.Shutdown(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()), "second shutdown is a no-op")

	err := p.Submit(Func{JobName: "late", Fn: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_ShutdownDeadlineCancelsJobs(t *testing.T) {
	p := NewPool(1, 4, nil)
	p.Start(context.Background())

	var cancelled atomic.Bool
	require.NoError(t, p.Submit(Func{JobName: "slow", Fn: func(ctx context.Context) error {
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}}))
	var ranLate atomic.Bool
	require.NoError(t, p.Submit(Func{JobName: "never", Fn: func(context.Context) error {
		ranLate.Store(true)
		return nil
	}}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := p.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, cancelled.Load())
	assert.False(t, ranLate.Load(), "queued jobs are dropped after cancellation")
	assert.Equal(t, int64(2), p.Stats().Failed)
}

func TestPool_FailuresAndPanicsAreContained(t *testing.T) {
	p := NewPool(2, 4, nil)
	p.Start(context.Background())

	require.NoError(t, p.Submit(Func{JobName: "err", Fn: func(context.Context) error { return errors.New("boom") }}))
	require.NoError(t, p.Submit(Func{JobName: "panic", Fn: func(context.Context) error { panic("bad") }}))
	require.NoError(t, p.Submit(Func{JobName: "ok", Fn: func(context.Context) error { return nil }}))

	require.NoError(t, p.Shutdown(context.Background()))
	st := p.Stats()
	assert.Equal(t, int64(2), st.Failed)
	assert.Equal(t, int64(1), st.Completed)
	assert.Zero(t, st.Running)
}
