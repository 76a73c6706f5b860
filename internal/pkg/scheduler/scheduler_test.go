package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRunsOnCadence(t *testing.T) {
	var runs atomic.Int64
	task := NewTask("counter", 10*time.Millisecond, func(ctx context.Context) {
		runs.Add(1)
	})

	require.NoError(t, task.Start())
	time.Sleep(55 * time.Millisecond)
	require.NoError(t, task.Stop())

	got := runs.Load()
	assert.GreaterOrEqual(t, got, int64(3))

	// No further runs after Stop returns.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, got, runs.Load())
}

func TestTaskStartTwice(t *testing.T) {
	task := NewTask("noop", time.Hour, func(ctx context.Context) {})

	require.NoError(t, task.Start())
	assert.EqualError(t, task.Start(), "scheduler task is already running")
	require.NoError(t, task.Stop())
}

func TestTaskStopWhenNotRunning(t *testing.T) {
	task := NewTask("noop", time.Hour, func(ctx context.Context) {})

	assert.EqualError(t, task.Stop(), "scheduler task is not running")
}

func TestTaskStopCancelsRunContext(t *testing.T) {
	cancelled := make(chan struct{})
	started := make(chan struct{})

	task := NewTask("blocker", 5*time.Millisecond, func(ctx context.Context) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		select {
		case cancelled <- struct{}{}:
		default:
		}
	})

	require.NoError(t, task.Start())
	<-started
	require.NoError(t, task.Stop())

	select {
	case <-cancelled:
	default:
		t.Fatal("run context was not cancelled by Stop")
	}
}

func TestTaskRestart(t *testing.T) {
	var runs atomic.Int64
	task := NewTask("counter", 10*time.Millisecond, func(ctx context.Context) {
		runs.Add(1)
	})

	require.NoError(t, task.Start())
	time.Sleep(25 * time.Millisecond)
	require.NoError(t, task.Stop())

	require.NoError(t, task.Start())
	time.Sleep(25 * time.Millisecond)
	require.NoError(t, task.Stop())

	assert.GreaterOrEqual(t, runs.Load(), int64(2))
}
