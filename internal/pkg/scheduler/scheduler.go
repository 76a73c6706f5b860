package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task runs a function on a fixed cadence until stopped. The function
// receives a context that is cancelled by Stop, so a long-running tick can
// bail out instead of delaying shutdown.
type Task struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTask(name string, interval time.Duration, run func(ctx context.Context)) *Task {
	return &Task{
		name:     name,
		interval: interval,
		run:      run,
	}
}

// Start launches the ticker loop in its own goroutine.
func (t *Task) Start() error {
	if t.ctx != nil {
		return errors.New("scheduler task is already running")
	}

	t.ctx, t.cancel = context.WithCancel(context.Background())

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.loop()
	}()

	zap.L().Info("scheduler task started",
		zap.String("task", t.name),
		zap.Duration("interval", t.interval),
	)

	return nil
}

// Stop cancels the loop and waits for any in-flight run to return.
func (t *Task) Stop() error {
	if t.ctx == nil {
		return errors.New("scheduler task is not running")
	}

	t.cancel()
	t.wg.Wait()

	t.ctx = nil
	t.cancel = nil

	zap.L().Info("scheduler task stopped", zap.String("task", t.name))

	return nil
}

func (t *Task) loop() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.run(t.ctx)
		case <-t.ctx.Done():
			return
		}
	}
}
