package presence

import (
	"context"
	"time"

	"codeberg.org/docflow/server/internal/logger"
)

// evicts stale cursors and announces each one; returns the eviction count
type Sweeper interface {
	Sweep(now time.Time) int
}

// periodically sweeps one room's presence
type Reaper struct {
	interval time.Duration
	sweeper  Sweeper
	clock    Clock
}

// owned handle to a running reaper
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// creates a new reaper; a non-positive interval uses the default
func NewReaper(interval time.Duration, sweeper Sweeper, clock Clock) *Reaper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	if clock == nil {
		clock = time.Now
	}

	return &Reaper{
		interval: interval,
		sweeper:  sweeper,
		clock:    clock,
	}
}

// sweeps on every tick until ctx is cancelled
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := r.sweeper.Sweep(r.clock()); evicted > 0 {
				logger.Debug("reaper evicted stale cursors", "count", evicted)
			}
		}
	}
}

// runs the reaper in its own goroutine bound to parent
func (r *Reaper) Start(parent context.Context) *Task {
	ctx, cancel := context.WithCancel(parent)
	task := &Task{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(task.done)
		r.Run(ctx)
	}()

	return task
}

// cancels the reaper and waits for it to exit
func (t *Task) Stop() {
	t.cancel()
	<-t.done
}

// closed once the reaper has exited
func (t *Task) Done() <-chan struct{} {
	return t.done
}
