package workers

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"codeberg.org/docflow/server/internal/logger"
)

var (
	ErrQueueFull = errors.New("workers: queue full")
	ErrStopped   = errors.New("workers: pool stopped")
)

// a unit of storage work; ctx carries the per-job timeout
type Job func(ctx context.Context)

type Options struct {
	Workers     int
	QueueSize   int           // per worker
	MaxInflight int64         // concurrent jobs across all workers
	Timeout     time.Duration // per job, zero means none
}

// runs storage jobs off the connection goroutines.
// jobs with the same key land on the same worker and run in submission order
type Pool struct {
	queues  []chan Job
	sem     *semaphore.Weighted
	timeout time.Duration

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// creates a new pool and starts its workers
func NewPool(opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}

	if opts.MaxInflight <= 0 {
		opts.MaxInflight = int64(opts.Workers)
	}

	p := &Pool{
		queues:  make([]chan Job, opts.Workers),
		sem:     semaphore.NewWeighted(opts.MaxInflight),
		timeout: opts.Timeout,
	}

	for i := range p.queues {
		p.queues[i] = make(chan Job, opts.QueueSize)
		p.wg.Add(1)
		go p.worker(i, p.queues[i])
	}

	return p
}

// queues fn on the worker owning key without blocking
func (p *Pool) Submit(key string, fn Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrStopped
	}

	select {
	case p.queues[p.shard(key)] <- fn:
		return nil
	default:
		return ErrQueueFull
	}
}

// stops accepting jobs and waits for queued ones to finish
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}

	p.stopped = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()

	p.wg.Wait()
	logger.Info("storage worker pool stopped")
}

func (p *Pool) shard(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key)) //nolint:errcheck // fnv never fails
	return int(h.Sum32() % uint32(len(p.queues)))
}

func (p *Pool) worker(id int, queue <-chan Job) {
	defer p.wg.Done()

	for job := range queue {
		p.run(id, job)
	}
}

func (p *Pool) run(id int, job Job) {
	// acquire cannot fail with a background context
	_ = p.sem.Acquire(context.Background(), 1)
	defer p.sem.Release(1)

	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("storage job panicked", "worker", id, "panic", r)
		}
	}()

	job(ctx)
}
