// Package worker runs background jobs on a fixed number of goroutines fed
// by a bounded queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abhisek/prepforge/internal/logger"
)

var (
	// ErrQueueFull is returned by Submit when the queue has no free slot.
	ErrQueueFull = errors.New("worker: queue full")

	// ErrPoolClosed is returned by Submit after Shutdown.
	ErrPoolClosed = errors.New("worker: pool closed")
)

// Job is a unit of background work. Run must return promptly once ctx is
// cancelled.
type Job interface {
	Run(context.Context) error
	Name() string
}

// Func adapts a function to Job.
type Func struct {
	JobName string
	Fn      func(context.Context) error
}

func (f Func) Run(ctx context.Context) error { return f.Fn(ctx) }
func (f Func) Name() string                  { return f.JobName }

type Pool struct {
	jobs    chan Job
	wg      sync.WaitGroup
	workers int
	cancel  context.CancelFunc
	log     *logger.Logger

	mu     sync.RWMutex
	closed bool

	running   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	Queued    int
	Running   int64
	Completed int64
	Failed    int64
}

func NewPool(workers, queueSize int, log *logger.Logger) *Pool {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("worker-pool")
	log.Debug("creating worker pool", "workers", workers, "queue_size", queueSize)
	return &Pool{
		jobs:    make(chan Job, queueSize),
		workers: workers,
		log:     log,
	}
}

// Start launches the workers. Jobs run with a context derived from ctx
// that is cancelled when ctx is or when Shutdown gives up waiting.
func (p *Pool) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.log.Info("starting worker pool", "workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			workerLog := p.log.With("worker_id", id)
			for job := range p.jobs {
				if ctx.Err() != nil {
					workerLog.Debug("dropping job after cancellation", "job", job.Name())
					p.failed.Add(1)
					continue
				}
				p.run(ctx, workerLog, job)
			}
			workerLog.Debug("worker shutting down")
		}(i + 1)
	}
}

func (p *Pool) run(ctx context.Context, log *logger.Logger, job Job) {
	p.running.Add(1)
	defer p.running.Add(-1)

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return job.Run(ctx)
	}()

	if err != nil {
		p.failed.Add(1)
		log.Warn("job failed", "job", job.Name(), "elapsed", time.Since(start), "error", err)
		return
	}
	p.completed.Add(1)
	log.Debug("job completed", "job", job.Name(), "elapsed", time.Since(start))
}

// Submit enqueues job without blocking.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for queued and running jobs to
// finish. If ctx ends first, in-flight jobs are cancelled, the remaining
// queue is discarded and ctx's error is returned once workers exit.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.log.Info("stopping worker pool", "queued", len(p.jobs))

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if p.cancel != nil {
			p.cancel()
		}
		p.log.Info("worker pool stopped")
		return nil
	case <-ctx.Done():
		if p.cancel != nil {
			p.cancel()
		}
		<-done
		p.log.Warn("worker pool stopped before queue drained", "error", ctx.Err())
		return ctx.Err()
	}
}

// Stats returns current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Queued:    len(p.jobs),
		Running:   p.running.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}
