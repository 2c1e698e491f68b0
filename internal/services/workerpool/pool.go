// Package workerpool runs background tasks on a fixed number of goroutines
// fed by a bounded queue.
package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vigil-worker-go/internal/metrics"
)

var (
	ErrQueueFull = errors.New("worker pool queue is full")
	ErrClosed    = errors.New("worker pool is closed")
)

// Task is a unit of background work. The context is cancelled when the pool
// shuts down.
type Task func(ctx context.Context)

type job struct {
	name string
	run  Task
}

// Pool is safe for concurrent use.
type Pool struct {
	queue   chan job
	workers int
	logger  zerolog.Logger

	quit     chan struct{}
	quitOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	running   atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	Workers   int   `json:"workers"`
	Queued    int   `json:"queued"`
	QueueSize int   `json:"queue_size"`
	Running   int64 `json:"running"`
	Completed int64 `json:"completed"`
	Panicked  int64 `json:"panicked"`
}

func New(workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		queue:   make(chan job, queueSize),
		workers: workers,
		logger:  log.With().Str("service", "workerpool").Logger(),
		quit:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.logger.Info().Int("workers", workers).Int("queue_size", queueSize).Msg("Worker pool started")
	return p
}

// Submit queues a task, waiting for room until ctx is done.
func (p *Pool) Submit(ctx context.Context, name string, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	select {
	case p.queue <- job{name: name, run: task}:
		metrics.PoolQueueDepth.Set(float64(len(p.queue)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.quit:
		return ErrClosed
	}
}

// TrySubmit queues a task without waiting.
func (p *Pool) TrySubmit(name string, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	select {
	case p.queue <- job{name: name, run: task}:
		metrics.PoolQueueDepth.Set(float64(len(p.queue)))
		return nil
	default:
		metrics.PoolRejected.Inc()
		return ErrQueueFull
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for j := range p.queue {
		metrics.PoolQueueDepth.Set(float64(len(p.queue)))
		p.run(id, j)
	}
}

func (p *Pool) run(id int, j job) {
	p.running.Add(1)
	defer p.running.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
			p.logger.Error().
				Interface("panic", r).
				Int("worker", id).
				Str("task", j.name).
				Msg("Panic in pool task")
		}
	}()

	j.run(p.ctx)
	p.completed.Add(1)
}

func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		Queued:    len(p.queue),
		QueueSize: cap(p.queue),
		Running:   p.running.Load(),
		Completed: p.completed.Load(),
		Panicked:  p.panicked.Load(),
	}
}

// Shutdown stops accepting tasks and waits for queued ones to drain. When ctx
// expires first, running tasks are cancelled and ctx.Err() is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	// Release submitters blocked on a full queue before taking the write lock.
	p.quitOnce.Do(func() { close(p.quit) })

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info().Int64("completed", p.completed.Load()).Msg("Worker pool stopped")
		return nil
	case <-ctx.Done():
		p.cancel()
		p.logger.Warn().Int("queued", len(p.queue)).Msg("Worker pool shutdown timed out, cancelling tasks")
		return ctx.Err()
	}
}
