package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/agentflow/pkg/ports"
	"go.uber.org/zap"
)

// ErrPoolClosed is returned when tasks are submitted to a pool that is not running.
var ErrPoolClosed = errors.New("worker pool is not running")

// Task is a unit of work executed by a pool worker.
type Task struct {
	ID  string
	Run func(ctx context.Context)
}

type job struct {
	ctx  context.Context
	task Task
	done func()
}

// Pool manages a pool of worker goroutines
type Pool struct {
	size    int
	metrics ports.MetricsCollector
	logger  *zap.Logger
	health  *HealthMonitor

	mu      sync.RWMutex
	started bool
	closed  bool
	jobs    chan job
	workers []*worker
	wg      sync.WaitGroup
}

// worker represents a single worker goroutine
type worker struct {
	id      string
	pool    *Pool
	status  WorkerStatus
	mu      sync.RWMutex
	lastJob time.Time
}

// WorkerStatus represents worker status
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusBusy    WorkerStatus = "busy"
	WorkerStatusStopped WorkerStatus = "stopped"
)

// NewPool creates a new worker pool
func NewPool(
	size int,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	healthCheckInterval time.Duration,
) *Pool {
	if size < 1 {
		size = 1
	}

	pool := &Pool{
		size:    size,
		metrics: metrics,
		logger:  logger,
		jobs:    make(chan job),
		workers: make([]*worker, size),
	}

	pool.health = newHealthMonitor(pool, healthCheckInterval, logger)

	return pool
}

// Start starts the worker pool
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	if p.started {
		return fmt.Errorf("worker pool already started")
	}

	p.logger.Info("starting worker pool", zap.Int("size", p.size))

	for i := 0; i < p.size; i++ {
		w := &worker{
			id:      fmt.Sprintf("worker-%d", i),
			pool:    p,
			status:  WorkerStatusIdle,
			lastJob: time.Now(),
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run()
	}
	p.started = true

	p.health.start()

	p.logger.Info("worker pool started", zap.Int("workers", p.size))
	return nil
}

// Running reports whether the pool accepts tasks.
func (p *Pool) Running() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started && !p.closed
}

// RunAll submits every task and blocks until all of them have finished.
// Either all tasks are accepted or none are: ErrPoolClosed is returned
// before any submission when the pool is not running.
func (p *Pool) RunAll(ctx context.Context, tasks []Task) error {
	p.mu.RLock()
	if !p.started || p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}

	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for _, t := range tasks {
		p.jobs <- job{ctx: ctx, task: t, done: wg.Done}
	}
	p.mu.RUnlock()

	wg.Wait()
	return nil
}

// Shutdown stops accepting tasks, lets queued tasks finish and waits for
// all workers to exit.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down worker pool")

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	started := p.started
	close(p.jobs)
	p.mu.Unlock()

	if !started {
		return nil
	}

	p.health.halt()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout")
	}
}

// GetStatus returns the status of all workers
func (p *Pool) GetStatus() map[string]WorkerStatus {
	p.mu.RLock()
	workers := p.workers
	started := p.started
	p.mu.RUnlock()

	status := make(map[string]WorkerStatus)
	if !started {
		return status
	}
	for _, w := range workers {
		w.mu.RLock()
		status[w.id] = w.status
		w.mu.RUnlock()
	}
	return status
}

// Health returns the pool's health monitor.
func (p *Pool) Health() *HealthMonitor {
	return p.health
}

// run is the main worker loop
func (w *worker) run() {
	defer w.pool.wg.Done()

	w.pool.logger.Debug("worker started", zap.String("worker_id", w.id))

	for j := range w.pool.jobs {
		w.handle(j)
	}

	w.mu.Lock()
	w.status = WorkerStatusStopped
	w.mu.Unlock()
	w.pool.logger.Debug("worker stopped", zap.String("worker_id", w.id))
}

// handle executes a single task, keeping the worker alive if it panics.
func (w *worker) handle(j job) {
	w.mu.Lock()
	w.status = WorkerStatusBusy
	w.lastJob = time.Now()
	w.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			w.pool.logger.Error("task panicked",
				zap.String("worker_id", w.id),
				zap.String("task_id", j.task.ID),
				zap.Any("panic", r))
		}
		w.mu.Lock()
		w.status = WorkerStatusIdle
		w.mu.Unlock()
		j.done()
	}()

	j.task.Run(j.ctx)
}
