package workers

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const defaultHealthInterval = 30 * time.Second

// Health states reported by PoolHealth.State.
const (
	HealthOK        = "ok"
	HealthSaturated = "saturated"
	HealthDown      = "down"
)

// PoolHealth is a point-in-time view of a pool. The pool is healthy while
// it accepts tasks and none of its workers has exited. A saturated pool
// queues new graph levels behind running ones but is still healthy.
type PoolHealth struct {
	Running   bool      `json:"running"`
	Size      int       `json:"size"`
	Idle      int       `json:"idle"`
	Busy      int       `json:"busy"`
	Stopped   int       `json:"stopped"`
	Saturated bool      `json:"saturated"`
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checked_at"`
}

// State returns HealthDown, HealthSaturated or HealthOK.
func (h PoolHealth) State() string {
	switch {
	case !h.Healthy:
		return HealthDown
	case h.Saturated:
		return HealthSaturated
	default:
		return HealthOK
	}
}

// HealthMonitor periodically snapshots its pool, publishing the worker
// gauges and logging when the pool goes down or becomes saturated.
type HealthMonitor struct {
	pool     *Pool
	interval time.Duration
	logger   *zap.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	saturated atomic.Bool
}

func newHealthMonitor(pool *Pool, interval time.Duration, logger *zap.Logger) *HealthMonitor {
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	return &HealthMonitor{
		pool:     pool,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

func (h *HealthMonitor) start() {
	h.startOnce.Do(func() { go h.loop() })
}

func (h *HealthMonitor) halt() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *HealthMonitor) loop() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.check()
		}
	}
}

// Snapshot counts the pool's workers by status.
func (h *HealthMonitor) Snapshot() PoolHealth {
	snap := PoolHealth{
		Running:   h.pool.Running(),
		Size:      h.pool.size,
		CheckedAt: time.Now().UTC(),
	}
	for _, st := range h.pool.GetStatus() {
		switch st {
		case WorkerStatusIdle:
			snap.Idle++
		case WorkerStatusBusy:
			snap.Busy++
		case WorkerStatusStopped:
			snap.Stopped++
		}
	}
	snap.Healthy = snap.Running && snap.Stopped == 0
	snap.Saturated = snap.Running && snap.Busy == snap.Size
	return snap
}

// check takes a snapshot and records it. Saturation is logged once per
// transition into it.
func (h *HealthMonitor) check() PoolHealth {
	snap := h.Snapshot()

	if h.pool.metrics != nil {
		h.pool.metrics.RecordWorkerPoolStatus(snap.Idle, snap.Busy, snap.Stopped)
	}

	h.logger.Debug("worker pool health",
		zap.String("state", snap.State()),
		zap.Int("idle", snap.Idle),
		zap.Int("busy", snap.Busy),
		zap.Int("stopped", snap.Stopped))

	if !snap.Healthy {
		h.logger.Warn("worker pool is down",
			zap.Bool("running", snap.Running),
			zap.Int("stopped", snap.Stopped),
			zap.Int("size", snap.Size))
	}

	if wasSaturated := h.saturated.Swap(snap.Saturated); snap.Saturated && !wasSaturated {
		h.logger.Info("worker pool saturated, graph levels are queuing",
			zap.Int("size", snap.Size))
	}

	return snap
}
