package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	workflowsTotal    *prometheus.CounterVec
	workflowDuration  *prometheus.HistogramVec
	unitsExecuted     *prometheus.CounterVec
	unitDuration      *prometheus.HistogramVec
	averageConfidence *prometheus.HistogramVec
	workerPoolIdle    prometheus.Gauge
	workerPoolBusy    prometheus.Gauge
	workerPoolStopped prometheus.Gauge
}

// NewCollector registers the agentflow metrics with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		workflowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentflow_workflows_total",
				Help: "Total number of workflow runs by mode and status",
			},
			[]string{"mode", "status"},
		),
		workflowDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentflow_workflow_duration_seconds",
				Help:    "Workflow run duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"mode"},
		),
		unitsExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentflow_units_executed_total",
				Help: "Total number of unit invocations by role and status",
			},
			[]string{"role", "status"},
		),
		unitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentflow_unit_duration_seconds",
				Help:    "Unit invocation duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"role"},
		),
		averageConfidence: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentflow_workflow_average_confidence",
				Help:    "Average unit confidence per workflow run",
				Buckets: []float64{0.2, 0.4, 0.6, 0.8, 0.9, 1},
			},
			[]string{"mode"},
		),
		workerPoolIdle: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "agentflow_worker_pool_idle",
				Help: "Number of idle workers",
			},
		),
		workerPoolBusy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "agentflow_worker_pool_busy",
				Help: "Number of busy workers",
			},
		),
		workerPoolStopped: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "agentflow_worker_pool_stopped",
				Help: "Number of stopped workers",
			},
		),
	}
}

// RecordWorkflow records a finished workflow run
func (c *Collector) RecordWorkflow(mode, status string, duration time.Duration) {
	c.workflowsTotal.WithLabelValues(mode, status).Inc()
	c.workflowDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordUnitExecuted records a single unit invocation
func (c *Collector) RecordUnitExecuted(role, status string, duration time.Duration) {
	c.unitsExecuted.WithLabelValues(role, status).Inc()
	c.unitDuration.WithLabelValues(role).Observe(duration.Seconds())
}

// ObserveConfidence records the average confidence of a run
func (c *Collector) ObserveConfidence(mode string, confidence float64) {
	c.averageConfidence.WithLabelValues(mode).Observe(confidence)
}

// RecordWorkerPoolStatus records worker pool status
func (c *Collector) RecordWorkerPoolStatus(idle, busy, stopped int) {
	c.workerPoolIdle.Set(float64(idle))
	c.workerPoolBusy.Set(float64(busy))
	c.workerPoolStopped.Set(float64(stopped))
}
