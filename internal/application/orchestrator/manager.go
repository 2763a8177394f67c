package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/agentflow/internal/application/registry"
	"github.com/aescanero/agentflow/internal/application/workers"
	"github.com/aescanero/agentflow/pkg/domain"
	"github.com/aescanero/agentflow/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ManagerConfig holds the collaborators of a Manager. All collaborators
// except Pool and Policy are required.
type ManagerConfig struct {
	Registry *registry.Registry
	Policy   ScoringPolicy
	EventBus ports.EventBus
	Storage  ports.ReportStorage
	Metrics  ports.MetricsCollector
	Logger   *zap.Logger

	// Pool enables parallel graph levels when non-nil.
	Pool *workers.Pool

	PipelineThreshold float64
	GraphThreshold    float64
}

// Manager coordinates workflow runs
type Manager struct {
	registry  *registry.Registry
	validator *Validator
	pipeline  *Pipeline
	graphs    *GraphExecutor
	eventBus  ports.EventBus
	storage   ports.ReportStorage
	metrics   ports.MetricsCollector
	logger    *zap.Logger

	pipelineThreshold float64
	graphThreshold    float64

	// Track active runs
	runs sync.Map // map[string]*runContext
}

// runContext holds state for a single in-flight run
type runContext struct {
	runID      string
	mode       domain.Mode
	startedAt  time.Time
	cancelFunc context.CancelFunc
}

// Run is the outcome of a completed workflow run.
type Run struct {
	ID     string
	Result domain.WorkflowResult
	Report domain.Report
}

// RunOption configures a single run.
type RunOption func(*runOptions)

type runOptions struct {
	runID string
}

// WithRunID uses id instead of a generated one, so the caller can stream
// or cancel the run while it executes.
func WithRunID(id string) RunOption {
	return func(o *runOptions) {
		o.runID = id
	}
}

// NewManager creates a new orchestrator manager
func NewManager(cfg ManagerConfig) *Manager {
	runner := NewRunner(cfg.Registry, cfg.Policy, cfg.Logger)

	var graphOpts []GraphOption
	if cfg.Pool != nil {
		graphOpts = append(graphOpts, WithWorkerPool(cfg.Pool))
	}

	return &Manager{
		registry:          cfg.Registry,
		validator:         NewValidator(),
		pipeline:          NewPipeline(runner, cfg.Logger),
		graphs:            NewGraphExecutor(runner, cfg.Logger, graphOpts...),
		eventBus:          cfg.EventBus,
		storage:           cfg.Storage,
		metrics:           cfg.Metrics,
		logger:            cfg.Logger,
		pipelineThreshold: cfg.PipelineThreshold,
		graphThreshold:    cfg.GraphThreshold,
	}
}

// Roles lists the registered roles.
func (m *Manager) Roles() []string {
	return m.registry.Roles()
}

// BuildGraph resolves each node's role against the registry and builds the graph.
func (m *Manager) BuildGraph(def domain.GraphDefinition) (*Graph, error) {
	if err := m.validator.Validate(def); err != nil {
		return nil, err
	}

	nodes := make([]Node, len(def.Nodes))
	for i, nd := range def.Nodes {
		unit, err := m.registry.Resolve(nd.RoleName())
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nd.ID, err)
		}
		nodes[i] = Node{ID: nd.ID, Role: nd.RoleName(), Unit: unit}
	}

	return Build(nodes, def.Edges, def.Entry)
}

// RunPipeline executes steps sequentially and aggregates the trace against
// the pipeline threshold.
func (m *Manager) RunPipeline(ctx context.Context, query string, steps []domain.Step, opts ...RunOption) (*Run, error) {
	return m.execute(ctx, domain.ModePipeline, query, m.pipelineThreshold, opts,
		func(ctx context.Context, hook RecordHook) (domain.Trace, error) {
			return m.pipeline.Run(ctx, steps, hook)
		})
}

// RunGraph executes g with query as every node's input and aggregates the
// trace against the graph threshold.
func (m *Manager) RunGraph(ctx context.Context, query string, g *Graph, opts ...RunOption) (*Run, error) {
	return m.execute(ctx, domain.ModeGraph, query, m.graphThreshold, opts,
		func(ctx context.Context, hook RecordHook) (domain.Trace, error) {
			_, trace, err := m.graphs.Execute(ctx, g, query, hook)
			return trace, err
		})
}

type executeFunc func(ctx context.Context, hook RecordHook) (domain.Trace, error)

func (m *Manager) execute(ctx context.Context, mode domain.Mode, query string, threshold float64, opts []RunOption, fn executeFunc) (*Run, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	runID := o.runID
	if runID == "" {
		runID = uuid.New().String()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rc := &runContext{runID: runID, mode: mode, startedAt: time.Now(), cancelFunc: cancel}
	if _, loaded := m.runs.LoadOrStore(runID, rc); loaded {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunInProgress, runID)
	}
	defer m.runs.Delete(runID)

	// Events outlive cancellation of the run.
	eventCtx := context.WithoutCancel(ctx)

	m.logger.Info("workflow started",
		zap.String("run_id", runID),
		zap.String("mode", string(mode)))
	m.publish(eventCtx, domain.TopicWorkflowEvents, domain.NewEvent(domain.EventTypeWorkflowStarted, runID, map[string]interface{}{
		"mode":  string(mode),
		"query": query,
	}))

	hook := func(_ context.Context, index int, rec domain.ExecutionRecord) {
		m.recordUnit(eventCtx, runID, index, rec)
	}

	trace, err := fn(runCtx, hook)
	var result domain.WorkflowResult
	if err == nil {
		result, err = Summarize(mode, trace, threshold)
	}
	duration := time.Since(rc.startedAt)

	if err != nil {
		m.logger.Error("workflow failed",
			zap.String("run_id", runID),
			zap.String("mode", string(mode)),
			zap.Error(err))
		m.metrics.RecordWorkflow(string(mode), string(domain.WorkflowStatusError), duration)

		report := domain.NewErrorReport(runID, query, mode, err)
		m.saveReport(eventCtx, &report)
		m.publish(eventCtx, domain.TopicWorkflowEvents, domain.NewEvent(domain.EventTypeWorkflowFailed, runID, map[string]interface{}{
			"error": err.Error(),
		}))
		return nil, err
	}

	report := domain.NewReport(runID, query, result)
	m.saveReport(eventCtx, &report)

	m.metrics.RecordWorkflow(string(mode), string(result.Status), duration)
	m.metrics.ObserveConfidence(string(mode), result.AverageConfidence)

	m.publish(eventCtx, domain.TopicWorkflowEvents, domain.NewEvent(domain.EventTypeWorkflowCompleted, runID, map[string]interface{}{
		"status":             string(result.Status),
		"average_confidence": result.AverageConfidence,
		"confidence_level":   string(result.ConfidenceLevel),
		"order":              result.Order,
	}))

	m.logger.Info("workflow completed",
		zap.String("run_id", runID),
		zap.String("mode", string(mode)),
		zap.String("status", string(result.Status)),
		zap.Float64("average_confidence", result.AverageConfidence),
		zap.Int("units_executed", len(result.Trace)),
		zap.Duration("duration", duration))

	return &Run{ID: runID, Result: result, Report: report}, nil
}

// recordUnit reports one execution record as metrics and an event.
func (m *Manager) recordUnit(ctx context.Context, runID string, index int, rec domain.ExecutionRecord) {
	m.metrics.RecordUnitExecuted(rec.Role, string(rec.Status), rec.Elapsed)

	eventType := domain.EventTypeUnitCompleted
	if !rec.Succeeded() {
		eventType = domain.EventTypeUnitFailed
	}
	m.publish(ctx, domain.TopicUnitEvents, domain.NewEvent(eventType, runID, map[string]interface{}{
		"step":       index + 1,
		"role":       rec.Role,
		"node_id":    rec.NodeID,
		"confidence": rec.Confidence,
		"elapsed_ms": rec.Elapsed.Milliseconds(),
		"output":     rec.Output,
	}))
}

func (m *Manager) publish(ctx context.Context, topic string, event domain.Event) {
	if err := m.eventBus.Publish(ctx, topic, event); err != nil {
		m.logger.Error("failed to publish event",
			zap.String("run_id", event.RunID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}

// saveReport stores report; a storage failure does not fail the run.
func (m *Manager) saveReport(ctx context.Context, report *domain.Report) {
	if err := m.storage.SaveReport(ctx, report); err != nil {
		m.logger.Error("failed to save report",
			zap.String("run_id", report.RunID),
			zap.Error(err))
	}
}

// GetReport retrieves the stored report of a run
func (m *Manager) GetReport(ctx context.Context, runID string) (*domain.Report, error) {
	report, err := m.storage.GetReport(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

// ListReports returns all stored reports
func (m *Manager) ListReports(ctx context.Context) ([]*domain.Report, error) {
	reports, err := m.storage.ListReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// DeleteReport removes the stored report of a run
func (m *Manager) DeleteReport(ctx context.Context, runID string) error {
	if err := m.storage.DeleteReport(ctx, runID); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

// ActiveRuns returns the number of in-flight runs.
func (m *Manager) ActiveRuns() int {
	n := 0
	m.runs.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// CancelRun cancels an in-flight run. Units observe the cancellation
// through their context; the run still completes with a full trace.
func (m *Manager) CancelRun(ctx context.Context, runID string) error {
	val, ok := m.runs.Load(runID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
	}

	rc := val.(*runContext)
	rc.cancelFunc()

	m.logger.Info("workflow run cancelled", zap.String("run_id", runID))
	return nil
}

// Shutdown gracefully shuts down the manager
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("shutting down orchestrator manager")

	// Cancel all active runs
	m.runs.Range(func(key, value interface{}) bool {
		rc := value.(*runContext)
		rc.cancelFunc()
		return true
	})

	m.logger.Info("orchestrator manager shut down complete")
	return nil
}
