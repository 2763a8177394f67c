package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/aescanero/agentflow/internal/application/registry"
	"github.com/aescanero/agentflow/pkg/domain"
	"go.uber.org/zap"
)

// ScoringPolicy assigns a confidence to an outcome. Results outside [0,1]
// are clamped.
type ScoringPolicy func(outcome domain.Outcome) float64

// Default confidences used by FixedScoring in the absence of configuration.
const (
	DefaultSuccessConfidence = 0.9
	DefaultFailureConfidence = 0.2
)

// FixedScoring returns a policy that scores every success with success and
// every failure with failure.
func FixedScoring(success, failure float64) ScoringPolicy {
	return func(outcome domain.Outcome) float64 {
		if outcome.Failed() {
			return failure
		}
		return success
	}
}

// RecordHook observes each record as it is produced. index is the record's
// position in the trace.
type RecordHook func(ctx context.Context, index int, record domain.ExecutionRecord)

// Runner wraps unit invocations into execution records.
type Runner struct {
	registry *registry.Registry
	policy   ScoringPolicy
	logger   *zap.Logger
	now      func() time.Time
}

// NewRunner creates a Runner. A nil policy falls back to FixedScoring with
// the default confidences.
func NewRunner(reg *registry.Registry, policy ScoringPolicy, logger *zap.Logger) *Runner {
	if policy == nil {
		policy = FixedScoring(DefaultSuccessConfidence, DefaultFailureConfidence)
	}
	return &Runner{
		registry: reg,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
	}
}

// Run resolves role and invokes its unit with input. The only error is
// domain.ErrUnknownRole; a unit failure is returned as a failed record.
func (r *Runner) Run(ctx context.Context, role, input string) (domain.ExecutionRecord, error) {
	unit, err := r.registry.Resolve(role)
	if err != nil {
		return domain.ExecutionRecord{}, err
	}
	return r.invoke(ctx, role, "", unit, input), nil
}

// invoke executes unit and always produces a record.
func (r *Runner) invoke(ctx context.Context, role, nodeID string, unit domain.Unit, input string) domain.ExecutionRecord {
	start := r.now()
	content, execErr := r.execute(ctx, role, unit, input)
	elapsed := r.now().Sub(start)

	rec := domain.ExecutionRecord{
		Role:    role,
		NodeID:  nodeID,
		Elapsed: elapsed,
	}

	if execErr != nil {
		rec.Output = domain.FailureOutcome(execErr.Err.Error())
		rec.Status = domain.RecordStatusFailed
		rec.Err = execErr
		r.logger.Warn("unit execution failed",
			zap.String("role", role),
			zap.String("node_id", nodeID),
			zap.Duration("duration", elapsed),
			zap.Error(execErr.Err))
	} else {
		rec.Output = domain.SuccessOutcome(content)
		rec.Status = domain.RecordStatusSuccess
		r.logger.Debug("unit execution completed",
			zap.String("role", role),
			zap.String("node_id", nodeID),
			zap.Duration("duration", elapsed))
	}

	rec.Confidence = clamp(r.policy(rec.Output))
	return rec
}

// execute calls the unit and converts both returned errors and panics into
// a UnitExecutionError.
func (r *Runner) execute(ctx context.Context, role string, unit domain.Unit, input string) (content string, execErr *domain.UnitExecutionError) {
	defer func() {
		if p := recover(); p != nil {
			execErr = &domain.UnitExecutionError{Role: role, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	out, err := unit.Execute(ctx, input)
	if err != nil {
		return "", &domain.UnitExecutionError{Role: role, Err: err}
	}
	return out, nil
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
