package orchestrator

import (
	"context"

	"github.com/aescanero/agentflow/pkg/domain"
	"go.uber.org/zap"
)

// Pipeline runs declared steps in order against the registry.
type Pipeline struct {
	runner *Runner
	logger *zap.Logger
}

// NewPipeline creates a sequential pipeline executor.
func NewPipeline(runner *Runner, logger *zap.Logger) *Pipeline {
	return &Pipeline{runner: runner, logger: logger}
}

// Run executes every step in declaration order and returns one record per
// step. Step inputs are used as given; no output is fed forward. All roles
// are resolved before the first step runs, so an unknown role fails the run
// with no records.
func (p *Pipeline) Run(ctx context.Context, steps []domain.Step, hooks ...RecordHook) (domain.Trace, error) {
	units := make([]domain.Unit, len(steps))
	for i, step := range steps {
		unit, err := p.runner.registry.Resolve(step.Role)
		if err != nil {
			p.logger.Error("pipeline references unknown role",
				zap.Int("step", i+1),
				zap.String("role", step.Role))
			return nil, err
		}
		units[i] = unit
	}

	trace := make(domain.Trace, 0, len(steps))
	for i, step := range steps {
		rec := p.runner.invoke(ctx, step.Role, "", units[i], step.Input)
		trace = append(trace, rec)
		for _, hook := range hooks {
			hook(ctx, i, rec)
		}
	}

	return trace, nil
}
