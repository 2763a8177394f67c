package orchestrator

import (
	"fmt"
	"math"
	"time"

	"github.com/aescanero/agentflow/pkg/domain"
)

// DefaultSuccessThreshold is the cutoff average confidence must exceed for
// a run to be reported as success.
const DefaultSuccessThreshold = 0.6

// Summarize reduces a trace into a workflow result. The run succeeds when
// the average confidence is strictly greater than threshold; otherwise it
// needs review. An empty trace fails with domain.ErrEmptyTrace.
func Summarize(mode domain.Mode, trace domain.Trace, threshold float64) (domain.WorkflowResult, error) {
	if len(trace) == 0 {
		return domain.WorkflowResult{}, fmt.Errorf("%w: nothing to summarize", domain.ErrEmptyTrace)
	}

	var (
		total time.Duration
		order = make([]string, len(trace))
	)
	for i, rec := range trace {
		total += rec.Elapsed
		order[i] = rec.Key()
	}
	mean := averageConfidence(trace)

	status := domain.WorkflowStatusNeedsReview
	if mean > threshold {
		status = domain.WorkflowStatusSuccess
	}

	return domain.WorkflowResult{
		Mode:              mode,
		Trace:             append(domain.Trace(nil), trace...),
		Order:             order,
		Status:            status,
		AverageConfidence: mean,
		TotalElapsed:      total,
		ConfidenceLevel:   domain.LevelFor(mean),
	}, nil
}

// averageConfidence returns sum/len of the trace confidences. The sum is
// compensated so the result does not depend on record order, and a uniform
// trace yields its common value exactly.
func averageConfidence(trace domain.Trace) float64 {
	first := trace[0].Confidence
	uniform := true
	var sum, comp float64
	for _, rec := range trace {
		c := rec.Confidence
		if c != first {
			uniform = false
		}
		t := sum + c
		if math.Abs(sum) >= math.Abs(c) {
			comp += (sum - t) + c
		} else {
			comp += (c - t) + sum
		}
		sum = t
	}
	if uniform {
		return first
	}
	return (sum + comp) / float64(len(trace))
}
