package orchestrator

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/aescanero/agentflow/pkg/domain"
)

func record(role string, confidence float64, elapsed time.Duration) domain.ExecutionRecord {
	status := domain.RecordStatusSuccess
	out := domain.SuccessOutcome("ok")
	if confidence < 0.5 {
		status = domain.RecordStatusFailed
		out = domain.FailureOutcome("failed")
	}
	return domain.ExecutionRecord{Role: role, Output: out, Confidence: confidence, Elapsed: elapsed, Status: status}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name       string
		trace      domain.Trace
		wantAvg    float64
		wantStatus domain.WorkflowStatus
		wantLevel  domain.ConfidenceLevel
	}{
		{
			name: "three successes one failure",
			trace: domain.Trace{
				record("planner", 0.9, time.Second),
				record("retriever", 0.9, time.Second),
				record("analyst", 0.2, time.Second),
				record("validator", 0.9, time.Second),
			},
			wantAvg:    0.725,
			wantStatus: domain.WorkflowStatusSuccess,
			wantLevel:  domain.ConfidenceMedium,
		},
		{
			name: "all succeed",
			trace: domain.Trace{
				record("lead", 0.9, time.Second),
				record("expert", 0.9, time.Second),
			},
			wantAvg:    0.9,
			wantStatus: domain.WorkflowStatusSuccess,
			wantLevel:  domain.ConfidenceHigh,
		},
		{
			name: "all fail",
			trace: domain.Trace{
				record("lead", 0.2, time.Second),
				record("expert", 0.2, time.Second),
			},
			wantAvg:    0.2,
			wantStatus: domain.WorkflowStatusNeedsReview,
			wantLevel:  domain.ConfidenceLow,
		},
		{
			name: "four successes three failures sit on the threshold",
			trace: domain.Trace{
				record("planner", 0.9, time.Second),
				record("retriever", 0.9, time.Second),
				record("analyst", 0.9, time.Second),
				record("critic", 0.2, time.Second),
				record("validator", 0.2, time.Second),
				record("writer", 0.2, time.Second),
				record("reviewer", 0.9, time.Second),
			},
			wantAvg:    0.6,
			wantStatus: domain.WorkflowStatusNeedsReview,
			wantLevel:  domain.ConfidenceLow,
		},
		{
			name:       "threshold is exclusive",
			trace:      domain.Trace{record("lead", 0.6, time.Second)},
			wantAvg:    0.6,
			wantStatus: domain.WorkflowStatusNeedsReview,
			wantLevel:  domain.ConfidenceLow,
		},
		{
			name:       "high cutoff is exclusive",
			trace:      domain.Trace{record("lead", 0.8, time.Second)},
			wantAvg:    0.8,
			wantStatus: domain.WorkflowStatusSuccess,
			wantLevel:  domain.ConfidenceMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Summarize(domain.ModePipeline, tt.trace, DefaultSuccessThreshold)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(res.AverageConfidence-tt.wantAvg) > 1e-9 {
				t.Errorf("expected average %v, got %v", tt.wantAvg, res.AverageConfidence)
			}
			if res.Status != tt.wantStatus {
				t.Errorf("expected status %s, got %s", tt.wantStatus, res.Status)
			}
			if res.ConfidenceLevel != tt.wantLevel {
				t.Errorf("expected level %s, got %s", tt.wantLevel, res.ConfidenceLevel)
			}
			if res.TotalElapsed != time.Duration(len(tt.trace))*time.Second {
				t.Errorf("unexpected total elapsed %v", res.TotalElapsed)
			}
			if !equalStrings(res.Order, keys(tt.trace)) {
				t.Errorf("unexpected order %v", res.Order)
			}
		})
	}
}

func TestSummarize_UniformTraceIsExact(t *testing.T) {
	trace := make(domain.Trace, 7)
	for i := range trace {
		trace[i] = record("r", 0.9, 0)
	}
	res, err := Summarize(domain.ModeGraph, trace, DefaultSuccessThreshold)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.AverageConfidence != 0.9 {
		t.Fatalf("expected exactly 0.9, got %v", res.AverageConfidence)
	}
}

func TestSummarize_AverageIgnoresRecordOrder(t *testing.T) {
	orders := [][]float64{
		{0.9, 0.9, 0.9, 0.9, 0.2, 0.2, 0.2},
		{0.2, 0.2, 0.2, 0.9, 0.9, 0.9, 0.9},
		{0.9, 0.2, 0.9, 0.2, 0.9, 0.2, 0.9},
		{0.9, 0.9, 0.9, 0.2, 0.2, 0.2, 0.9},
	}
	for _, confs := range orders {
		trace := make(domain.Trace, len(confs))
		for i, c := range confs {
			trace[i] = record(fmt.Sprintf("r%d", i), c, 0)
		}
		res, err := Summarize(domain.ModePipeline, trace, DefaultSuccessThreshold)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.AverageConfidence != 0.6 {
			t.Errorf("%v: expected exactly 0.6, got %v", confs, res.AverageConfidence)
		}
		if res.Status != domain.WorkflowStatusNeedsReview {
			t.Errorf("%v: expected needs_review, got %s", confs, res.Status)
		}
	}
}

func TestSummarize_EmptyTrace(t *testing.T) {
	if _, err := Summarize(domain.ModeGraph, nil, DefaultSuccessThreshold); !errors.Is(err, domain.ErrEmptyTrace) {
		t.Fatalf("expected ErrEmptyTrace, got %v", err)
	}
}

func TestSummarize_DoesNotAliasTrace(t *testing.T) {
	trace := domain.Trace{record("lead", 0.9, 0)}
	res, _ := Summarize(domain.ModeGraph, trace, DefaultSuccessThreshold)
	trace[0].Role = "changed"
	if res.Trace[0].Role != "lead" {
		t.Fatal("result trace must be a copy")
	}
}
