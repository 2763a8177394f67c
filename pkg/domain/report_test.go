package domain

import (
	"errors"
	"testing"
	"time"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		avg  float64
		want ConfidenceLevel
	}{
		{0.95, ConfidenceHigh},
		{0.81, ConfidenceHigh},
		{0.8, ConfidenceMedium},
		{0.725, ConfidenceMedium},
		{0.6, ConfidenceLow},
		{0.2, ConfidenceLow},
		{0, ConfidenceLow},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.avg); got != tt.want {
			t.Errorf("LevelFor(%v) = %s, want %s", tt.avg, got, tt.want)
		}
	}
}

func TestFormatting(t *testing.T) {
	if got := FormatPercent(0.725); got != "72.5%" {
		t.Errorf("FormatPercent(0.725) = %s", got)
	}
	if got := FormatPercent(0.9); got != "90.0%" {
		t.Errorf("FormatPercent(0.9) = %s", got)
	}
	if got := FormatSeconds(1250 * time.Millisecond); got != "1.25s" {
		t.Errorf("FormatSeconds(1.25s) = %s", got)
	}
	if got := FormatSeconds(0); got != "0.00s" {
		t.Errorf("FormatSeconds(0) = %s", got)
	}
}

func TestNewReport(t *testing.T) {
	result := WorkflowResult{
		Mode: ModeGraph,
		Trace: Trace{
			{Role: "lead", NodeID: "lead", Output: SuccessOutcome("plan"), Confidence: 0.9, Elapsed: 1500 * time.Millisecond, Status: RecordStatusSuccess},
			{Role: "expert", NodeID: "expert", Output: FailureOutcome("down"), Confidence: 0.2, Elapsed: 500 * time.Millisecond, Status: RecordStatusFailed},
		},
		Order:             []string{"lead", "expert"},
		Status:            WorkflowStatusNeedsReview,
		AverageConfidence: 0.55,
		TotalElapsed:      2 * time.Second,
		ConfidenceLevel:   ConfidenceLow,
	}

	r := NewReport("run-1", "q", result)
	if r.RunID != "run-1" || r.Mode != ModeGraph || r.Status != WorkflowStatusNeedsReview {
		t.Fatalf("unexpected header %+v", r)
	}
	if len(r.Trace) != 2 || r.Trace[0].Step != 1 || r.Trace[1].Step != 2 {
		t.Fatalf("steps must be 1-based: %+v", r.Trace)
	}
	if r.Trace[0].Confidence != "90.0%" || r.Trace[0].Elapsed != "1.50s" {
		t.Errorf("unexpected step formatting %+v", r.Trace[0])
	}
	if !r.Trace[1].Output.Failed() {
		t.Errorf("failure outcome lost: %+v", r.Trace[1])
	}
	if r.Summary.AverageConfidence != "55.0%" || r.Summary.TotalElapsed != "2.00s" || r.Summary.UnitsExecuted != 2 {
		t.Errorf("unexpected summary %+v", r.Summary)
	}
	if r.ConfidenceLevel != ConfidenceLow || r.CreatedAt.IsZero() {
		t.Errorf("unexpected footer %+v", r)
	}
}

func TestNewErrorReport(t *testing.T) {
	r := NewErrorReport("run-2", "q", ModePipeline, errors.New("unknown role"))
	if r.Status != WorkflowStatusError || r.ErrorMessage != "unknown role" {
		t.Fatalf("unexpected error report %+v", r)
	}
	if r.Trace == nil || len(r.Trace) != 0 {
		t.Fatalf("expected empty, non-nil trace")
	}
}

func TestUnitExecutionError(t *testing.T) {
	cause := errors.New("timeout")
	err := &UnitExecutionError{Role: "analyst", Err: cause}
	if err.Error() != "unit analyst: timeout" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
}
