package domain

import (
	"fmt"
	"time"
)

// Report is the external presentation of a run. Percentages and durations
// are formatted strings; the numeric WorkflowResult stays authoritative.
type Report struct {
	RunID           string          `json:"run_id"`
	Mode            Mode            `json:"mode"`
	Query           string          `json:"query"`
	Status          WorkflowStatus  `json:"status"`
	Order           []string        `json:"execution_order,omitempty"`
	Trace           []ReportStep    `json:"execution_trace"`
	Summary         ReportSummary   `json:"summary"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ReportStep is one formatted trace entry. Step is 1-based.
type ReportStep struct {
	Step       int     `json:"step"`
	Role       string  `json:"role"`
	NodeID     string  `json:"node_id,omitempty"`
	Confidence string  `json:"confidence"`
	Elapsed    string  `json:"elapsed"`
	Output     Outcome `json:"output"`
}

// ReportSummary holds the formatted aggregate metrics.
type ReportSummary struct {
	TotalElapsed      string `json:"total_elapsed"`
	AverageConfidence string `json:"average_confidence"`
	UnitsExecuted     int    `json:"units_executed"`
}

// NewReport formats a workflow result for external consumption.
func NewReport(runID, query string, result WorkflowResult) Report {
	steps := make([]ReportStep, len(result.Trace))
	for i, rec := range result.Trace {
		steps[i] = ReportStep{
			Step:       i + 1,
			Role:       rec.Role,
			NodeID:     rec.NodeID,
			Confidence: FormatPercent(rec.Confidence),
			Elapsed:    FormatSeconds(rec.Elapsed),
			Output:     rec.Output,
		}
	}

	return Report{
		RunID:  runID,
		Mode:   result.Mode,
		Query:  query,
		Status: result.Status,
		Order:  result.Order,
		Trace:  steps,
		Summary: ReportSummary{
			TotalElapsed:      FormatSeconds(result.TotalElapsed),
			AverageConfidence: FormatPercent(result.AverageConfidence),
			UnitsExecuted:     len(result.Trace),
		},
		ConfidenceLevel: result.ConfidenceLevel,
		CreatedAt:       time.Now().UTC(),
	}
}

// NewErrorReport records a run that failed before producing a result.
func NewErrorReport(runID, query string, mode Mode, err error) Report {
	return Report{
		RunID:        runID,
		Mode:         mode,
		Query:        query,
		Status:       WorkflowStatusError,
		Trace:        []ReportStep{},
		ErrorMessage: err.Error(),
		CreatedAt:    time.Now().UTC(),
	}
}

// FormatPercent renders a [0,1] fraction with one decimal, e.g. 0.725 -> "72.5%".
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// FormatSeconds renders a duration in seconds with two decimals, e.g. "1.25s".
func FormatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
