package domain

import "time"

// Mode identifies how a workflow was executed.
type Mode string

const (
	ModePipeline Mode = "pipeline"
	ModeGraph    Mode = "graph"
)

// WorkflowStatus is the workflow-level verdict.
type WorkflowStatus string

const (
	WorkflowStatusSuccess     WorkflowStatus = "success"
	WorkflowStatusNeedsReview WorkflowStatus = "needs_review"
	WorkflowStatusError       WorkflowStatus = "error"
)

// ConfidenceLevel is the reporting tier of an average confidence.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Tier cutoffs. Both comparisons are strict.
const (
	HighConfidenceCutoff   = 0.8
	MediumConfidenceCutoff = 0.6
)

// LevelFor classifies an average confidence into a reporting tier.
func LevelFor(avg float64) ConfidenceLevel {
	switch {
	case avg > HighConfidenceCutoff:
		return ConfidenceHigh
	case avg > MediumConfidenceCutoff:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// WorkflowResult is the aggregate of one run. It is derived from a trace and
// not retained by the orchestrator.
type WorkflowResult struct {
	Mode              Mode            `json:"mode"`
	Trace             Trace           `json:"trace"`
	Order             []string        `json:"order"`
	Status            WorkflowStatus  `json:"status"`
	AverageConfidence float64         `json:"average_confidence"`
	TotalElapsed      time.Duration   `json:"total_elapsed"`
	ConfidenceLevel   ConfidenceLevel `json:"confidence_level"`
}
