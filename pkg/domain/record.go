package domain

import (
	"encoding/json"
	"time"
)

// RecordStatus is the outcome classification of a single invocation.
type RecordStatus string

const (
	RecordStatusSuccess RecordStatus = "success"
	RecordStatusFailed  RecordStatus = "failed"
)

// Outcome holds either a success payload or an error description, never both.
// The zero value is an empty success.
type Outcome struct {
	content string
	err     string
	failed  bool
}

// SuccessOutcome wraps a unit's output.
func SuccessOutcome(content string) Outcome {
	return Outcome{content: content}
}

// FailureOutcome wraps a unit's error description.
func FailureOutcome(description string) Outcome {
	return Outcome{err: description, failed: true}
}

// Failed reports whether the outcome carries an error description.
func (o Outcome) Failed() bool { return o.failed }

// Content returns the success payload, or "" for a failed outcome.
func (o Outcome) Content() string { return o.content }

// Error returns the error description, or "" for a successful outcome.
func (o Outcome) Error() string { return o.err }

type outcomeJSON struct {
	Content *string      `json:"content,omitempty"`
	Error   *string      `json:"error,omitempty"`
	Status  RecordStatus `json:"status"`
}

// MarshalJSON renders {"content","status":"success"} or {"error","status":"failed"}.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.failed {
		return json.Marshal(outcomeJSON{Error: &o.err, Status: RecordStatusFailed})
	}
	return json.Marshal(outcomeJSON{Content: &o.content, Status: RecordStatusSuccess})
}

// UnmarshalJSON accepts the shape produced by MarshalJSON.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var raw outcomeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Status == RecordStatusFailed || raw.Error != nil {
		desc := ""
		if raw.Error != nil {
			desc = *raw.Error
		}
		*o = FailureOutcome(desc)
		return nil
	}
	content := ""
	if raw.Content != nil {
		content = *raw.Content
	}
	*o = SuccessOutcome(content)
	return nil
}

// ExecutionRecord is the result of exactly one unit invocation.
type ExecutionRecord struct {
	Role       string        `json:"role"`
	NodeID     string        `json:"node_id,omitempty"`
	Output     Outcome       `json:"output"`
	Confidence float64       `json:"confidence"`
	Elapsed    time.Duration `json:"elapsed"`
	Status     RecordStatus  `json:"status"`

	// Err is the unit's failure for failed records.
	Err error `json:"-"`
}

// Key identifies the record within a run: the node id in graph mode, the role otherwise.
func (r ExecutionRecord) Key() string {
	if r.NodeID != "" {
		return r.NodeID
	}
	return r.Role
}

// Succeeded reports whether the unit completed without error.
func (r ExecutionRecord) Succeeded() bool {
	return r.Status == RecordStatusSuccess
}

// Trace is the ordered record of all invocations in one run.
type Trace []ExecutionRecord
