package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a run lifecycle event.
type EventType string

const (
	EventTypeWorkflowStarted   EventType = "workflow.started"
	EventTypeWorkflowCompleted EventType = "workflow.completed"
	EventTypeWorkflowFailed    EventType = "workflow.failed"
	EventTypeUnitCompleted     EventType = "unit.completed"
	EventTypeUnitFailed        EventType = "unit.failed"
)

// Event topics.
const (
	TopicWorkflowEvents = "workflow.events"
	TopicUnitEvents     = "unit.events"
)

// Event is a run lifecycle notification.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	RunID     string                 `json:"run_id"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NewEvent stamps a new event with a fresh id and the current time.
func NewEvent(eventType EventType, runID string, data map[string]interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		RunID:     runID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
