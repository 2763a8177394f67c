// Package ports declares the interfaces the orchestrator consumes from its
// adapters: an event bus, a report store and a metrics collector.
package ports

import (
	"context"
	"time"

	"github.com/aescanero/agentflow/pkg/domain"
)

// EventHandler processes a single event.
type EventHandler func(ctx context.Context, event domain.Event) error

// EventBus publishes run events and delivers them to topic subscribers.
type EventBus interface {
	Publish(ctx context.Context, topic string, event domain.Event) error
	// Subscribe registers handler until ctx is done.
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Unsubscribe(ctx context.Context, topic string) error
	Close() error
}

// ReportStorage keeps formatted run reports for later retrieval.
// GetReport returns domain.ErrRunNotFound for unknown ids.
type ReportStorage interface {
	SaveReport(ctx context.Context, report *domain.Report) error
	GetReport(ctx context.Context, runID string) (*domain.Report, error)
	ListReports(ctx context.Context) ([]*domain.Report, error)
	DeleteReport(ctx context.Context, runID string) error
}

// MetricsCollector records orchestration metrics.
type MetricsCollector interface {
	RecordWorkflow(mode, status string, duration time.Duration)
	RecordUnitExecuted(role, status string, duration time.Duration)
	ObserveConfidence(mode string, confidence float64)
	RecordWorkerPoolStatus(idle, busy, stopped int)
}
