package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aescanero/agentflow/pkg/domain"
)

// InMemoryReportStorage implements ReportStorage using an in-memory map
type InMemoryReportStorage struct {
	reports map[string]domain.Report
	mu      sync.RWMutex
}

// NewInMemoryReportStorage creates a new in-memory report storage
func NewInMemoryReportStorage() *InMemoryReportStorage {
	return &InMemoryReportStorage{
		reports: make(map[string]domain.Report),
	}
}

// SaveReport stores a copy of report under its run id
func (s *InMemoryReportStorage) SaveReport(ctx context.Context, report *domain.Report) error {
	if report == nil || report.RunID == "" {
		return fmt.Errorf("report run id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports[report.RunID] = *report
	return nil
}

// GetReport retrieves a copy of the report for runID
func (s *InMemoryReportStorage) GetReport(ctx context.Context, runID string) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
	}
	return &report, nil
}

// ListReports returns all reports, newest first
func (s *InMemoryReportStorage) ListReports(ctx context.Context) ([]*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := make([]*domain.Report, 0, len(s.reports))
	for _, r := range s.reports {
		r := r
		reports = append(reports, &r)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	return reports, nil
}

// DeleteReport removes the report for runID
func (s *InMemoryReportStorage) DeleteReport(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[runID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
	}
	delete(s.reports, runID)
	return nil
}
