package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aescanero/agentflow/pkg/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "agentflow:report:"

// ReportStorage implements ReportStorage using Redis
type ReportStorage struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewReportStorage creates a new Redis report storage. Reports expire after ttl; 0 keeps them.
func NewReportStorage(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ReportStorage {
	return &ReportStorage{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// SaveReport serializes report to JSON and stores it with the configured TTL
func (s *ReportStorage) SaveReport(ctx context.Context, report *domain.Report) error {
	if report == nil || report.RunID == "" {
		return fmt.Errorf("report run id is required")
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := s.client.Set(ctx, getReportKey(report.RunID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	s.logger.Debug("report saved",
		zap.String("run_id", report.RunID),
		zap.String("status", string(report.Status)))

	return nil
}

// GetReport retrieves a report from Redis
func (s *ReportStorage) GetReport(ctx context.Context, runID string) (*domain.Report, error) {
	data, err := s.client.Get(ctx, getReportKey(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &report, nil
}

// ListReports scans all stored reports, newest first
func (s *ReportStorage) ListReports(ctx context.Context) ([]*domain.Report, error) {
	var cursor uint64
	var keys []string

	for {
		batch, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}
		keys = append(keys, batch...)

		cursor = next
		if cursor == 0 {
			break
		}
	}

	reports := make([]*domain.Report, 0, len(keys))
	for _, key := range keys {
		report, err := s.GetReport(ctx, strings.TrimPrefix(key, keyPrefix))
		if errors.Is(err, domain.ErrRunNotFound) {
			// Expired between SCAN and GET
			continue
		}
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	return reports, nil
}

// DeleteReport deletes a report from Redis
func (s *ReportStorage) DeleteReport(ctx context.Context, runID string) error {
	deleted, err := s.client.Del(ctx, getReportKey(runID)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
	}

	s.logger.Debug("report deleted", zap.String("run_id", runID))
	return nil
}

// getReportKey returns the Redis key for a run report
func getReportKey(runID string) string {
	return keyPrefix + runID
}
