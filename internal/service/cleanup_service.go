// Package service contains the business logic layer.
package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jmylchreest/pagewatch/internal/repository"
)

// CleanupService sweeps retention-expired rows and screenshot files.
type CleanupService struct {
	history         repository.PriceHistoryRepository
	notificationLog repository.NotificationLogRepository
	falsePositives  repository.FalsePositiveRepository
	logger          *slog.Logger
}

// NewCleanupService creates a new cleanup service.
func NewCleanupService(
	history repository.PriceHistoryRepository,
	notificationLog repository.NotificationLogRepository,
	falsePositives repository.FalsePositiveRepository,
	logger *slog.Logger,
) *CleanupService {
	return &CleanupService{
		history:         history,
		notificationLog: notificationLog,
		falsePositives:  falsePositives,
		logger:          logger.With("component", "cleanup"),
	}
}

// CleanupResult contains the results of a cleanup operation.
type CleanupResult struct {
	HistoryDeleted       int64
	NotificationsDeleted int64
	ScreenshotsDeleted   int
	Errors               []error
}

// Sweep removes price history and notification log rows older than their
// respective retention windows, and deletes screenshot files referenced by
// false-positive records older than retentionScreenshots (the screenshot
// policy's retention_days).
func (s *CleanupService) Sweep(ctx context.Context, retentionHistory, retentionNotifications, retentionScreenshots time.Duration) (*CleanupResult, error) {
	result := &CleanupResult{}
	now := time.Now()

	s.logger.Info("starting retention sweep",
		"history_retention", retentionHistory.String(),
		"notification_retention", retentionNotifications.String(),
		"screenshot_retention", retentionScreenshots.String(),
	)

	if n, err := s.history.DeleteOlderThan(ctx, now.Add(-retentionHistory)); err != nil {
		s.logger.Error("failed to prune price history", "error", err)
		result.Errors = append(result.Errors, err)
	} else {
		result.HistoryDeleted = n
		s.logger.Info("pruned price history", "count", n)
	}

	if n, err := s.notificationLog.DeleteOlderThan(ctx, now.Add(-retentionNotifications)); err != nil {
		s.logger.Error("failed to prune notification logs", "error", err)
		result.Errors = append(result.Errors, err)
	} else {
		result.NotificationsDeleted = n
		s.logger.Info("pruned notification logs", "count", n)
	}

	refs, err := s.falsePositives.ScreenshotRefsOlderThan(ctx, now.Add(-retentionScreenshots))
	if err != nil {
		s.logger.Error("failed to list old screenshot refs", "error", err)
		result.Errors = append(result.Errors, err)
	} else {
		for _, ref := range refs {
			if err := os.Remove(ref); err != nil && !os.IsNotExist(err) {
				s.logger.Error("failed to delete screenshot", "ref", ref, "error", err)
				result.Errors = append(result.Errors, err)
				continue
			}
			result.ScreenshotsDeleted++
		}
		s.logger.Info("pruned screenshots", "count", result.ScreenshotsDeleted)
	}

	s.logger.Info("retention sweep completed",
		"history_deleted", result.HistoryDeleted,
		"notifications_deleted", result.NotificationsDeleted,
		"screenshots_deleted", result.ScreenshotsDeleted,
		"errors", len(result.Errors),
	)

	return result, nil
}

// RunScheduled runs Sweep immediately and then at the given interval until
// ctx is cancelled.
func (s *CleanupService) RunScheduled(ctx context.Context, retentionHistory, retentionNotifications, retentionScreenshots, interval time.Duration) {
	s.logger.Info("starting scheduled retention sweep", "interval", interval.String())

	if _, err := s.Sweep(ctx, retentionHistory, retentionNotifications, retentionScreenshots); err != nil {
		s.logger.Error("initial retention sweep failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduled retention sweep stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx, retentionHistory, retentionNotifications, retentionScreenshots); err != nil {
				s.logger.Error("scheduled retention sweep failed", "error", err)
			}
		}
	}
}
