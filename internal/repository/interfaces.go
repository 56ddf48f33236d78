// Package repository defines data access interfaces for the
// product-tracking control loop and their SQLite/libsql implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmylchreest/pagewatch/internal/models"
)

// ErrNotFound is the not-found sentinel returned by Get* methods.
var ErrNotFound = errors.New("repository: not found")

// ProductFilter narrows ListProducts results.
type ProductFilter struct {
	Active *bool
	Kind   *models.TrackerKind
	Search string
}

// ProductRepository defines methods for product data access.
type ProductRepository interface {
	Create(ctx context.Context, p *models.Product) error
	Get(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context, page, perPage int, filter ProductFilter) ([]*models.Product, error)
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
	// ListActiveUnpaused returns every product eligible to be scheduled,
	// used to rehydrate the scheduler on startup.
	ListActiveUnpaused(ctx context.Context) ([]*models.Product, error)
}

// SourceRepository defines methods for source data access.
type SourceRepository interface {
	Create(ctx context.Context, s *models.Source) error
	Get(ctx context.Context, id string) (*models.Source, error)
	GetByProduct(ctx context.Context, productID string) ([]*models.Source, error)
	Update(ctx context.Context, s *models.Source) error
	Delete(ctx context.Context, id string) error
}

// PriceHistoryRepository defines methods for the append-only history log.
type PriceHistoryRepository interface {
	Append(ctx context.Context, h *models.PriceHistory) error
	GetBySource(ctx context.Context, sourceID string, limit int) ([]*models.PriceHistory, error)
	// DeleteOlderThan prunes history entries with timestamp before cutoff,
	// returning the number of rows removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PriceComparisonRepository defines methods for derived comparison snapshots.
type PriceComparisonRepository interface {
	Create(ctx context.Context, c *models.PriceComparison) error
	GetLatestByProduct(ctx context.Context, productID string) (*models.PriceComparison, error)
}

// NotificationLogRepository defines methods for dispatch attempt records.
type NotificationLogRepository interface {
	Create(ctx context.Context, n *models.NotificationLog) error
	GetByProduct(ctx context.Context, productID string, limit int) ([]*models.NotificationLog, error)
	MarkActioned(ctx context.Context, id string, action models.NotificationAction) error
	// DeleteOlderThan prunes log entries with timestamp before cutoff,
	// returning the number of rows removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// FalsePositiveRepository defines methods for negative selector feedback.
type FalsePositiveRepository interface {
	Create(ctx context.Context, fp *models.FalsePositive) error
	GetBySource(ctx context.Context, sourceID string) ([]models.FalsePositive, error)
	// ScreenshotRefsOlderThan returns the non-empty screenshot_ref values of
	// entries recorded before cutoff, for the screenshot-retention sweep.
	ScreenshotRefsOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}

// JobInfoRepository persists JobInfo for scheduler startup recovery only;
// the scheduler's in-memory map remains the source of truth.
type JobInfoRepository interface {
	Upsert(ctx context.Context, j *models.JobInfo) error
	Get(ctx context.Context, productID string) (*models.JobInfo, error)
	Delete(ctx context.Context, productID string) error
	ListAll(ctx context.Context) ([]*models.JobInfo, error)
}

// SystemSettingRepository defines methods for key/value settings.
type SystemSettingRepository interface {
	Get(ctx context.Context, key string) (*models.SystemSetting, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repositories holds all repository instances, wired against one *sql.DB.
type Repositories struct {
	Product           ProductRepository
	Source            SourceRepository
	PriceHistory      PriceHistoryRepository
	PriceComparison   PriceComparisonRepository
	NotificationLog   NotificationLogRepository
	FalsePositive     FalsePositiveRepository
	JobInfo           JobInfoRepository
	SystemSetting     SystemSettingRepository
}

// NewRepositories creates all repository instances.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Product:         NewSQLiteProductRepository(db),
		Source:          NewSQLiteSourceRepository(db),
		PriceHistory:    NewSQLitePriceHistoryRepository(db),
		PriceComparison: NewSQLitePriceComparisonRepository(db),
		NotificationLog: NewSQLiteNotificationLogRepository(db),
		FalsePositive:   NewSQLiteFalsePositiveRepository(db),
		JobInfo:         NewSQLiteJobInfoRepository(db),
		SystemSetting:   NewSQLiteSystemSettingRepository(db),
	}
}
