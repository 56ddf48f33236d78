package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmylchreest/pagewatch/internal/models"
)

// SQLiteFalsePositiveRepository implements FalsePositiveRepository.
type SQLiteFalsePositiveRepository struct {
	db *sql.DB
}

func NewSQLiteFalsePositiveRepository(db *sql.DB) *SQLiteFalsePositiveRepository {
	return &SQLiteFalsePositiveRepository{db: db}
}

func (r *SQLiteFalsePositiveRepository) Create(ctx context.Context, fp *models.FalsePositive) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO false_positives (id, source_id, detected_text, detected_value, actual_text, html_context, screenshot_ref, notes, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, fp.ID, fp.SourceID, fp.DetectedText, nullRaw(fp.DetectedValue), nullString(fp.ActualText),
		fp.HTMLContext, nullString(fp.ScreenshotRef), nullString(fp.Notes), fp.Timestamp.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("create false positive: %w", err)
	}
	return nil
}

func (r *SQLiteFalsePositiveRepository) GetBySource(ctx context.Context, sourceID string) ([]models.FalsePositive, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source_id, detected_text, detected_value, actual_text, html_context, screenshot_ref, notes, timestamp
		FROM false_positives WHERE source_id = ?
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("list false positives: %w", err)
	}
	defer rows.Close()

	var out []models.FalsePositive
	for rows.Next() {
		var fp models.FalsePositive
		var detectedValue, actualText, screenshotRef, notes sql.NullString
		var ts string
		if err := rows.Scan(&fp.ID, &fp.SourceID, &fp.DetectedText, &detectedValue, &actualText, &fp.HTMLContext, &screenshotRef, &notes, &ts); err != nil {
			return nil, fmt.Errorf("scan false positive: %w", err)
		}
		if detectedValue.Valid {
			fp.DetectedValue = []byte(detectedValue.String)
		}
		fp.ActualText = actualText.String
		fp.ScreenshotRef = screenshotRef.String
		fp.Notes = notes.String
		fp.Timestamp, _ = time.Parse(time.RFC3339, ts)
		out = append(out, fp)
	}
	return out, rows.Err()
}

func (r *SQLiteFalsePositiveRepository) ScreenshotRefsOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT screenshot_ref FROM false_positives
		WHERE timestamp < ? AND screenshot_ref IS NOT NULL AND screenshot_ref != ''
	`, cutoff.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("list old screenshot refs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("scan screenshot ref: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}
