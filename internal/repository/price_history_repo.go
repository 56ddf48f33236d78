package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmylchreest/pagewatch/internal/models"
)

// SQLitePriceHistoryRepository implements PriceHistoryRepository.
type SQLitePriceHistoryRepository struct {
	db *sql.DB
}

func NewSQLitePriceHistoryRepository(db *sql.DB) *SQLitePriceHistoryRepository {
	return &SQLitePriceHistoryRepository{db: db}
}

func (r *SQLitePriceHistoryRepository) Append(ctx context.Context, h *models.PriceHistory) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO price_history (id, source_id, value, text, timestamp) VALUES (?, ?, ?, ?, ?)
	`, h.ID, h.SourceID, string(h.Value), h.Text, h.Timestamp.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("append price history: %w", err)
	}
	return nil
}

func (r *SQLitePriceHistoryRepository) GetBySource(ctx context.Context, sourceID string, limit int) ([]*models.PriceHistory, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source_id, value, text, timestamp FROM price_history
		WHERE source_id = ? ORDER BY timestamp DESC LIMIT ?
	`, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list price history: %w", err)
	}
	defer rows.Close()

	var out []*models.PriceHistory
	for rows.Next() {
		var h models.PriceHistory
		var value, ts string
		if err := rows.Scan(&h.ID, &h.SourceID, &value, &h.Text, &ts); err != nil {
			return nil, fmt.Errorf("scan price history: %w", err)
		}
		h.Value = []byte(value)
		h.Timestamp, _ = time.Parse(time.RFC3339, ts)
		out = append(out, &h)
	}
	return out, rows.Err()
}

func (r *SQLitePriceHistoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM price_history WHERE timestamp < ?`, cutoff.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("delete old price history: %w", err)
	}
	return res.RowsAffected()
}
