package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmylchreest/pagewatch/internal/models"
)

// SQLitePriceComparisonRepository implements PriceComparisonRepository.
type SQLitePriceComparisonRepository struct {
	db *sql.DB
}

func NewSQLitePriceComparisonRepository(db *sql.DB) *SQLitePriceComparisonRepository {
	return &SQLitePriceComparisonRepository{db: db}
}

func (r *SQLitePriceComparisonRepository) Create(ctx context.Context, c *models.PriceComparison) error {
	sourcesJSON, err := json.Marshal(c.Sources)
	if err != nil {
		return fmt.Errorf("marshal comparison sources: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO price_comparisons (id, product_id, sources_json, best_source_id, best_value, worst_value, avg_value, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.ProductID, string(sourcesJSON), c.BestSourceID, string(c.BestValue),
		nullRaw(c.WorstValue), nullRaw(c.AvgValue), c.Timestamp.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("create price comparison: %w", err)
	}
	return nil
}

func (r *SQLitePriceComparisonRepository) GetLatestByProduct(ctx context.Context, productID string) (*models.PriceComparison, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, product_id, sources_json, best_source_id, best_value, worst_value, avg_value, timestamp
		FROM price_comparisons WHERE product_id = ? ORDER BY timestamp DESC LIMIT 1
	`, productID)

	var c models.PriceComparison
	var sourcesJSON, bestValue string
	var worstValue, avgValue sql.NullString
	var ts string
	if err := row.Scan(&c.ID, &c.ProductID, &sourcesJSON, &c.BestSourceID, &bestValue, &worstValue, &avgValue, &ts); err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("get price comparison: %w", err)
	}

	if err := json.Unmarshal([]byte(sourcesJSON), &c.Sources); err != nil {
		return nil, fmt.Errorf("unmarshal comparison sources: %w", err)
	}
	c.BestValue = []byte(bestValue)
	if worstValue.Valid {
		c.WorstValue = []byte(worstValue.String)
	}
	if avgValue.Valid {
		c.AvgValue = []byte(avgValue.String)
	}
	c.Timestamp, _ = time.Parse(time.RFC3339, ts)
	return &c, nil
}
