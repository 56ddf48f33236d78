package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmylchreest/pagewatch/internal/models"
)

// SQLiteProductRepository implements ProductRepository for SQLite/libsql.
type SQLiteProductRepository struct {
	db *sql.DB
}

func NewSQLiteProductRepository(db *sql.DB) *SQLiteProductRepository {
	return &SQLiteProductRepository{db: db}
}

const productColumns = `id, name, description, kind, notify_policy, threshold_kind, threshold_value,
	cron, is_active, is_paused, best_source_id, best_value, created_at, updated_at, last_checked, next_check`

func (r *SQLiteProductRepository) Create(ctx context.Context, p *models.Product) error {
	tk, tv := thresholdColumns(p.Threshold)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.Name, nullString(p.Description), p.Kind, p.NotifyPolicy, tk, tv,
		p.Cron, boolInt(p.IsActive), boolInt(p.IsPaused), nullStringPtr(p.BestSourceID),
		nullRaw(p.BestValue), p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339),
		nullTime(p.LastChecked), nullTime(p.NextCheck),
	)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *SQLiteProductRepository) Get(ctx context.Context, id string) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *SQLiteProductRepository) List(ctx context.Context, page, perPage int, filter ProductFilter) ([]*models.Product, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	var args []any
	if filter.Active != nil {
		query += ` AND is_active = ?`
		args = append(args, boolInt(*filter.Active))
	}
	if filter.Kind != nil {
		query += ` AND kind = ?`
		args = append(args, *filter.Kind)
	}
	if filter.Search != "" {
		query += ` AND name LIKE ?`
		args = append(args, "%"+filter.Search+"%")
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteProductRepository) ListActiveUnpaused(ctx context.Context) ([]*models.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products WHERE is_active = 1 AND is_paused = 0`)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	defer rows.Close()

	var out []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteProductRepository) Update(ctx context.Context, p *models.Product) error {
	tk, tv := thresholdColumns(p.Threshold)
	_, err := r.db.ExecContext(ctx, `
		UPDATE products SET name = ?, description = ?, kind = ?, notify_policy = ?,
			threshold_kind = ?, threshold_value = ?, cron = ?, is_active = ?, is_paused = ?,
			best_source_id = ?, best_value = ?, updated_at = ?, last_checked = ?, next_check = ?
		WHERE id = ?
	`,
		p.Name, nullString(p.Description), p.Kind, p.NotifyPolicy, tk, tv,
		p.Cron, boolInt(p.IsActive), boolInt(p.IsPaused), nullStringPtr(p.BestSourceID),
		nullRaw(p.BestValue), p.UpdatedAt.Format(time.RFC3339), nullTime(p.LastChecked), nullTime(p.NextCheck),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *SQLiteProductRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func thresholdColumns(t *models.Threshold) (sql.NullString, sql.NullFloat64) {
	if t == nil {
		return sql.NullString{}, sql.NullFloat64{}
	}
	return sql.NullString{String: string(t.Kind), Valid: true}, sql.NullFloat64{Float64: t.Value, Valid: true}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*models.Product, error) {
	var p models.Product
	var desc, bestSourceID, lastChecked, nextCheck sql.NullString
	var thresholdKind sql.NullString
	var thresholdValue sql.NullFloat64
	var bestValue sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&p.ID, &p.Name, &desc, &p.Kind, &p.NotifyPolicy, &thresholdKind, &thresholdValue,
		&p.Cron, &p.IsActive, &p.IsPaused, &bestSourceID, &bestValue, &createdAt, &updatedAt, &lastChecked, &nextCheck); err != nil {
		return nil, err
	}

	p.Description = desc.String
	if thresholdKind.Valid {
		p.Threshold = &models.Threshold{Kind: models.ThresholdKind(thresholdKind.String), Value: thresholdValue.Float64}
	}
	if bestSourceID.Valid {
		v := bestSourceID.String
		p.BestSourceID = &v
	}
	if bestValue.Valid {
		p.BestValue = []byte(bestValue.String)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if lastChecked.Valid {
		t, _ := time.Parse(time.RFC3339, lastChecked.String)
		p.LastChecked = &t
	}
	if nextCheck.Valid {
		t, _ := time.Parse(time.RFC3339, nextCheck.String)
		p.NextCheck = &t
	}
	return &p, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullRaw(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}
