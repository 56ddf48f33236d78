package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmylchreest/pagewatch/internal/models"
)

// SQLiteSourceRepository implements SourceRepository for SQLite/libsql.
type SQLiteSourceRepository struct {
	db *sql.DB
}

func NewSQLiteSourceRepository(db *sql.DB) *SQLiteSourceRepository {
	return &SQLiteSourceRepository{db: db}
}

const sourceColumns = `id, product_id, url, store_name, title, selector, selector_type,
	original_text, original_value, current_text, current_value, is_active, last_checked, error_count, last_error`

func (r *SQLiteSourceRepository) Create(ctx context.Context, s *models.Source) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sources (`+sourceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.ID, s.ProductID, s.URL, nullString(s.StoreName), nullString(s.Title), nullString(s.Selector), s.SelectorType,
		nullString(s.OriginalText), nullRaw(s.OriginalValue), nullString(s.CurrentText), nullRaw(s.CurrentValue),
		boolInt(s.IsActive), nullTime(s.LastChecked), s.ErrorCount, nullString(s.LastError),
	)
	if err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	return nil
}

func (r *SQLiteSourceRepository) Get(ctx context.Context, id string) (*models.Source, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	s, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	return s, nil
}

func (r *SQLiteSourceRepository) GetByProduct(ctx context.Context, productID string) ([]*models.Source, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE product_id = ? ORDER BY id`, productID)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []*models.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteSourceRepository) Update(ctx context.Context, s *models.Source) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sources SET url = ?, store_name = ?, title = ?, selector = ?, selector_type = ?,
			original_text = ?, original_value = ?, current_text = ?, current_value = ?,
			is_active = ?, last_checked = ?, error_count = ?, last_error = ?
		WHERE id = ?
	`,
		s.URL, nullString(s.StoreName), nullString(s.Title), nullString(s.Selector), s.SelectorType,
		nullString(s.OriginalText), nullRaw(s.OriginalValue), nullString(s.CurrentText), nullRaw(s.CurrentValue),
		boolInt(s.IsActive), nullTime(s.LastChecked), s.ErrorCount, nullString(s.LastError),
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	return nil
}

func (r *SQLiteSourceRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	return nil
}

func scanSource(row scanner) (*models.Source, error) {
	var s models.Source
	var storeName, title, selector, originalText, originalValue, currentText, currentValue, lastChecked, lastError sql.NullString

	if err := row.Scan(&s.ID, &s.ProductID, &s.URL, &storeName, &title, &selector, &s.SelectorType,
		&originalText, &originalValue, &currentText, &currentValue, &s.IsActive, &lastChecked, &s.ErrorCount, &lastError); err != nil {
		return nil, err
	}

	s.StoreName = storeName.String
	s.Title = title.String
	s.Selector = selector.String
	s.OriginalText = originalText.String
	if originalValue.Valid {
		s.OriginalValue = []byte(originalValue.String)
	}
	s.CurrentText = currentText.String
	if currentValue.Valid {
		s.CurrentValue = []byte(currentValue.String)
	}
	s.LastError = lastError.String
	if lastChecked.Valid {
		t, _ := time.Parse(time.RFC3339, lastChecked.String)
		s.LastChecked = &t
	}
	return &s, nil
}
