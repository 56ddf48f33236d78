package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmylchreest/pagewatch/internal/models"
)

// SQLiteSystemSettingRepository implements SystemSettingRepository.
type SQLiteSystemSettingRepository struct {
	db *sql.DB
}

func NewSQLiteSystemSettingRepository(db *sql.DB) *SQLiteSystemSettingRepository {
	return &SQLiteSystemSettingRepository{db: db}
}

func (r *SQLiteSystemSettingRepository) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM system_settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get system setting: %w", err)
	}
	return &models.SystemSetting{Key: key, Value: []byte(value)}, nil
}

func (r *SQLiteSystemSettingRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO system_settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, string(value))
	if err != nil {
		return fmt.Errorf("set system setting: %w", err)
	}
	return nil
}
