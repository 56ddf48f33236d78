package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmylchreest/pagewatch/internal/models"
)

// SQLiteJobInfoRepository persists JobInfo rows for scheduler recovery
// only — the scheduler's in-memory map is authoritative at runtime (§9).
type SQLiteJobInfoRepository struct {
	db *sql.DB
}

func NewSQLiteJobInfoRepository(db *sql.DB) *SQLiteJobInfoRepository {
	return &SQLiteJobInfoRepository{db: db}
}

func (r *SQLiteJobInfoRepository) Upsert(ctx context.Context, j *models.JobInfo) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (job_id, product_id, cron, status, created_at, last_run, next_run, run_count, success_count, error_count, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET
			cron = excluded.cron, status = excluded.status, last_run = excluded.last_run,
			next_run = excluded.next_run, run_count = excluded.run_count,
			success_count = excluded.success_count, error_count = excluded.error_count,
			last_error = excluded.last_error
	`, j.JobID, j.ProductID, j.Cron, j.Status, j.CreatedAt.Format(time.RFC3339),
		nullTime(j.LastRun), nullTime(j.NextRun), j.RunCount, j.SuccessCount, j.ErrorCount, nullString(j.LastError))
	if err != nil {
		return fmt.Errorf("upsert job info: %w", err)
	}
	return nil
}

func (r *SQLiteJobInfoRepository) Get(ctx context.Context, productID string) (*models.JobInfo, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT job_id, product_id, cron, status, created_at, last_run, next_run, run_count, success_count, error_count, last_error
		FROM jobs WHERE product_id = ?
	`, productID)
	j, err := scanJobInfo(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job info: %w", err)
	}
	return j, nil
}

func (r *SQLiteJobInfoRepository) Delete(ctx context.Context, productID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE product_id = ?`, productID); err != nil {
		return fmt.Errorf("delete job info: %w", err)
	}
	return nil
}

func (r *SQLiteJobInfoRepository) ListAll(ctx context.Context) ([]*models.JobInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT job_id, product_id, cron, status, created_at, last_run, next_run, run_count, success_count, error_count, last_error
		FROM jobs
	`)
	if err != nil {
		return nil, fmt.Errorf("list job infos: %w", err)
	}
	defer rows.Close()

	var out []*models.JobInfo
	for rows.Next() {
		j, err := scanJobInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job info: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func scanJobInfo(row scanner) (*models.JobInfo, error) {
	var j models.JobInfo
	var createdAt string
	var lastRun, nextRun, lastError sql.NullString
	if err := row.Scan(&j.JobID, &j.ProductID, &j.Cron, &j.Status, &createdAt, &lastRun, &nextRun,
		&j.RunCount, &j.SuccessCount, &j.ErrorCount, &lastError); err != nil {
		return nil, err
	}
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if lastRun.Valid {
		t, _ := time.Parse(time.RFC3339, lastRun.String)
		j.LastRun = &t
	}
	if nextRun.Valid {
		t, _ := time.Parse(time.RFC3339, nextRun.String)
		j.NextRun = &t
	}
	j.LastError = lastError.String
	return &j, nil
}
