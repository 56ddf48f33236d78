package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmylchreest/pagewatch/internal/models"
)

// SQLiteNotificationLogRepository implements NotificationLogRepository.
type SQLiteNotificationLogRepository struct {
	db *sql.DB
}

func NewSQLiteNotificationLogRepository(db *sql.DB) *SQLiteNotificationLogRepository {
	return &SQLiteNotificationLogRepository{db: db}
}

func (r *SQLiteNotificationLogRepository) Create(ctx context.Context, n *models.NotificationLog) error {
	var action sql.NullString
	if n.Action != nil {
		action = sql.NullString{String: string(*n.Action), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_logs (id, product_id, notifier_kind, status, action, error, timestamp, actioned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.ProductID, n.NotifierKind, n.Status, action, nullString(n.Error),
		n.Timestamp.Format(time.RFC3339), nullTime(n.ActionedAt))
	if err != nil {
		return fmt.Errorf("create notification log: %w", err)
	}
	return nil
}

func (r *SQLiteNotificationLogRepository) GetByProduct(ctx context.Context, productID string, limit int) ([]*models.NotificationLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, notifier_kind, status, action, error, timestamp, actioned_at
		FROM notification_logs WHERE product_id = ? ORDER BY timestamp DESC LIMIT ?
	`, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notification logs: %w", err)
	}
	defer rows.Close()

	var out []*models.NotificationLog
	for rows.Next() {
		n, err := scanNotificationLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification log: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *SQLiteNotificationLogRepository) MarkActioned(ctx context.Context, id string, action models.NotificationAction) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notification_logs SET status = ?, action = ?, actioned_at = ? WHERE id = ?
	`, models.NotificationActioned, string(action), time.Now().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("mark notification actioned: %w", err)
	}
	return nil
}

func (r *SQLiteNotificationLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notification_logs WHERE timestamp < ?`, cutoff.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("delete old notification logs: %w", err)
	}
	return res.RowsAffected()
}

func scanNotificationLog(row scanner) (*models.NotificationLog, error) {
	var n models.NotificationLog
	var action, errMsg, actionedAt sql.NullString
	var ts string
	if err := row.Scan(&n.ID, &n.ProductID, &n.NotifierKind, &n.Status, &action, &errMsg, &ts, &actionedAt); err != nil {
		return nil, err
	}
	if action.Valid {
		a := models.NotificationAction(action.String)
		n.Action = &a
	}
	n.Error = errMsg.String
	n.Timestamp, _ = time.Parse(time.RFC3339, ts)
	if actionedAt.Valid {
		t, _ := time.Parse(time.RFC3339, actionedAt.String)
		n.ActionedAt = &t
	}
	return &n, nil
}
