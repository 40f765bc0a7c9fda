package turso

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ReadMarkRepository persists locally read notification ids in the
// read_marks table.
type ReadMarkRepository struct {
	db *sql.DB
}

// NewReadMarkRepository creates a ReadMarkRepository.
func NewReadMarkRepository(db *sql.DB) *ReadMarkRepository {
	return &ReadMarkRepository{db: db}
}

func (r *ReadMarkRepository) MarkRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Format(time.RFC3339)
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO read_marks (notification_id, marked_at)
			VALUES (?, ?)
			ON CONFLICT(notification_id) DO NOTHING
		`, id, now); err != nil {
			return fmt.Errorf("failed to mark %s read: %w", id, err)
		}
	}
	return tx.Commit()
}

func (r *ReadMarkRepository) ReadIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT notification_id FROM read_marks`)
	if err != nil {
		return nil, fmt.Errorf("failed to list read marks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan read mark: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ReadMarkRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM read_marks`); err != nil {
		return fmt.Errorf("failed to clear read marks: %w", err)
	}
	return nil
}
