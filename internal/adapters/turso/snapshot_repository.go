package turso

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/emiliopalmerini/agentsync/internal/ports"
)

// SnapshotRepository persists cache view snapshots in the
// cache_snapshots table.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a SnapshotRepository.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Save(ctx context.Context, snapshot ports.Snapshot) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cache_snapshots (view_key, payload, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(view_key) DO UPDATE SET
			payload = excluded.payload,
			fetched_at = excluded.fetched_at
	`, snapshot.ViewKey, snapshot.Payload, snapshot.FetchedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snapshot.ViewKey, err)
	}
	return nil
}

func (r *SnapshotRepository) Load(ctx context.Context, viewKey string) (*ports.Snapshot, error) {
	var payload []byte
	var fetchedAt string
	err := r.db.QueryRowContext(ctx, `
		SELECT payload, fetched_at FROM cache_snapshots WHERE view_key = ?
	`, viewKey).Scan(&payload, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", viewKey, err)
	}

	ts, err := time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s has invalid fetched_at %q: %w", viewKey, fetchedAt, err)
	}
	return &ports.Snapshot{ViewKey: viewKey, Payload: payload, FetchedAt: ts}, nil
}

func (r *SnapshotRepository) Prune(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM cache_snapshots WHERE fetched_at < ?
	`, cutoff.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return nil
}
