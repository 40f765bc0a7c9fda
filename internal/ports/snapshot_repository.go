package ports

import (
	"context"
	"time"
)

// Snapshot is one persisted cache view: the serialized entities plus
// the time they were fetched from the server.
type Snapshot struct {
	ViewKey   string
	Payload   []byte
	FetchedAt time.Time
}

// SnapshotRepository persists cache view snapshots for warm starts.
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Load(ctx context.Context, viewKey string) (*Snapshot, error)

	// Prune removes snapshots fetched before the cutoff.
	Prune(ctx context.Context, cutoff time.Time) error
}

// ReadMarkRepository persists locally read notification ids so read
// state survives restarts even when the server has not caught up.
type ReadMarkRepository interface {
	MarkRead(ctx context.Context, ids []string) error
	ReadIDs(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}
