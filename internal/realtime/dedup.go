// Package realtime implements the push side of the sync engine: the
// streaming transport with reconnection, the event deduplicator, the
// per-entity update serializer, and the engine that wires them into
// the cache reconciler.
package realtime

import (
	"sync"
	"time"

	"github.com/emiliopalmerini/agentsync/internal/domain"
)

const (
	// dedupWindow is how close together two identical frames must
	// arrive to be treated as one delivery.
	dedupWindow = 100 * time.Millisecond

	// dedupHorizon bounds the memory of the deduplicator: entries
	// older than this are evicted on every check.
	dedupHorizon = time.Second
)

// Deduplicator drops near-duplicate deliveries of the same frame.
// At-least-once transports redeliver identical frames within tight
// windows; without this, a progress delta would be applied twice and
// a review notice would fire twice.
type Deduplicator struct {
	window  time.Duration
	horizon time.Duration
	now     func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewDeduplicator creates a deduplicator with the reference window
// (100 ms) and eviction horizon (1 s).
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{
		window:  dedupWindow,
		horizon: dedupHorizon,
		now:     time.Now,
		seen:    make(map[string]time.Time),
	}
}

// IsDuplicate reports whether an identical frame (same type and same
// serialized payload) was seen within the window, recording this one
// either way. Two distinct payloads for the same entity never match.
func (d *Deduplicator) IsDuplicate(ev domain.Event) bool {
	key := ev.DedupKey()
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	for k, seenAt := range d.seen {
		if now.Sub(seenAt) > d.horizon {
			delete(d.seen, k)
		}
	}

	if seenAt, ok := d.seen[key]; ok && now.Sub(seenAt) < d.window {
		return true
	}
	d.seen[key] = now
	return false
}
