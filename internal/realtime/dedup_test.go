package realtime

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/emiliopalmerini/agentsync/internal/domain"
)

func progressEvent(sessionID string, progress int) domain.Event {
	return domain.Event{
		Type: domain.EventProgress,
		Data: json.RawMessage(fmt.Sprintf(`{"sessionId":%q,"progress":%d}`, sessionID, progress)),
	}
}

func TestDedupIdenticalWithinWindow(t *testing.T) {
	current := time.Unix(1000, 0)
	dedup := NewDeduplicator()
	dedup.now = func() time.Time { return current }

	ev := progressEvent("s1", 40)
	if dedup.IsDuplicate(ev) {
		t.Fatal("first delivery must not be a duplicate")
	}
	current = current.Add(50 * time.Millisecond)
	if !dedup.IsDuplicate(ev) {
		t.Error("identical frame 50ms later must be a duplicate")
	}
}

func TestDedupDistinctPayloadsSameEntity(t *testing.T) {
	dedup := NewDeduplicator()

	if dedup.IsDuplicate(progressEvent("s1", 40)) {
		t.Fatal("first delivery must not be a duplicate")
	}
	if dedup.IsDuplicate(progressEvent("s1", 41)) {
		t.Error("a different payload for the same entity is not a duplicate")
	}
}

func TestDedupWindowExpiry(t *testing.T) {
	current := time.Unix(1000, 0)
	dedup := NewDeduplicator()
	dedup.now = func() time.Time { return current }

	ev := progressEvent("s1", 40)
	dedup.IsDuplicate(ev)

	current = current.Add(200 * time.Millisecond)
	if dedup.IsDuplicate(ev) {
		t.Error("identical frame outside the window must pass")
	}
}

func TestDedupHorizonEviction(t *testing.T) {
	current := time.Unix(1000, 0)
	dedup := NewDeduplicator()
	dedup.now = func() time.Time { return current }

	for i := 0; i < 100; i++ {
		dedup.IsDuplicate(progressEvent("s1", i))
	}
	current = current.Add(2 * time.Second)
	dedup.IsDuplicate(progressEvent("s1", 100))

	dedup.mu.Lock()
	size := len(dedup.seen)
	dedup.mu.Unlock()
	if size != 1 {
		t.Errorf("entries past the horizon must be evicted, %d remain", size)
	}
}
