package cache

import (
	"testing"
	"time"

	"github.com/emiliopalmerini/agentsync/internal/domain"
)

func TestStoreViewContainment(t *testing.T) {
	store := NewStore(time.Minute)
	store.SetSessionList(SessionListView{Status: domain.StatusRunning}, []domain.Session{
		{ID: "s1", Status: domain.StatusRunning, Progress: 10},
	})
	store.SetSessionList(SessionListView{Status: domain.StatusAwaitingReview}, []domain.Session{
		{ID: "s2", Status: domain.StatusAwaitingReview, Progress: 100},
	})

	_, applied := store.ApplySession("s2", func(s domain.Session) (domain.Session, bool) {
		s.Progress = 99
		return s, true
	})
	if !applied {
		t.Fatal("expected mutation for held entity to apply")
	}

	running, _, _ := store.SessionList(SessionListView{Status: domain.StatusRunning})
	if len(running) != 1 || running[0].ID != "s1" || running[0].Progress != 10 {
		t.Errorf("view not holding the entity was altered: %+v", running)
	}
	review, _, _ := store.SessionList(SessionListView{Status: domain.StatusAwaitingReview})
	if review[0].Progress != 99 {
		t.Errorf("holder view not updated, got progress %d", review[0].Progress)
	}
}

func TestStoreNeverResurrects(t *testing.T) {
	store := NewStore(time.Minute)
	store.SetSessionList(SessionListView{}, []domain.Session{
		{ID: "s1", Status: domain.StatusRunning},
	})

	_, applied := store.ApplySession("ghost", func(s domain.Session) (domain.Session, bool) {
		return s, true
	})
	if applied {
		t.Fatal("mutation for an unheld entity must be a no-op")
	}
	all, _, _ := store.SessionList(SessionListView{})
	if len(all) != 1 {
		t.Errorf("expected 1 session, got %d", len(all))
	}
}

func TestStoreDetailListParity(t *testing.T) {
	store := NewStore(time.Minute)
	store.SetSessionList(SessionListView{}, []domain.Session{
		{ID: "s1", Status: domain.StatusRunning, Progress: 40},
	})
	store.SetSessionDetail(domain.Session{ID: "s1", Status: domain.StatusRunning, Progress: 40})

	store.ApplySession("s1", func(s domain.Session) (domain.Session, bool) {
		s.Progress = 55
		return s, true
	})

	detail, _, ok := store.SessionDetail("s1")
	if !ok || detail.Progress != 55 {
		t.Errorf("detail view out of sync: %+v", detail)
	}
	list, _, _ := store.SessionList(SessionListView{})
	if list[0].Progress != 55 {
		t.Errorf("list view out of sync: %+v", list[0])
	}
}

func TestStoreDetailOnlyReconciliation(t *testing.T) {
	store := NewStore(time.Minute)
	store.SetSessionDetail(domain.Session{ID: "s1", Status: domain.StatusRunning, Progress: 10})

	_, applied := store.ApplySession("s1", func(s domain.Session) (domain.Session, bool) {
		s.Progress = 20
		return s, true
	})
	if !applied {
		t.Fatal("detail view alone must be reconcilable")
	}
	detail, _, _ := store.SessionDetail("s1")
	if detail.Progress != 20 {
		t.Errorf("expected progress 20, got %d", detail.Progress)
	}
}

func TestStoreReaderIsolation(t *testing.T) {
	store := NewStore(time.Minute)
	store.SetSessionList(SessionListView{}, []domain.Session{
		{ID: "s1", Status: domain.StatusRunning, Progress: 10},
	})

	snapshot, _, _ := store.SessionList(SessionListView{})
	snapshot[0].Progress = 90

	fresh, _, _ := store.SessionList(SessionListView{})
	if fresh[0].Progress != 10 {
		t.Error("reader mutation leaked into the store")
	}
}

func TestStoreTTL(t *testing.T) {
	store := NewStore(time.Minute)
	current := time.Unix(1000, 0)
	store.now = func() time.Time { return current }

	store.SetSessionList(SessionListView{}, []domain.Session{{ID: "s1", Status: domain.StatusRunning}})

	_, fresh, ok := store.SessionList(SessionListView{})
	if !ok || !fresh {
		t.Fatal("snapshot should be fresh immediately after set")
	}

	current = current.Add(2 * time.Minute)
	sessions, fresh, ok := store.SessionList(SessionListView{})
	if !ok || fresh {
		t.Error("snapshot should be stale after the TTL")
	}
	if len(sessions) != 1 {
		t.Error("stale snapshot should still return cached data")
	}
}

func TestStoreInvalidateAll(t *testing.T) {
	store := NewStore(time.Minute)
	store.SetSessionList(SessionListView{}, []domain.Session{{ID: "s1", Status: domain.StatusRunning}})
	store.SetNotificationList(NotificationListView{}, []domain.Notification{
		{ID: "n1", Type: domain.NotificationReview, Unread: true},
	})

	store.InvalidateAll()

	if _, fresh, ok := store.SessionList(SessionListView{}); !ok || fresh {
		t.Error("session list should be stale but still present")
	}
	if _, fresh, ok := store.NotificationList(NotificationListView{}); !ok || fresh {
		t.Error("notification list should be stale but still present")
	}
}

func TestStoreInsertSession(t *testing.T) {
	store := NewStore(time.Minute)
	store.SetSessionList(SessionListView{}, nil)
	store.SetSessionList(SessionListView{Status: domain.StatusDone}, nil)

	store.InsertSession(domain.Session{ID: "s1", Status: domain.StatusRunning})

	all, _, _ := store.SessionList(SessionListView{})
	if len(all) != 1 {
		t.Errorf("unfiltered list should gain the session, got %d entries", len(all))
	}
	done, _, _ := store.SessionList(SessionListView{Status: domain.StatusDone})
	if len(done) != 0 {
		t.Error("non-matching filtered list must not gain the session")
	}
	if _, _, ok := store.SessionDetail("s1"); !ok {
		t.Error("insert should populate the detail view")
	}
}
