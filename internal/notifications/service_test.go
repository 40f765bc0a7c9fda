package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emiliopalmerini/agentsync/internal/cache"
	"github.com/emiliopalmerini/agentsync/internal/domain"
)

func seededStore(notifications ...domain.Notification) *cache.Store {
	store := cache.NewStore(time.Minute)
	store.SetNotificationList(cache.NotificationListView{}, notifications)
	return store
}

func TestMarkReadOptimistic(t *testing.T) {
	store := seededStore(
		domain.Notification{ID: "n1", Type: domain.NotificationReview, Unread: true},
		domain.Notification{ID: "n2", Type: domain.NotificationIssue, Unread: true},
	)

	var calledWith []string
	service := NewService(&MockAPI{
		MarkNotificationsReadFunc: func(ctx context.Context, ids []string) error {
			// The cache is already flipped by the time the server is
			// asked: that is the optimistic half of the cycle.
			list, _, _ := store.NotificationList(cache.NotificationListView{})
			for _, n := range list {
				if n.ID == "n1" && n.Unread {
					t.Error("optimistic flip not applied before server call")
				}
			}
			calledWith = ids
			return nil
		},
	}, store, nil, nil, nil)

	if err := service.MarkRead(context.Background(), []string{"n1"}); err != nil {
		t.Fatal(err)
	}
	if len(calledWith) != 1 || calledWith[0] != "n1" {
		t.Errorf("unexpected ids sent to server: %v", calledWith)
	}

	list, _, _ := store.NotificationList(cache.NotificationListView{})
	if list[0].Unread {
		t.Error("n1 should remain read after server confirmation")
	}
	if !list[1].Unread {
		t.Error("n2 must be untouched")
	}
}

func TestMarkReadRollsBackOnFailure(t *testing.T) {
	store := seededStore(domain.Notification{ID: "n1", Type: domain.NotificationReview, Unread: true})

	service := NewService(&MockAPI{
		MarkNotificationsReadFunc: func(ctx context.Context, ids []string) error {
			return errors.New("server unavailable")
		},
	}, store, nil, nil, nil)

	if err := service.MarkRead(context.Background(), []string{"n1"}); err == nil {
		t.Fatal("expected the server failure to propagate")
	}

	list, _, _ := store.NotificationList(cache.NotificationListView{})
	if !list[0].Unread {
		t.Error("failed mark-read must roll the flip back")
	}
}

func TestMarkReadAlreadyReadIsNotRolledBack(t *testing.T) {
	store := seededStore(
		domain.Notification{ID: "n1", Type: domain.NotificationReview, Unread: false},
		domain.Notification{ID: "n2", Type: domain.NotificationIssue, Unread: true},
	)

	service := NewService(&MockAPI{
		MarkNotificationsReadFunc: func(ctx context.Context, ids []string) error {
			return errors.New("boom")
		},
	}, store, nil, nil, nil)

	_ = service.MarkRead(context.Background(), []string{"n1", "n2"})

	list, _, _ := store.NotificationList(cache.NotificationListView{})
	if list[0].Unread {
		t.Error("n1 was read before the cycle and must stay read after rollback")
	}
	if !list[1].Unread {
		t.Error("n2 must be rolled back to unread")
	}
}

func TestMarkAllRead(t *testing.T) {
	store := seededStore(
		domain.Notification{ID: "n1", Type: domain.NotificationReview, Unread: true},
		domain.Notification{ID: "n2", Type: domain.NotificationIssue, Unread: false},
		domain.Notification{ID: "n3", Type: domain.NotificationMention, Unread: true},
	)

	service := NewService(&MockAPI{}, store, nil, nil, nil)
	if err := service.MarkAllRead(context.Background()); err != nil {
		t.Fatal(err)
	}

	list, _, _ := store.NotificationList(cache.NotificationListView{})
	for _, n := range list {
		if n.Unread {
			t.Errorf("notification %s still unread", n.ID)
		}
	}
}

func TestListAppliesPersistedReadMarks(t *testing.T) {
	store := cache.NewStore(time.Minute)

	service := NewService(&MockAPI{
		ListNotificationsFunc: func(ctx context.Context, unreadOnly bool) ([]domain.Notification, error) {
			return []domain.Notification{
				{ID: "n1", Type: domain.NotificationReview, Unread: true},
				{ID: "n2", Type: domain.NotificationIssue, Unread: true},
			}, nil
		},
	}, store, &mockReadMarks{ids: []string{"n2"}}, nil, nil)

	list, err := service.List(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if !list[0].Unread {
		t.Error("n1 has no local read mark and must stay unread")
	}
	if list[1].Unread {
		t.Error("n2 carries a local read mark and must load as read")
	}
}

type mockReadMarks struct {
	ids    []string
	marked [][]string
}

func (m *mockReadMarks) MarkRead(ctx context.Context, ids []string) error {
	m.marked = append(m.marked, ids)
	return nil
}

func (m *mockReadMarks) ReadIDs(ctx context.Context) ([]string, error) { return m.ids, nil }
func (m *mockReadMarks) Clear(ctx context.Context) error               { return nil }
