package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emiliopalmerini/agentsync/internal/api"
	"github.com/emiliopalmerini/agentsync/internal/cache"
	"github.com/emiliopalmerini/agentsync/internal/domain"
)

func TestServiceListUsesFreshCache(t *testing.T) {
	store := cache.NewStore(time.Minute)
	store.SetSessionList(cache.SessionListView{}, []domain.Session{
		{ID: "s1", Status: domain.StatusRunning},
	})

	fetches := 0
	service := NewService(&MockAPI{
		ListSessionsFunc: func(ctx context.Context, status domain.SessionStatus) ([]domain.Session, error) {
			fetches++
			return nil, nil
		},
	}, store, nil, nil)

	sessions, err := service.List(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || fetches != 0 {
		t.Errorf("fresh cache should not refetch: %d sessions, %d fetches", len(sessions), fetches)
	}
}

func TestServiceListFetchesWhenStale(t *testing.T) {
	store := cache.NewStore(time.Minute)
	store.SetSessionList(cache.SessionListView{}, []domain.Session{
		{ID: "old", Status: domain.StatusRunning},
	})
	store.InvalidateAll()

	service := NewService(&MockAPI{
		ListSessionsFunc: func(ctx context.Context, status domain.SessionStatus) ([]domain.Session, error) {
			return []domain.Session{{ID: "fresh", Status: domain.StatusRunning}}, nil
		},
	}, store, nil, nil)

	sessions, err := service.List(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].ID != "fresh" {
		t.Errorf("stale cache should be replaced by fetch: %+v", sessions)
	}
}

func TestServiceListPropagatesFailure(t *testing.T) {
	store := cache.NewStore(time.Minute)
	wantErr := &api.Error{Operation: "list", StatusCode: 503}
	service := NewService(&MockAPI{
		ListSessionsFunc: func(ctx context.Context, status domain.SessionStatus) ([]domain.Session, error) {
			return nil, wantErr
		},
	}, store, nil, nil)

	_, err := service.List(context.Background(), "")
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("data-access failures must reach the caller typed, got %v", err)
	}
}

func TestServiceCreateInsertsIntoCache(t *testing.T) {
	store := cache.NewStore(time.Minute)
	store.SetSessionList(cache.SessionListView{}, nil)

	service := NewService(&MockAPI{
		CreateSessionFunc: func(ctx context.Context, req api.CreateSessionRequest) (domain.Session, error) {
			return domain.Session{ID: "s9", Name: req.Name, Status: domain.StatusRunning}, nil
		},
	}, store, nil, nil)

	if _, err := service.Create(context.Background(), api.CreateSessionRequest{Name: "Build API"}); err != nil {
		t.Fatal(err)
	}

	list, _, _ := store.SessionList(cache.SessionListView{})
	if len(list) != 1 || list[0].ID != "s9" {
		t.Errorf("created session not in list view: %+v", list)
	}
	if _, _, ok := store.SessionDetail("s9"); !ok {
		t.Error("created session has no detail view")
	}
}

func TestServiceUpdateWritesThrough(t *testing.T) {
	store := cache.NewStore(time.Minute)
	store.SetSessionList(cache.SessionListView{}, []domain.Session{
		{ID: "s1", Name: "old name", Status: domain.StatusRunning},
	})

	service := NewService(&MockAPI{
		UpdateSessionFunc: func(ctx context.Context, id string, req api.UpdateSessionRequest) (domain.Session, error) {
			return domain.Session{ID: id, Name: *req.Name, Status: domain.StatusRunning}, nil
		},
	}, store, nil, nil)

	name := "new name"
	if _, err := service.Update(context.Background(), "s1", api.UpdateSessionRequest{Name: &name}); err != nil {
		t.Fatal(err)
	}

	list, _, _ := store.SessionList(cache.SessionListView{})
	if list[0].Name != "new name" {
		t.Errorf("list view not write-through updated: %+v", list[0])
	}
	detail, _, _ := store.SessionDetail("s1")
	if detail.Name != "new name" {
		t.Errorf("detail view not write-through updated: %+v", detail)
	}
}
