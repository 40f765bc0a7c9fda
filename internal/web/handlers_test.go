package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/emiliopalmerini/agentsync/internal/api"
	"github.com/emiliopalmerini/agentsync/internal/cache"
	"github.com/emiliopalmerini/agentsync/internal/domain"
	"github.com/emiliopalmerini/agentsync/internal/realtime"
)

type mockSessionReader struct {
	listFn func(ctx context.Context, status domain.SessionStatus) ([]domain.Session, error)
	getFn  func(ctx context.Context, id string) (domain.Session, error)
}

func (m *mockSessionReader) List(ctx context.Context, status domain.SessionStatus) ([]domain.Session, error) {
	return m.listFn(ctx, status)
}

func (m *mockSessionReader) Get(ctx context.Context, id string) (domain.Session, error) {
	return m.getFn(ctx, id)
}

type mockNotificationReader struct {
	listFn func(ctx context.Context, unreadOnly bool) ([]domain.Notification, error)
}

func (m *mockNotificationReader) List(ctx context.Context, unreadOnly bool) ([]domain.Notification, error) {
	return m.listFn(ctx, unreadOnly)
}

type mockSyncController struct {
	state   realtime.ConnState
	retried int
	pending int
}

func (m *mockSyncController) ConnState() realtime.ConnState { return m.state }
func (m *mockSyncController) Retry()                        { m.retried++ }
func (m *mockSyncController) PendingKeys() int              { return m.pending }

func testServer(sr SessionReader, nr NotificationReader, sc SyncController, store *cache.Store) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(":0", sr, nr, sc, store, logger)
}

func TestListSessionsPassesStatusFilter(t *testing.T) {
	var gotStatus domain.SessionStatus
	sr := &mockSessionReader{
		listFn: func(ctx context.Context, status domain.SessionStatus) ([]domain.Session, error) {
			gotStatus = status
			return []domain.Session{{ID: "s1", Name: "deploy", Status: domain.StatusRunning}}, nil
		},
	}
	srv := testServer(sr, &mockNotificationReader{}, &mockSyncController{}, cache.NewStore(time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/sessions?status=running", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotStatus != domain.StatusRunning {
		t.Errorf("status filter = %q, want running", gotStatus)
	}

	var body struct {
		Sessions []domain.Session `json:"sessions"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(body.Sessions) != 1 || body.Sessions[0].ID != "s1" {
		t.Errorf("unexpected sessions: %+v", body.Sessions)
	}
}

func TestGetSessionNotFoundPassesThrough(t *testing.T) {
	sr := &mockSessionReader{
		getFn: func(ctx context.Context, id string) (domain.Session, error) {
			return domain.Session{}, &api.Error{Operation: "get session", StatusCode: http.StatusNotFound}
		},
	}
	srv := testServer(sr, &mockNotificationReader{}, &mockSyncController{}, cache.NewStore(time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/sessions/missing", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetSessionUpstreamFailureIsBadGateway(t *testing.T) {
	sr := &mockSessionReader{
		getFn: func(ctx context.Context, id string) (domain.Session, error) {
			return domain.Session{}, &api.Error{Operation: "get session", StatusCode: http.StatusInternalServerError}
		},
	}
	srv := testServer(sr, &mockNotificationReader{}, &mockSyncController{}, cache.NewStore(time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/sessions/s1", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestListNotificationsUnreadFilter(t *testing.T) {
	var gotUnread bool
	nr := &mockNotificationReader{
		listFn: func(ctx context.Context, unreadOnly bool) ([]domain.Notification, error) {
			gotUnread = unreadOnly
			return nil, nil
		},
	}
	srv := testServer(&mockSessionReader{}, nr, &mockSyncController{}, cache.NewStore(time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/notifications?unread=true", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !gotUnread {
		t.Error("unread filter not passed through")
	}
}

func TestListNotificationsPlainErrorIs500(t *testing.T) {
	nr := &mockNotificationReader{
		listFn: func(ctx context.Context, unreadOnly bool) ([]domain.Notification, error) {
			return nil, errors.New("cache corrupted")
		},
	}
	srv := testServer(&mockSessionReader{}, nr, &mockSyncController{}, cache.NewStore(time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestStatusReportsConnectionAndCache(t *testing.T) {
	store := cache.NewStore(time.Minute)
	store.SetSessionList(cache.SessionListView{}, []domain.Session{{ID: "s1"}})

	sc := &mockSyncController{state: realtime.StateConnected, pending: 2}
	srv := testServer(&mockSessionReader{}, &mockNotificationReader{}, sc, store)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["connection"] != "connected" {
		t.Errorf("connection = %v, want connected", body["connection"])
	}
	if body["session_lists"] != float64(1) {
		t.Errorf("session_lists = %v, want 1", body["session_lists"])
	}
}

func TestRetryTriggersReconnect(t *testing.T) {
	sc := &mockSyncController{state: realtime.StateReconnecting}
	srv := testServer(&mockSessionReader{}, &mockNotificationReader{}, sc, cache.NewStore(time.Minute))

	req := httptest.NewRequest(http.MethodPost, "/retry", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if sc.retried != 1 {
		t.Errorf("retried = %d, want 1", sc.retried)
	}
}
