// Package sessions is the read/write surface over the session cache:
// TTL-aware loads through the data-access layer and write-through
// create/update.
package sessions

import (
	"context"
	"log/slog"

	"github.com/emiliopalmerini/agentsync/internal/api"
	"github.com/emiliopalmerini/agentsync/internal/cache"
	"github.com/emiliopalmerini/agentsync/internal/domain"
	"github.com/emiliopalmerini/agentsync/internal/ports"
)

// API is the data-access surface the service needs.
type API interface {
	ListSessions(ctx context.Context, status domain.SessionStatus) ([]domain.Session, error)
	GetSession(ctx context.Context, id string) (domain.Session, error)
	CreateSession(ctx context.Context, req api.CreateSessionRequest) (domain.Session, error)
	UpdateSession(ctx context.Context, id string, req api.UpdateSessionRequest) (domain.Session, error)
	SessionLogs(ctx context.Context, id string) ([]string, error)
}

// Service loads sessions into the cache and performs user-initiated
// writes. Reads prefer a fresh cached snapshot and fall back to the
// data-access layer, which always wins over whatever is cached.
type Service struct {
	api     API
	store   *cache.Store
	metrics ports.MetricsExporter
	logger  *slog.Logger
}

// NewService creates a session service.
func NewService(apiClient API, store *cache.Store, metrics ports.MetricsExporter, logger *slog.Logger) *Service {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: apiClient, store: store, metrics: metrics, logger: logger}
}

// List returns the sessions for the given status filter ("" for all),
// fetching from the server when the cached view is missing or stale.
func (s *Service) List(ctx context.Context, status domain.SessionStatus) ([]domain.Session, error) {
	view := cache.SessionListView{Status: status}
	if cached, fresh, ok := s.store.SessionList(view); ok && fresh {
		return cached, nil
	}
	return s.Refresh(ctx, status)
}

// Refresh fetches the list from the server unconditionally and
// replaces the cached view.
func (s *Service) Refresh(ctx context.Context, status domain.SessionStatus) ([]domain.Session, error) {
	sessions, err := s.api.ListSessions(ctx, status)
	if err != nil {
		s.metrics.DataAccessFailure(ctx, "list sessions")
		return nil, err
	}
	s.store.SetSessionList(cache.SessionListView{Status: status}, sessions)
	return sessions, nil
}

// Get returns one session, preferring a fresh detail view.
func (s *Service) Get(ctx context.Context, id string) (domain.Session, error) {
	if cached, fresh, ok := s.store.SessionDetail(id); ok && fresh {
		return cached, nil
	}
	session, err := s.api.GetSession(ctx, id)
	if err != nil {
		s.metrics.DataAccessFailure(ctx, "get session")
		return domain.Session{}, err
	}
	s.store.SetSessionDetail(session)
	return session, nil
}

// Create starts a new workflow session and inserts it into the cache.
// Only this path and cold fetches introduce entities; push events
// never do.
func (s *Service) Create(ctx context.Context, req api.CreateSessionRequest) (domain.Session, error) {
	session, err := s.api.CreateSession(ctx, req)
	if err != nil {
		s.metrics.DataAccessFailure(ctx, "create session")
		return domain.Session{}, err
	}
	s.store.InsertSession(session)
	return session, nil
}

// Update patches a session on the server and write-through updates
// every cache view holding it.
func (s *Service) Update(ctx context.Context, id string, req api.UpdateSessionRequest) (domain.Session, error) {
	session, err := s.api.UpdateSession(ctx, id, req)
	if err != nil {
		s.metrics.DataAccessFailure(ctx, "update session")
		return domain.Session{}, err
	}
	s.store.ApplySession(id, func(domain.Session) (domain.Session, bool) {
		return session, true
	})
	s.store.SetSessionDetail(session)
	return session, nil
}

// Logs fetches a session's log lines. Logs are not cached.
func (s *Service) Logs(ctx context.Context, id string) ([]string, error) {
	logs, err := s.api.SessionLogs(ctx, id)
	if err != nil {
		s.metrics.DataAccessFailure(ctx, "session logs")
		return nil, err
	}
	return logs, nil
}
