package sessions

import (
	"context"

	"github.com/emiliopalmerini/agentsync/internal/api"
	"github.com/emiliopalmerini/agentsync/internal/domain"
)

// MockAPI is a mock implementation of API for testing.
type MockAPI struct {
	ListSessionsFunc  func(ctx context.Context, status domain.SessionStatus) ([]domain.Session, error)
	GetSessionFunc    func(ctx context.Context, id string) (domain.Session, error)
	CreateSessionFunc func(ctx context.Context, req api.CreateSessionRequest) (domain.Session, error)
	UpdateSessionFunc func(ctx context.Context, id string, req api.UpdateSessionRequest) (domain.Session, error)
	SessionLogsFunc   func(ctx context.Context, id string) ([]string, error)
}

func (m *MockAPI) ListSessions(ctx context.Context, status domain.SessionStatus) ([]domain.Session, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx, status)
	}
	return []domain.Session{}, nil
}

func (m *MockAPI) GetSession(ctx context.Context, id string) (domain.Session, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, id)
	}
	return domain.Session{}, nil
}

func (m *MockAPI) CreateSession(ctx context.Context, req api.CreateSessionRequest) (domain.Session, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, req)
	}
	return domain.Session{}, nil
}

func (m *MockAPI) UpdateSession(ctx context.Context, id string, req api.UpdateSessionRequest) (domain.Session, error) {
	if m.UpdateSessionFunc != nil {
		return m.UpdateSessionFunc(ctx, id, req)
	}
	return domain.Session{}, nil
}

func (m *MockAPI) SessionLogs(ctx context.Context, id string) ([]string, error) {
	if m.SessionLogsFunc != nil {
		return m.SessionLogsFunc(ctx, id)
	}
	return nil, nil
}
