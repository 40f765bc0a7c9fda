package notifications

import (
	"context"

	"github.com/emiliopalmerini/agentsync/internal/domain"
)

// MockAPI is a mock implementation of API for testing.
type MockAPI struct {
	ListNotificationsFunc        func(ctx context.Context, unreadOnly bool) ([]domain.Notification, error)
	MarkNotificationsReadFunc    func(ctx context.Context, ids []string) error
	MarkAllNotificationsReadFunc func(ctx context.Context) error
	MuteNotificationFunc         func(ctx context.Context, id string) error
}

func (m *MockAPI) ListNotifications(ctx context.Context, unreadOnly bool) ([]domain.Notification, error) {
	if m.ListNotificationsFunc != nil {
		return m.ListNotificationsFunc(ctx, unreadOnly)
	}
	return []domain.Notification{}, nil
}

func (m *MockAPI) MarkNotificationsRead(ctx context.Context, ids []string) error {
	if m.MarkNotificationsReadFunc != nil {
		return m.MarkNotificationsReadFunc(ctx, ids)
	}
	return nil
}

func (m *MockAPI) MarkAllNotificationsRead(ctx context.Context) error {
	if m.MarkAllNotificationsReadFunc != nil {
		return m.MarkAllNotificationsReadFunc(ctx)
	}
	return nil
}

func (m *MockAPI) MuteNotification(ctx context.Context, id string) error {
	if m.MuteNotificationFunc != nil {
		return m.MuteNotificationFunc(ctx, id)
	}
	return nil
}
