// Package notifications is the read/write surface over the
// notification cache, including the optimistic mark-read cycle.
package notifications

import (
	"context"
	"log/slog"

	"github.com/emiliopalmerini/agentsync/internal/cache"
	"github.com/emiliopalmerini/agentsync/internal/domain"
	"github.com/emiliopalmerini/agentsync/internal/ports"
)

// API is the data-access surface the service needs.
type API interface {
	ListNotifications(ctx context.Context, unreadOnly bool) ([]domain.Notification, error)
	MarkNotificationsRead(ctx context.Context, ids []string) error
	MarkAllNotificationsRead(ctx context.Context) error
	MuteNotification(ctx context.Context, id string) error
}

// Service loads notifications into the cache and performs the
// optimistic read-state updates.
type Service struct {
	api       API
	store     *cache.Store
	readMarks ports.ReadMarkRepository
	metrics   ports.MetricsExporter
	logger    *slog.Logger
}

// NewService creates a notification service. readMarks may be nil
// when read state is not persisted locally.
func NewService(apiClient API, store *cache.Store, readMarks ports.ReadMarkRepository, metrics ports.MetricsExporter, logger *slog.Logger) *Service {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: apiClient, store: store, readMarks: readMarks, metrics: metrics, logger: logger}
}

// List returns notifications for the view, fetching when the cached
// snapshot is missing or stale. Locally persisted read marks are
// applied over the fetched data so a mark-read that the server has not
// caught up with yet does not flip back to unread.
func (s *Service) List(ctx context.Context, unreadOnly bool) ([]domain.Notification, error) {
	view := cache.NotificationListView{UnreadOnly: unreadOnly}
	if cached, fresh, ok := s.store.NotificationList(view); ok && fresh {
		return cached, nil
	}

	notifications, err := s.api.ListNotifications(ctx, unreadOnly)
	if err != nil {
		s.metrics.DataAccessFailure(ctx, "list notifications")
		return nil, err
	}

	if s.readMarks != nil {
		readIDs, err := s.readMarks.ReadIDs(ctx)
		if err != nil {
			s.logger.Warn("loading persisted read marks", "error", err)
		} else if len(readIDs) > 0 {
			read := make(map[string]bool, len(readIDs))
			for _, id := range readIDs {
				read[id] = true
			}
			for i := range notifications {
				if read[notifications[i].ID] {
					notifications[i].Unread = false
				}
			}
		}
	}

	s.store.SetNotificationList(view, notifications)
	return notifications, nil
}

// MarkRead flips the given notifications to read optimistically, then
// confirms with the server. On failure the optimistic flip is rolled
// back and the error returned; read state only ever moves toward read
// within the cycle, except on that rollback.
func (s *Service) MarkRead(ctx context.Context, ids []string) error {
	var flipped []string
	for _, id := range ids {
		_, applied := s.store.ApplyNotification(id, func(n domain.Notification) (domain.Notification, bool) {
			if !n.Unread {
				return n, false
			}
			n.Unread = false
			return n, true
		})
		if applied {
			flipped = append(flipped, id)
		}
	}

	if err := s.api.MarkNotificationsRead(ctx, ids); err != nil {
		s.metrics.DataAccessFailure(ctx, "mark read")
		for _, id := range flipped {
			s.store.ApplyNotification(id, func(n domain.Notification) (domain.Notification, bool) {
				n.Unread = true
				return n, true
			})
		}
		return err
	}

	if s.readMarks != nil {
		if err := s.readMarks.MarkRead(ctx, ids); err != nil {
			s.logger.Warn("persisting read marks", "error", err)
		}
	}
	return nil
}

// MarkAllRead marks every cached notification read, optimistically,
// with rollback on server failure.
func (s *Service) MarkAllRead(ctx context.Context) error {
	unread, _, ok := s.store.NotificationList(cache.NotificationListView{})
	if !ok {
		unread, _, _ = s.store.NotificationList(cache.NotificationListView{UnreadOnly: true})
	}
	var ids []string
	for _, n := range unread {
		if n.Unread {
			ids = append(ids, n.ID)
		}
	}

	for _, id := range ids {
		s.store.ApplyNotification(id, func(n domain.Notification) (domain.Notification, bool) {
			n.Unread = false
			return n, true
		})
	}

	if err := s.api.MarkAllNotificationsRead(ctx); err != nil {
		s.metrics.DataAccessFailure(ctx, "mark all read")
		for _, id := range ids {
			s.store.ApplyNotification(id, func(n domain.Notification) (domain.Notification, bool) {
				n.Unread = true
				return n, true
			})
		}
		return err
	}

	if s.readMarks != nil && len(ids) > 0 {
		if err := s.readMarks.MarkRead(ctx, ids); err != nil {
			s.logger.Warn("persisting read marks", "error", err)
		}
	}
	return nil
}

// Mute mutes a notification thread on the server and invalidates the
// cached notification views so the next read refetches.
func (s *Service) Mute(ctx context.Context, id string) error {
	if err := s.api.MuteNotification(ctx, id); err != nil {
		s.metrics.DataAccessFailure(ctx, "mute notification")
		return err
	}
	s.store.InvalidateNotifications()
	return nil
}
