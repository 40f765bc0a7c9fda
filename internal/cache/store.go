// Package cache holds the shared entity cache: a set of named views
// (session lists, session details, notification lists) over session
// and notification entities, plus the reconciler that merges realtime
// events into every view currently holding the affected entity.
package cache

import (
	"sync"
	"time"

	"github.com/emiliopalmerini/agentsync/internal/domain"
)

// SessionListView identifies a cached session collection. A zero
// Status means the unfiltered list.
type SessionListView struct {
	Status domain.SessionStatus
}

// NotificationListView identifies a cached notification collection.
type NotificationListView struct {
	UnreadOnly bool
}

type sessionList struct {
	sessions  []domain.Session
	fetchedAt time.Time
}

type sessionDetail struct {
	session   domain.Session
	fetchedAt time.Time
}

type notificationList struct {
	notifications []domain.Notification
	fetchedAt     time.Time
}

// Store is the multi-view entity cache. Readers receive copies;
// entities are mutated only through the reconciler and the data-access
// services. A single mutex keeps all views of an entity in lockstep:
// no reader can observe one view updated and another stale.
type Store struct {
	mu sync.Mutex

	sessionLists      map[SessionListView]*sessionList
	sessionDetails    map[string]*sessionDetail
	notificationLists map[NotificationListView]*notificationList

	ttl time.Duration
	now func() time.Time
}

// NewStore creates an empty store whose snapshots go stale after ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessionLists:      make(map[SessionListView]*sessionList),
		sessionDetails:    make(map[string]*sessionDetail),
		notificationLists: make(map[NotificationListView]*notificationList),
		ttl:               ttl,
		now:               time.Now,
	}
}

// SetSessionList replaces the snapshot for a list view. fetchedAt is
// the time the data left the server's source of truth.
func (s *Store) SetSessionList(view SessionListView, sessions []domain.Session) {
	copied := make([]domain.Session, len(sessions))
	for i, session := range sessions {
		copied[i] = session.Clone()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionLists[view] = &sessionList{sessions: copied, fetchedAt: s.now()}
}

// SessionList returns a copy of the view's snapshot and whether it is
// still fresh. ok is false when the view has never been populated.
func (s *Store) SessionList(view SessionListView) (sessions []domain.Session, fresh, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.sessionLists[view]
	if !ok {
		return nil, false, false
	}
	out := make([]domain.Session, len(list.sessions))
	for i, session := range list.sessions {
		out[i] = session.Clone()
	}
	return out, s.now().Sub(list.fetchedAt) < s.ttl, true
}

// SetSessionDetail replaces the per-entity detail view.
func (s *Store) SetSessionDetail(session domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionDetails[session.ID] = &sessionDetail{session: session.Clone(), fetchedAt: s.now()}
}

// SessionDetail returns a copy of the detail view for id, if cached.
func (s *Store) SessionDetail(id string) (session domain.Session, fresh, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	detail, ok := s.sessionDetails[id]
	if !ok {
		return domain.Session{}, false, false
	}
	return detail.session.Clone(), s.now().Sub(detail.fetchedAt) < s.ttl, true
}

// InsertSession adds a freshly created session to its detail view and
// to every existing list view whose filter it matches. Only the
// data-access path calls this: reconciliation never introduces
// entities.
func (s *Store) InsertSession(session domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionDetails[session.ID] = &sessionDetail{session: session.Clone(), fetchedAt: s.now()}
	for view, list := range s.sessionLists {
		if view.Status != "" && view.Status != session.Status {
			continue
		}
		if indexOfSession(list.sessions, session.ID) >= 0 {
			continue
		}
		list.sessions = append(list.sessions, session.Clone())
	}
}

// ApplySession runs merge against the cached copy of the session and,
// when merge reports a change, writes the result to every view that
// already holds the entity: each list view containing the id and the
// detail view if present. Views not holding the entity are untouched,
// and nothing is created when the entity is absent everywhere.
//
// Returns the merged session and whether a write happened.
func (s *Store) ApplySession(id string, merge func(domain.Session) (domain.Session, bool)) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, held := s.findSessionLocked(id)
	if !held {
		return domain.Session{}, false
	}
	merged, changed := merge(current.Clone())
	if !changed {
		return domain.Session{}, false
	}

	for _, list := range s.sessionLists {
		if i := indexOfSession(list.sessions, id); i >= 0 {
			list.sessions[i] = merged.Clone()
		}
	}
	if detail, ok := s.sessionDetails[id]; ok {
		detail.session = merged.Clone()
	}
	return merged, true
}

func (s *Store) findSessionLocked(id string) (domain.Session, bool) {
	if detail, ok := s.sessionDetails[id]; ok {
		return detail.session, true
	}
	for _, list := range s.sessionLists {
		if i := indexOfSession(list.sessions, id); i >= 0 {
			return list.sessions[i], true
		}
	}
	return domain.Session{}, false
}

// SetNotificationList replaces the snapshot for a notification view.
func (s *Store) SetNotificationList(view NotificationListView, notifications []domain.Notification) {
	copied := append([]domain.Notification(nil), notifications...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notificationLists[view] = &notificationList{notifications: copied, fetchedAt: s.now()}
}

// NotificationList returns a copy of the view's snapshot and its
// freshness.
func (s *Store) NotificationList(view NotificationListView) (notifications []domain.Notification, fresh, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.notificationLists[view]
	if !ok {
		return nil, false, false
	}
	out := append([]domain.Notification(nil), list.notifications...)
	return out, s.now().Sub(list.fetchedAt) < s.ttl, true
}

// ApplyNotification mirrors ApplySession for notification entities.
func (s *Store) ApplyNotification(id string, merge func(domain.Notification) (domain.Notification, bool)) (domain.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, held := s.findNotificationLocked(id)
	if !held {
		return domain.Notification{}, false
	}
	merged, changed := merge(current)
	if !changed {
		return domain.Notification{}, false
	}

	for _, list := range s.notificationLists {
		if i := indexOfNotification(list.notifications, id); i >= 0 {
			list.notifications[i] = merged
		}
	}
	return merged, true
}

func (s *Store) findNotificationLocked(id string) (domain.Notification, bool) {
	for _, list := range s.notificationLists {
		if i := indexOfNotification(list.notifications, id); i >= 0 {
			return list.notifications[i], true
		}
	}
	return domain.Notification{}, false
}

// InvalidateAll marks every snapshot stale without discarding data.
// Readers keep getting the cached entities while the next load
// refetches. Used on return to foreground.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	expired := s.now().Add(-s.ttl)
	for _, list := range s.sessionLists {
		list.fetchedAt = expired
	}
	for _, detail := range s.sessionDetails {
		detail.fetchedAt = expired
	}
	for _, list := range s.notificationLists {
		list.fetchedAt = expired
	}
}

// InvalidateNotifications marks only the notification snapshots stale.
func (s *Store) InvalidateNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	expired := s.now().Add(-s.ttl)
	for _, list := range s.notificationLists {
		list.fetchedAt = expired
	}
}

// Stats reports view counts for the status endpoint.
type Stats struct {
	SessionLists      int `json:"sessionLists"`
	SessionDetails    int `json:"sessionDetails"`
	NotificationLists int `json:"notificationLists"`
}

// Stats returns the current view counts.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		SessionLists:      len(s.sessionLists),
		SessionDetails:    len(s.sessionDetails),
		NotificationLists: len(s.notificationLists),
	}
}

func indexOfSession(sessions []domain.Session, id string) int {
	for i, session := range sessions {
		if session.ID == id {
			return i
		}
	}
	return -1
}

func indexOfNotification(notifications []domain.Notification, id string) int {
	for i, notification := range notifications {
		if notification.ID == id {
			return i
		}
	}
	return -1
}
