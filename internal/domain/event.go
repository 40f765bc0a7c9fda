package domain

import (
	"encoding/json"
	"fmt"
)

// EventType tags a frame on the realtime push stream.
type EventType string

const (
	EventProgress         EventType = "progress"
	EventSessionUpdated   EventType = "sessionUpdated"
	EventStatusChanged    EventType = "statusChanged"
	EventNotificationNew  EventType = "notificationNew"
	EventNotificationRead EventType = "notificationRead"
)

// Valid reports whether t is a member of the event union.
func (t EventType) Valid() bool {
	switch t {
	case EventProgress, EventSessionUpdated, EventStatusChanged,
		EventNotificationNew, EventNotificationRead:
		return true
	}
	return false
}

// SessionEvent reports whether the event targets a session entity.
func (t EventType) SessionEvent() bool {
	switch t {
	case EventProgress, EventSessionUpdated, EventStatusChanged:
		return true
	}
	return false
}

// Event is one validated frame from the push stream. Data keeps the
// raw payload bytes: the deduplicator keys on them and the reconciler
// decodes them into the patch type for the event's entity kind.
type Event struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DedupKey is the content-based identity of the event: type plus the
// full serialized payload. Two distinct payloads for the same entity
// never collide.
func (e Event) DedupKey() string {
	return string(e.Type) + ":" + string(e.Data)
}

// EntityKey returns the id of the entity the event targets. Used to
// serialize updates per entity.
func (e Event) EntityKey() (string, error) {
	if e.Type.SessionEvent() {
		patch, err := e.SessionPatch()
		if err != nil {
			return "", err
		}
		return patch.SessionID, nil
	}
	patch, err := e.NotificationPatch()
	if err != nil {
		return "", err
	}
	return patch.ID, nil
}

// SessionPatch is the partial session update carried by progress,
// sessionUpdated and statusChanged events. Nil fields were absent from
// the payload and must retain their cached value on merge.
type SessionPatch struct {
	SessionID      string         `json:"sessionId"`
	Name           *string        `json:"name,omitempty"`
	Status         *SessionStatus `json:"status,omitempty"`
	Progress       *int           `json:"progress,omitempty"`
	CurrentTask    *string        `json:"currentTask,omitempty"`
	ErrorMessage   *string        `json:"errorMessage,omitempty"`
	CompletedTasks []string       `json:"completedTasks,omitempty"`
	Seq            int64          `json:"seq,omitempty"`
}

// SessionPatch decodes and validates the payload of a session event.
func (e Event) SessionPatch() (SessionPatch, error) {
	if !e.Type.SessionEvent() {
		return SessionPatch{}, fmt.Errorf("event %q carries no session payload", e.Type)
	}
	var patch SessionPatch
	if err := json.Unmarshal(e.Data, &patch); err != nil {
		return SessionPatch{}, fmt.Errorf("decoding %s payload: %w", e.Type, err)
	}
	if patch.SessionID == "" {
		return SessionPatch{}, fmt.Errorf("%s event missing sessionId", e.Type)
	}
	if patch.Progress != nil && (*patch.Progress < 0 || *patch.Progress > 100) {
		return SessionPatch{}, fmt.Errorf("%s event for %s: progress %d out of range", e.Type, patch.SessionID, *patch.Progress)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return SessionPatch{}, fmt.Errorf("%s event for %s: unknown status %q", e.Type, patch.SessionID, *patch.Status)
	}
	if e.Type == EventStatusChanged && patch.Status == nil {
		return SessionPatch{}, fmt.Errorf("statusChanged event for %s missing status", patch.SessionID)
	}
	return patch, nil
}

// NotificationPatch is the partial notification update carried by
// notificationNew and notificationRead events.
type NotificationPatch struct {
	ID      string            `json:"id"`
	Type    *NotificationType `json:"type,omitempty"`
	Unread  *bool             `json:"unread,omitempty"`
	Repo    *string           `json:"repo,omitempty"`
	ItemRef *string           `json:"itemRef,omitempty"`
	Seq     int64             `json:"seq,omitempty"`
}

// NotificationPatch decodes and validates the payload of a
// notification event.
func (e Event) NotificationPatch() (NotificationPatch, error) {
	if e.Type.SessionEvent() || !e.Type.Valid() {
		return NotificationPatch{}, fmt.Errorf("event %q carries no notification payload", e.Type)
	}
	var patch NotificationPatch
	if err := json.Unmarshal(e.Data, &patch); err != nil {
		return NotificationPatch{}, fmt.Errorf("decoding %s payload: %w", e.Type, err)
	}
	if patch.ID == "" {
		return NotificationPatch{}, fmt.Errorf("%s event missing id", e.Type)
	}
	if patch.Type != nil && !patch.Type.Valid() {
		return NotificationPatch{}, fmt.Errorf("%s event for %s: unknown type %q", e.Type, patch.ID, *patch.Type)
	}
	return patch, nil
}

// ParseEvent decodes one stream frame. A frame that fails here is
// dropped by the transport without touching the cache.
func ParseEvent(frame []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(frame, &ev); err != nil {
		return Event{}, fmt.Errorf("decoding event frame: %w", err)
	}
	if !ev.Type.Valid() {
		return Event{}, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if len(ev.Data) == 0 {
		return Event{}, fmt.Errorf("%s event missing data", ev.Type)
	}
	// Surface payload problems at the transport boundary rather than
	// deep in reconciliation.
	if _, err := ev.EntityKey(); err != nil {
		return Event{}, err
	}
	return ev, nil
}
