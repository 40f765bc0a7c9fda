package domain

import (
	"fmt"
	"time"
)

// SessionStatus is the lifecycle state of an agent work session.
type SessionStatus string

const (
	StatusRunning        SessionStatus = "running"
	StatusAwaitingReview SessionStatus = "awaitingReview"
	StatusDone           SessionStatus = "done"
	StatusError          SessionStatus = "error"
)

// Valid reports whether s is one of the known lifecycle states.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusRunning, StatusAwaitingReview, StatusDone, StatusError:
		return true
	}
	return false
}

// Terminal reports whether the session will receive no further
// server-side progress in this state.
func (s SessionStatus) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Session represents one running or completed automation workflow.
type Session struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Status         SessionStatus `json:"status"`
	Progress       int           `json:"progress"`
	CurrentTask    *string       `json:"currentTask,omitempty"`
	ErrorMessage   *string       `json:"errorMessage,omitempty"`
	Repo           string        `json:"repo"`
	Workflow       string        `json:"workflow"`
	CompletedTasks []string      `json:"completedTasks,omitempty"`

	// Seq is a server-assigned monotonic sequence number. Updates
	// carrying a lower or equal Seq than the cached copy are stale
	// and skipped during reconciliation. Zero means unsequenced.
	Seq int64 `json:"seq,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the structural invariants every session must hold
// before it is allowed into the cache.
func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("session missing id")
	}
	if !s.Status.Valid() {
		return fmt.Errorf("session %s: unknown status %q", s.ID, s.Status)
	}
	if s.Progress < 0 || s.Progress > 100 {
		return fmt.Errorf("session %s: progress %d out of range", s.ID, s.Progress)
	}
	if s.Status == StatusDone && s.Progress != 100 {
		return fmt.Errorf("session %s: status done with progress %d", s.ID, s.Progress)
	}
	if s.Status != StatusError && s.ErrorMessage != nil && *s.ErrorMessage != "" {
		return fmt.Errorf("session %s: error message present in status %q", s.ID, s.Status)
	}
	return nil
}

// Clone returns a deep copy. Cache views hand out copies so readers
// can never alias the stored entity.
func (s Session) Clone() Session {
	out := s
	if s.CurrentTask != nil {
		task := *s.CurrentTask
		out.CurrentTask = &task
	}
	if s.ErrorMessage != nil {
		msg := *s.ErrorMessage
		out.ErrorMessage = &msg
	}
	if s.CompletedTasks != nil {
		out.CompletedTasks = append([]string(nil), s.CompletedTasks...)
	}
	return out
}
