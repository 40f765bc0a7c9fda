package domain

import (
	"fmt"
	"time"
)

// NotificationType classifies an actionable alert.
type NotificationType string

const (
	NotificationPullRequest   NotificationType = "pull-request"
	NotificationReview        NotificationType = "review"
	NotificationIssue         NotificationType = "issue"
	NotificationComment       NotificationType = "comment"
	NotificationMention       NotificationType = "mention"
	NotificationRelease       NotificationType = "release"
	NotificationSecurityAlert NotificationType = "security-alert"
	NotificationGeneric       NotificationType = "generic"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationPullRequest, NotificationReview, NotificationIssue,
		NotificationComment, NotificationMention, NotificationRelease,
		NotificationSecurityAlert, NotificationGeneric:
		return true
	}
	return false
}

// Notification represents an actionable alert about activity on a
// tracked repository or session.
type Notification struct {
	ID      string           `json:"id"`
	Type    NotificationType `json:"type"`
	Unread  bool             `json:"unread"`
	Repo    string           `json:"repo"`
	ItemRef string           `json:"itemRef,omitempty"`

	// Seq mirrors Session.Seq: server-assigned monotonic sequence,
	// zero when unsequenced.
	Seq int64 `json:"seq,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the structural invariants for a notification.
func (n *Notification) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("notification missing id")
	}
	if !n.Type.Valid() {
		return fmt.Errorf("notification %s: unknown type %q", n.ID, n.Type)
	}
	return nil
}
