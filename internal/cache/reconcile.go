package cache

import (
	"fmt"
	"time"

	"github.com/emiliopalmerini/agentsync/internal/domain"
)

// NoticeFunc is called when a session transitions into awaitingReview.
// The reconciler is invoked at most once per unique event, so the
// notice fires exactly once per transition.
type NoticeFunc func(sessionName, sessionID string)

// Reconciler translates realtime events into minimal mutations of the
// cache views that already hold the affected entity.
type Reconciler struct {
	store  *Store
	notice NoticeFunc
	now    func() time.Time
}

// NewReconciler creates a reconciler writing into store. notice may be
// nil when no review-notice consumer is wired.
func NewReconciler(store *Store, notice NoticeFunc) *Reconciler {
	return &Reconciler{store: store, notice: notice, now: time.Now}
}

// Apply merges one validated event into the cache. Events for entities
// not held by any view are a no-op: reconciliation never resurrects or
// creates entities. Stale events (sequence not newer than the cached
// copy) are skipped. Returns an error only for payloads that cannot be
// decoded, which the engine logs and counts without stopping.
func (r *Reconciler) Apply(ev domain.Event) error {
	switch ev.Type {
	case domain.EventProgress, domain.EventSessionUpdated, domain.EventStatusChanged:
		patch, err := ev.SessionPatch()
		if err != nil {
			return err
		}
		r.applySession(patch)
		return nil
	case domain.EventNotificationNew, domain.EventNotificationRead:
		patch, err := ev.NotificationPatch()
		if err != nil {
			return err
		}
		r.applyNotification(patch)
		return nil
	default:
		return fmt.Errorf("no reconciliation rule for event type %q", ev.Type)
	}
}

func (r *Reconciler) applySession(patch domain.SessionPatch) {
	var enteredReview bool
	var reviewName string

	merged, applied := r.store.ApplySession(patch.SessionID, func(current domain.Session) (domain.Session, bool) {
		if patch.Seq != 0 && current.Seq != 0 && patch.Seq <= current.Seq {
			return current, false
		}

		next := current
		if patch.Name != nil {
			next.Name = *patch.Name
		}
		if patch.Progress != nil {
			next.Progress = *patch.Progress
		}
		if patch.CurrentTask != nil {
			next.CurrentTask = patch.CurrentTask
		}
		if patch.CompletedTasks != nil {
			next.CompletedTasks = patch.CompletedTasks
		}
		if patch.Status != nil {
			next.Status = *patch.Status
			if *patch.Status != domain.StatusError {
				// Keeps the errorMessage-only-in-error invariant when
				// a session is externally reset out of error.
				next.ErrorMessage = nil
			}
			switch *patch.Status {
			case domain.StatusDone:
				// Terminal state regardless of what the event said
				// about progress.
				next.Progress = 100
			case domain.StatusError:
				if patch.ErrorMessage != nil {
					next.ErrorMessage = patch.ErrorMessage
				}
			case domain.StatusAwaitingReview:
				if current.Status != domain.StatusAwaitingReview {
					enteredReview = true
				}
			}
		} else if patch.ErrorMessage != nil && current.Status == domain.StatusError {
			next.ErrorMessage = patch.ErrorMessage
		}
		if patch.Seq != 0 {
			next.Seq = patch.Seq
		}
		next.UpdatedAt = r.now()
		return next, true
	})

	if applied && enteredReview {
		reviewName = merged.Name
		if reviewName == "" {
			reviewName = merged.ID
		}
		if r.notice != nil {
			r.notice(reviewName, merged.ID)
		}
	}
}

func (r *Reconciler) applyNotification(patch domain.NotificationPatch) {
	r.store.ApplyNotification(patch.ID, func(current domain.Notification) (domain.Notification, bool) {
		if patch.Seq != 0 && current.Seq != 0 && patch.Seq <= current.Seq {
			return current, false
		}

		next := current
		if patch.Type != nil {
			next.Type = *patch.Type
		}
		if patch.Unread != nil {
			next.Unread = *patch.Unread
		}
		if patch.Repo != nil {
			next.Repo = *patch.Repo
		}
		if patch.ItemRef != nil {
			next.ItemRef = *patch.ItemRef
		}
		if patch.Seq != 0 {
			next.Seq = patch.Seq
		}
		next.Timestamp = r.now()
		return next, true
	})
}
