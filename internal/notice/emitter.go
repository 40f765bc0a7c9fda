// Package notice implements the transient in-app notice surface: one
// auto-dismissing notice at a time, replaced immediately by any newer
// one.
package notice

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// displayDuration is how long a notice stays visible before
// auto-dismissing.
const displayDuration = 5 * time.Second

// Notice is one transient user notice. SessionID, when set, is the
// entity a tap navigates to.
type Notice struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// Emitter holds at most one visible notice. Show replaces the current
// notice without queueing; Dismiss and the auto-dismiss timer clear
// it.
type Emitter struct {
	duration time.Duration
	navigate func(sessionID string)

	mu        sync.Mutex
	current   *Notice
	timer     *time.Timer
	observers map[int]func(*Notice)
	nextObsID int
}

// NewEmitter creates an emitter. navigate, when non-nil, is invoked
// with the session id when a notice is tapped.
func NewEmitter(navigate func(sessionID string)) *Emitter {
	return &Emitter{
		duration:  displayDuration,
		navigate:  navigate,
		observers: make(map[int]func(*Notice)),
	}
}

// Show displays a notice, replacing any visible one immediately.
// Returns the notice id.
func (e *Emitter) Show(message, sessionID string) string {
	n := &Notice{ID: uuid.NewString(), Message: message, SessionID: sessionID}

	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
	}
	e.current = n
	id := n.ID
	e.timer = time.AfterFunc(e.duration, func() { e.dismissIf(id) })
	observers := e.observersLocked()
	e.mu.Unlock()

	for _, observer := range observers {
		observer(n)
	}
	return id
}

// Dismiss clears the visible notice immediately.
func (e *Emitter) Dismiss() {
	e.mu.Lock()
	if e.current == nil {
		e.mu.Unlock()
		return
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.current = nil
	observers := e.observersLocked()
	e.mu.Unlock()

	for _, observer := range observers {
		observer(nil)
	}
}

// dismissIf clears the notice only when it is still the one the timer
// was armed for. A Show that raced the timer wins.
func (e *Emitter) dismissIf(id string) {
	e.mu.Lock()
	if e.current == nil || e.current.ID != id {
		e.mu.Unlock()
		return
	}
	e.current = nil
	e.timer = nil
	observers := e.observersLocked()
	e.mu.Unlock()

	for _, observer := range observers {
		observer(nil)
	}
}

// Tap handles the user tapping the visible notice: navigate to its
// session (when it has one) and dismiss.
func (e *Emitter) Tap() {
	e.mu.Lock()
	current := e.current
	e.mu.Unlock()
	if current == nil {
		return
	}
	if current.SessionID != "" && e.navigate != nil {
		e.navigate(current.SessionID)
	}
	e.Dismiss()
}

// Current returns the visible notice, or nil.
func (e *Emitter) Current() *Notice {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil
	}
	n := *e.current
	return &n
}

// OnChange registers an observer called with the new notice on Show
// and nil on dismiss. Returns an unsubscribe function.
func (e *Emitter) OnChange(observer func(*Notice)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextObsID
	e.nextObsID++
	e.observers[id] = observer
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.observers, id)
	}
}

func (e *Emitter) observersLocked() []func(*Notice) {
	observers := make([]func(*Notice), 0, len(e.observers))
	for _, observer := range e.observers {
		observers = append(observers, observer)
	}
	return observers
}
