// Package api is the request/response data-access layer for sessions
// and notifications. It is the cache's source of truth on cold load
// and manual refresh; push events never contradict what this layer
// returns because reconciliation only patches entities this layer
// introduced.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emiliopalmerini/agentsync/internal/domain"
)

// Error is a typed data-access failure. StatusCode is zero for
// network-level errors.
type Error struct {
	Operation  string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Operation, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ValidationError marks a response that decoded but violated the
// entity schema. A hard error: the payload never reaches the cache.
type ValidationError struct {
	Operation string
	Err       error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid response: %v", e.Operation, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Client talks to the session service. The bearer token is provided
// by the caller; refreshing it is out of scope here.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListSessions fetches sessions, optionally filtered by status.
func (c *Client) ListSessions(ctx context.Context, status domain.SessionStatus) ([]domain.Session, error) {
	path := "/sessions"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var sessions []domain.Session
	if err := c.do(ctx, http.MethodGet, path, nil, &sessions); err != nil {
		return nil, err
	}
	for i := range sessions {
		if err := sessions[i].Validate(); err != nil {
			return nil, &ValidationError{Operation: "list sessions", Err: err}
		}
	}
	return sessions, nil
}

// GetSession fetches one session by id.
func (c *Client) GetSession(ctx context.Context, id string) (domain.Session, error) {
	var session domain.Session
	if err := c.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(id), nil, &session); err != nil {
		return domain.Session{}, err
	}
	if err := session.Validate(); err != nil {
		return domain.Session{}, &ValidationError{Operation: "get session", Err: err}
	}
	return session, nil
}

// CreateSessionRequest is the payload for starting a new workflow.
type CreateSessionRequest struct {
	Name     string `json:"name"`
	Repo     string `json:"repo"`
	Workflow string `json:"workflow"`
}

// CreateSession starts a new workflow session.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (domain.Session, error) {
	var session domain.Session
	if err := c.do(ctx, http.MethodPost, "/sessions", req, &session); err != nil {
		return domain.Session{}, err
	}
	if err := session.Validate(); err != nil {
		return domain.Session{}, &ValidationError{Operation: "create session", Err: err}
	}
	return session, nil
}

// UpdateSessionRequest is a partial user-initiated session update.
type UpdateSessionRequest struct {
	Name        *string `json:"name,omitempty"`
	CurrentTask *string `json:"currentTask,omitempty"`
}

// UpdateSession patches a session.
func (c *Client) UpdateSession(ctx context.Context, id string, req UpdateSessionRequest) (domain.Session, error) {
	var session domain.Session
	if err := c.do(ctx, http.MethodPatch, "/sessions/"+url.PathEscape(id), req, &session); err != nil {
		return domain.Session{}, err
	}
	if err := session.Validate(); err != nil {
		return domain.Session{}, &ValidationError{Operation: "update session", Err: err}
	}
	return session, nil
}

// SessionLogs fetches the log lines of a session.
func (c *Client) SessionLogs(ctx context.Context, id string) ([]string, error) {
	var logs []string
	if err := c.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(id)+"/logs", nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// ListNotifications fetches notifications, optionally unread-only.
func (c *Client) ListNotifications(ctx context.Context, unreadOnly bool) ([]domain.Notification, error) {
	path := "/notifications"
	if unreadOnly {
		path += "?unread=true"
	}
	var notifications []domain.Notification
	if err := c.do(ctx, http.MethodGet, path, nil, &notifications); err != nil {
		return nil, err
	}
	for i := range notifications {
		if err := notifications[i].Validate(); err != nil {
			return nil, &ValidationError{Operation: "list notifications", Err: err}
		}
	}
	return notifications, nil
}

// MarkNotificationsRead marks the given notification ids read.
func (c *Client) MarkNotificationsRead(ctx context.Context, ids []string) error {
	payload := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}
	return c.do(ctx, http.MethodPost, "/notifications/mark-read", payload, nil)
}

// MarkAllNotificationsRead marks every notification read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/notifications/mark-all-read", nil, nil)
}

// MuteNotification mutes one notification thread.
func (c *Client) MuteNotification(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/notifications/"+url.PathEscape(id)+"/mute", nil, nil)
}

// do executes one request and decodes the response into out when
// non-nil. Failures come back as *Error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	operation := method + " " + path

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &Error{Operation: operation, Err: fmt.Errorf("encoding request: %w", err)}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Operation: operation, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &Error{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(detail)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Operation: operation, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}
