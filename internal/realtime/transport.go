package realtime

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/emiliopalmerini/agentsync/internal/domain"
)

// ConnState is the observable state of the push connection.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateReconnecting ConnState = "reconnecting"
	StateError        ConnState = "error"
)

// maxFrameSize bounds a single stream frame. Session payloads are
// small; anything larger is a protocol violation.
const maxFrameSize = 1 << 20

// defaultBaseDelay is the reconnect backoff base when the config
// leaves it zero.
const defaultBaseDelay = time.Second

// TransportConfig configures the push stream client.
type TransportConfig struct {
	// StreamURL is the long-lived endpoint delivering newline-delimited
	// JSON event frames.
	StreamURL string

	// Token, when set, is sent as a bearer token. Obtaining and
	// refreshing it is the caller's concern.
	Token string

	// BaseDelay is the reconnect backoff base: the nth consecutive
	// failure waits BaseDelay × 2^n before the next attempt.
	BaseDelay time.Duration

	Client *http.Client
	Logger *slog.Logger

	// FrameError, when set, is called for every frame that fails
	// validation. The frame is dropped either way.
	FrameError func(error)
}

// Transport owns the persistent push connection. It fans incoming
// events and connection-state transitions out to subscribers and
// reconnects with exponential backoff on unexpected drops.
//
// Connection errors never surface to callers directly: they are only
// observable through OnStateChange.
type Transport struct {
	url        string
	token      string
	baseDelay  time.Duration
	client     *http.Client
	logger     *slog.Logger
	frameError func(error)

	mu sync.Mutex
	// generation increments on every Connect and Disconnect. Frames
	// read by a goroutine from an older generation are discarded, so
	// nothing is delivered after Disconnect even when a frame was
	// already in flight.
	generation int
	state      ConnState
	cancel     context.CancelFunc
	retryNow   chan struct{}
	eventSubs  map[int]func(domain.Event)
	stateSubs  map[int]func(ConnState)
	nextSubID  int
}

// NewTransport creates a disconnected transport.
func NewTransport(cfg TransportConfig) *Transport {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	return &Transport{
		url:        cfg.StreamURL,
		token:      cfg.Token,
		baseDelay:  baseDelay,
		client:     client,
		logger:     logger,
		frameError: cfg.FrameError,
		state:      StateDisconnected,
		eventSubs:  make(map[int]func(domain.Event)),
		stateSubs:  make(map[int]func(ConnState)),
	}
}

// Connect establishes the push connection and keeps it alive until
// Disconnect. Calling Connect while already connected is a no-op.
func (t *Transport) Connect() {
	t.mu.Lock()
	if t.cancel != nil {
		t.mu.Unlock()
		return
	}
	t.generation++
	generation := t.generation
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.retryNow = make(chan struct{}, 1)
	retryNow := t.retryNow
	t.mu.Unlock()

	go t.run(ctx, generation, retryNow)
}

// Disconnect tears the connection down and suppresses reconnection
// until the next Connect. No handler receives anything after this
// returns, even for frames already read off the socket.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.generation++
	t.retryNow = nil
	changed := t.state != StateDisconnected
	t.state = StateDisconnected
	subs := t.stateSubsLocked()
	t.mu.Unlock()

	if changed {
		for _, sub := range subs {
			sub(StateDisconnected)
		}
	}
}

// Retry forces an immediate reconnect attempt, skipping whatever
// backoff delay is pending. A no-op while connected or after a manual
// Disconnect.
func (t *Transport) Retry() {
	t.mu.Lock()
	retryNow := t.retryNow
	t.mu.Unlock()
	if retryNow == nil {
		return
	}
	select {
	case retryNow <- struct{}{}:
	default:
	}
}

// State returns the current connection state.
func (t *Transport) State() ConnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// OnEvent registers a handler for incoming events and returns its
// unsubscribe function. Multiple subscribers are supported.
func (t *Transport) OnEvent(handler func(domain.Event)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextSubID
	t.nextSubID++
	t.eventSubs[id] = handler
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.eventSubs, id)
	}
}

// OnStateChange registers a handler for connection-state transitions
// and returns its unsubscribe function.
func (t *Transport) OnStateChange(handler func(ConnState)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextSubID
	t.nextSubID++
	t.stateSubs[id] = handler
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.stateSubs, id)
	}
}

// run is the connect/read/backoff loop for one Connect generation. It
// exits when the generation is superseded or the context is cancelled.
func (t *Transport) run(ctx context.Context, generation int, retryNow chan struct{}) {
	attempt := 0
	for {
		if attempt == 0 {
			t.setState(generation, StateConnecting)
		} else {
			t.setState(generation, StateReconnecting)
		}

		connected, err := t.stream(ctx, generation)
		if ctx.Err() != nil || !t.current(generation) {
			return
		}
		if connected {
			// Counter resets only once a connection actually
			// succeeded; a failing dial keeps growing the delay.
			attempt = 0
		}

		t.setState(generation, StateError)
		delay := t.baseDelay << attempt
		attempt++
		t.logger.Warn("push stream dropped, reconnecting",
			"error", err,
			"attempt", attempt,
			"delay", delay,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-retryNow:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// stream opens the connection and reads frames until it drops.
// Returns whether the connection was established at all, plus the
// terminating error.
func (t *Transport) stream(ctx context.Context, generation int) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
	if err != nil {
		return false, err
	}
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := t.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("stream endpoint returned %s", resp.Status)
	}

	t.setState(generation, StateConnected)
	t.logger.Info("push stream connected", "url", t.url)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == ':' {
			// Blank keep-alives and comment heartbeats.
			continue
		}
		ev, err := domain.ParseEvent(line)
		if err != nil {
			// A single bad frame must not take the stream down or
			// reach the cache.
			t.logger.Error("dropping malformed frame", "error", err)
			if t.frameError != nil {
				t.frameError(err)
			}
			continue
		}
		if !t.deliver(generation, ev) {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return true, err
	}
	return true, fmt.Errorf("stream closed by server")
}

// deliver fans an event out to subscribers. Returns false when the
// generation has been superseded, in which case nothing was delivered.
func (t *Transport) deliver(generation int, ev domain.Event) bool {
	t.mu.Lock()
	if generation != t.generation {
		t.mu.Unlock()
		return false
	}
	subs := make([]func(domain.Event), 0, len(t.eventSubs))
	for _, sub := range t.eventSubs {
		subs = append(subs, sub)
	}
	t.mu.Unlock()

	for _, sub := range subs {
		sub(ev)
	}
	return true
}

// setState records a state transition and notifies subscribers,
// unless the generation has been superseded.
func (t *Transport) setState(generation int, state ConnState) {
	t.mu.Lock()
	if generation != t.generation || t.state == state {
		t.mu.Unlock()
		return
	}
	t.state = state
	subs := t.stateSubsLocked()
	t.mu.Unlock()

	for _, sub := range subs {
		sub(state)
	}
}

func (t *Transport) stateSubsLocked() []func(ConnState) {
	subs := make([]func(ConnState), 0, len(t.stateSubs))
	for _, sub := range t.stateSubs {
		subs = append(subs, sub)
	}
	return subs
}

func (t *Transport) current(generation int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return generation == t.generation
}
