package realtime

import (
	"context"
	"log/slog"

	"github.com/emiliopalmerini/agentsync/internal/domain"
	"github.com/emiliopalmerini/agentsync/internal/ports"
)

// Applier merges one validated event into the cache. Implemented by
// cache.Reconciler.
type Applier interface {
	Apply(ev domain.Event) error
}

// Invalidator marks every cache snapshot stale. Implemented by
// cache.Store.
type Invalidator interface {
	InvalidateAll()
}

// Engine wires the pipeline: transport frames pass the deduplicator,
// are ordered per entity by the serializer, and finally reach the
// reconciler. It also owns the foreground/background policy for the
// transport.
type Engine struct {
	transport  *Transport
	dedup      *Deduplicator
	serializer *Serializer
	applier    Applier
	cache      Invalidator
	metrics    ports.MetricsExporter
	logger     *slog.Logger

	// onForeground refetches the cold-load views after a return to
	// foreground invalidated the cache.
	onForeground func(ctx context.Context)

	unsubEvents func()
	unsubState  func()
}

// EngineConfig assembles an Engine. Metrics and Logger fall back to
// noop/default when nil.
type EngineConfig struct {
	Transport    *Transport
	Applier      Applier
	Cache        Invalidator
	Metrics      ports.MetricsExporter
	Logger       *slog.Logger
	OnForeground func(ctx context.Context)
}

// NewEngine subscribes to the transport and starts processing events.
// The transport is not connected yet; call Foreground.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	e := &Engine{
		transport:    cfg.Transport,
		dedup:        NewDeduplicator(),
		serializer:   NewSerializer(),
		applier:      cfg.Applier,
		cache:        cfg.Cache,
		metrics:      metrics,
		logger:       logger,
		onForeground: cfg.OnForeground,
	}
	e.unsubEvents = e.transport.OnEvent(e.handle)
	e.unsubState = e.transport.OnStateChange(func(state ConnState) {
		if state == StateReconnecting {
			e.metrics.TransportReconnect(context.Background())
		}
	})
	return e
}

// handle processes one delivered frame: dedup, then a serialized
// reconciliation keyed by the entity id. Reconciliation failures are
// reported with event-type context and never stop the pipeline.
func (e *Engine) handle(ev domain.Event) {
	ctx := context.Background()
	e.metrics.EventReceived(ctx, string(ev.Type))

	if e.dedup.IsDuplicate(ev) {
		e.metrics.EventDeduplicated(ctx, string(ev.Type))
		return
	}

	key, err := ev.EntityKey()
	if err != nil {
		// ParseEvent already vetted the payload; reaching this means
		// an event was constructed without it.
		e.logger.Error("event without entity key", "type", ev.Type, "error", err)
		e.metrics.ReconcileError(ctx, string(ev.Type))
		return
	}

	e.serializer.Enqueue(key, func() {
		if err := e.applier.Apply(ev); err != nil {
			e.logger.Error("reconciliation failed",
				"type", ev.Type,
				"entity", key,
				"error", err,
			)
			e.metrics.ReconcileError(ctx, string(ev.Type))
			return
		}
		e.metrics.EventApplied(ctx, string(ev.Type))
	})
}

// Foreground connects the transport and refreshes the cache. Called on
// app start and whenever the host application returns to foreground:
// snapshots are marked stale and the cold-load views refetched.
func (e *Engine) Foreground(ctx context.Context) {
	if e.cache != nil {
		e.cache.InvalidateAll()
	}
	e.transport.Connect()
	if e.onForeground != nil {
		e.onForeground(ctx)
	}
}

// Background disconnects the transport. No events are processed until
// the next Foreground.
func (e *Engine) Background() {
	e.transport.Disconnect()
}

// ConnState returns the transport's current connection state.
func (e *Engine) ConnState() ConnState {
	return e.transport.State()
}

// Retry forces an immediate reconnect attempt.
func (e *Engine) Retry() {
	e.transport.Retry()
}

// PendingKeys reports entities with queued reconciliations.
func (e *Engine) PendingKeys() int {
	return e.serializer.PendingKeys()
}

// Close unsubscribes from the transport and disconnects it.
func (e *Engine) Close() {
	e.unsubEvents()
	e.unsubState()
	e.transport.Disconnect()
}
