package ports

import "context"

// MetricsExporter receives counters from the sync engine. Implemented
// by the OTEL adapter; a noop implementation is used when telemetry is
// disabled.
type MetricsExporter interface {
	EventReceived(ctx context.Context, eventType string)
	EventDeduplicated(ctx context.Context, eventType string)
	EventApplied(ctx context.Context, eventType string)
	ReconcileError(ctx context.Context, eventType string)
	TransportReconnect(ctx context.Context)
	DataAccessFailure(ctx context.Context, operation string)

	// Shutdown flushes pending metrics.
	Shutdown(ctx context.Context) error
}
