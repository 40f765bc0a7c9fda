package ports

import "context"

// NoopMetrics discards all counters. Used when telemetry is disabled
// and as the default in tests.
type NoopMetrics struct{}

func (NoopMetrics) EventReceived(context.Context, string)     {}
func (NoopMetrics) EventDeduplicated(context.Context, string) {}
func (NoopMetrics) EventApplied(context.Context, string)      {}
func (NoopMetrics) ReconcileError(context.Context, string)    {}
func (NoopMetrics) TransportReconnect(context.Context)        {}
func (NoopMetrics) DataAccessFailure(context.Context, string) {}
func (NoopMetrics) Shutdown(context.Context) error            { return nil }
