package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	serviceName    = "agentsync"
	serviceVersion = "1.0.0"
)

// Exporter exports sync pipeline metrics to an OTEL Collector.
type Exporter struct {
	provider         *sdkmetric.MeterProvider
	meter            metric.Meter
	eventsReceived   metric.Int64Counter
	eventsDeduped    metric.Int64Counter
	eventsApplied    metric.Int64Counter
	reconcileErrors  metric.Int64Counter
	reconnectsTotal  metric.Int64Counter
	dataAccessFailed metric.Int64Counter
}

// NewExporter creates a new OTEL metrics exporter.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	eventsReceived, err := meter.Int64Counter(
		"agentsync_events_received_total",
		metric.WithDescription("Total events received from the stream"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating received counter: %w", err)
	}

	eventsDeduped, err := meter.Int64Counter(
		"agentsync_events_deduplicated_total",
		metric.WithDescription("Events dropped as duplicates"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dedup counter: %w", err)
	}

	eventsApplied, err := meter.Int64Counter(
		"agentsync_events_applied_total",
		metric.WithDescription("Events applied to the local cache"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating applied counter: %w", err)
	}

	reconcileErrors, err := meter.Int64Counter(
		"agentsync_reconcile_errors_total",
		metric.WithDescription("Events that failed to reconcile"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reconcile error counter: %w", err)
	}

	reconnectsTotal, err := meter.Int64Counter(
		"agentsync_transport_reconnects_total",
		metric.WithDescription("Stream reconnection attempts"),
		metric.WithUnit("{reconnect}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reconnect counter: %w", err)
	}

	dataAccessFailed, err := meter.Int64Counter(
		"agentsync_data_access_failures_total",
		metric.WithDescription("Failed REST data access operations"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating data access counter: %w", err)
	}

	return &Exporter{
		provider:         provider,
		meter:            meter,
		eventsReceived:   eventsReceived,
		eventsDeduped:    eventsDeduped,
		eventsApplied:    eventsApplied,
		reconcileErrors:  reconcileErrors,
		reconnectsTotal:  reconnectsTotal,
		dataAccessFailed: dataAccessFailed,
	}, nil
}

func (e *Exporter) EventReceived(ctx context.Context, eventType string) {
	e.eventsReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

func (e *Exporter) EventDeduplicated(ctx context.Context, eventType string) {
	e.eventsDeduped.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

func (e *Exporter) EventApplied(ctx context.Context, eventType string) {
	e.eventsApplied.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

func (e *Exporter) ReconcileError(ctx context.Context, eventType string) {
	e.reconcileErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

func (e *Exporter) TransportReconnect(ctx context.Context) {
	e.reconnectsTotal.Add(ctx, 1)
}

func (e *Exporter) DataAccessFailure(ctx context.Context, operation string) {
	e.dataAccessFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// Shutdown flushes any pending metrics and stops the provider.
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}
