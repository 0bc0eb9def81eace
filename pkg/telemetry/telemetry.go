// Package telemetry wires tracing and metrics for the telemetry-emitter
// hook (§4.15): a Prometheus counter/histogram set scoped to work items,
// iterations, and hook firings, plus an OpenTelemetry tracer span per
// iteration run. Both are no-ops when disabled, so callers never need to
// nil-check before using a Manager.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config mirrors the obra.yaml hooks.telemetry section.
type Config struct {
	Enabled       bool
	ServiceName   string
	MetricsAddr   string
	TraceExporter string // "stdout", "" (disabled)
}

// Manager owns the tracer and meter providers for the telemetry hook's
// lifetime. A nil *Manager behaves as fully disabled.
type Manager struct {
	cfg      Config
	registry *prometheus.Registry
	tracer   trace.Tracer
	tp       *sdktrace.TracerProvider
	mp       *sdkmetric.MeterProvider

	workItemsCompleted metric.Int64Counter
	workItemsFailed    metric.Int64Counter
	iterationsRun      metric.Int64Counter
	iterationDuration  metric.Float64Histogram
	hooksFired         metric.Int64Counter
	hookErrors         metric.Int64Counter
	breakpointsOpened  metric.Int64Counter
}

// NewManager builds a Manager from Config. When cfg.Enabled is false, it
// returns a non-nil Manager whose recording methods are no-ops, so callers
// don't need a separate disabled branch.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	if !cfg.Enabled {
		return &Manager{cfg: cfg, tracer: trace.NewNoopTracerProvider().Tracer("obra")}, nil
	}

	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))

	registry := prometheus.NewRegistry()
	exporter, err := otelprometheus.New(otelprometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("telemetry: new prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter), sdkmetric.WithResource(res))
	otel.SetMeterProvider(mp)

	var tp *sdktrace.TracerProvider
	switch cfg.TraceExporter {
	case "stdout":
		spanExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("telemetry: new stdout trace exporter: %w", err)
		}
		tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(spanExporter), sdktrace.WithResource(res))
	default:
		tp = sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	}
	otel.SetTracerProvider(tp)

	meter := mp.Meter("github.com/obra/obra/pkg/telemetry")

	m := &Manager{cfg: cfg, registry: registry, tracer: tp.Tracer("github.com/obra/obra/pkg/iteration"), tp: tp, mp: mp}

	if m.workItemsCompleted, err = meter.Int64Counter("obra_work_items_completed_total",
		metric.WithDescription("work items that reached the completed status")); err != nil {
		return nil, err
	}
	if m.workItemsFailed, err = meter.Int64Counter("obra_work_items_failed_total",
		metric.WithDescription("work items that reached the failed status")); err != nil {
		return nil, err
	}
	if m.iterationsRun, err = meter.Int64Counter("obra_iterations_total",
		metric.WithDescription("iteration driver loop passes executed")); err != nil {
		return nil, err
	}
	if m.iterationDuration, err = meter.Float64Histogram("obra_iteration_duration_seconds",
		metric.WithDescription("wall-clock duration of a single iteration")); err != nil {
		return nil, err
	}
	if m.hooksFired, err = meter.Int64Counter("obra_hooks_fired_total",
		metric.WithDescription("hook dispatcher invocations, by hook and event")); err != nil {
		return nil, err
	}
	if m.hookErrors, err = meter.Int64Counter("obra_hook_errors_total",
		metric.WithDescription("hook dispatcher invocations that returned an error")); err != nil {
		return nil, err
	}
	if m.breakpointsOpened, err = meter.Int64Counter("obra_breakpoints_opened_total",
		metric.WithDescription("breakpoints opened by escalation")); err != nil {
		return nil, err
	}

	return m, nil
}

// Tracer returns the tracer to start iteration spans on. Never nil.
func (m *Manager) Tracer() trace.Tracer {
	if m == nil || m.tracer == nil {
		return trace.NewNoopTracerProvider().Tracer("obra")
	}
	return m.tracer
}

// RecordWorkItemCompleted records a work item reaching `completed`.
func (m *Manager) RecordWorkItemCompleted(ctx context.Context, kind string) {
	if m == nil || m.workItemsCompleted == nil {
		return
	}
	m.workItemsCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordWorkItemFailed records a work item reaching `failed`.
func (m *Manager) RecordWorkItemFailed(ctx context.Context, kind string) {
	if m == nil || m.workItemsFailed == nil {
		return
	}
	m.workItemsFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordIteration records one iteration driver loop pass and its duration.
func (m *Manager) RecordIteration(ctx context.Context, action string, durationSeconds float64) {
	if m == nil || m.iterationsRun == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("action", action))
	m.iterationsRun.Add(ctx, 1, attrs)
	m.iterationDuration.Record(ctx, durationSeconds, attrs)
}

// RecordHookFired records a hook dispatcher invocation and whether it errored.
func (m *Manager) RecordHookFired(ctx context.Context, hook, event string, err error) {
	if m == nil || m.hooksFired == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("hook", hook), attribute.String("event", event))
	m.hooksFired.Add(ctx, 1, attrs)
	if err != nil {
		m.hookErrors.Add(ctx, 1, attrs)
	}
}

// RecordBreakpointOpened records an escalation opening a breakpoint.
func (m *Manager) RecordBreakpointOpened(ctx context.Context, severity string) {
	if m == nil || m.breakpointsOpened == nil {
		return
	}
	m.breakpointsOpened.Add(ctx, 1, metric.WithAttributes(attribute.String("severity", severity)))
}

// Handler returns the Prometheus scrape handler. Returns 503 when disabled.
func (m *Manager) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("telemetry not enabled"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the tracer and meter providers.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	var errs []error
	if m.tp != nil {
		if err := m.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if m.mp != nil {
		if err := m.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("telemetry shutdown errors: %v", errs)
	}
	return nil
}
