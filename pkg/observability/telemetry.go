package observability

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	dashboard "github.com/goliatone/go-dashboard-editor/components/dashboard"
)

// ZapTelemetry writes one log line per dashboard event.
type ZapTelemetry struct {
	Logger *zap.Logger
}

var _ dashboard.Telemetry = ZapTelemetry{}

// Record logs the event. Load failures log at warn, app state transitions at debug.
func (t ZapTelemetry) Record(ctx context.Context, event string, payload map[string]any) {
	logger := LoggerFrom(ctx, t.Logger)
	if logger == nil {
		return
	}
	fields := make([]zap.Field, 0, len(payload)+1)
	fields = append(fields, zap.String("event", event))
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, payload[k]))
	}
	switch event {
	case dashboard.EventLoadFailed:
		logger.Warn("dashboard event", fields...)
	case dashboard.EventTransition:
		logger.Debug("dashboard event", fields...)
	default:
		logger.Info("dashboard event", fields...)
	}
}

// PrometheusTelemetry counts dashboard events on Metrics.
type PrometheusTelemetry struct {
	Metrics *Metrics
}

var _ dashboard.Telemetry = PrometheusTelemetry{}

func (t PrometheusTelemetry) Record(_ context.Context, event string, payload map[string]any) {
	if t.Metrics == nil {
		return
	}
	t.Metrics.EventsTotal.WithLabelValues(event).Inc()
	switch event {
	case dashboard.EventLoadFailed:
		reason := "error"
		if v, ok := payload["reason"]; ok {
			reason = fmt.Sprint(v)
		}
		t.Metrics.LoadFailuresTotal.WithLabelValues(reason).Inc()
	case dashboard.EventSessionOpen:
		t.Metrics.ActiveSessions.Inc()
	case dashboard.EventSessionClose:
		t.Metrics.ActiveSessions.Dec()
	}
}

// MultiTelemetry fans an event out to every sink.
type MultiTelemetry []dashboard.Telemetry

func (m MultiTelemetry) Record(ctx context.Context, event string, payload map[string]any) {
	for _, sink := range m {
		if sink != nil {
			sink.Record(ctx, event, payload)
		}
	}
}
