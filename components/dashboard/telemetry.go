package dashboard

import "context"

// Telemetry event names.
const (
	EventSave            = "dashboard.save"
	EventDelete          = "dashboard.delete"
	EventLoad            = "dashboard.load"
	EventLoadFailed      = "dashboard.load.failed"
	EventContainerReload = "dashboard.container.reload"
	EventTransition      = "dashboard.appstate.transition"
	EventSessionOpen     = "dashboard.session.open"
	EventSessionClose    = "dashboard.session.close"
)

// Telemetry records dashboard events for observability.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

// NormalizeTelemetry returns a no-op sink for nil.
func NormalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}
