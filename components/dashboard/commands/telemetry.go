package commands

import dashboard "github.com/goliatone/go-dashboard-editor/components/dashboard"

// Telemetry allows commands to emit structured events.
type Telemetry = dashboard.Telemetry

func normalizeTelemetry(t Telemetry) Telemetry {
	return dashboard.NormalizeTelemetry(t)
}
