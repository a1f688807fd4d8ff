package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-dashboard-editor/components/dashboard"
)

// SeedDashboardsInput names a manifest to load. Manifest wins over Path. IDs,
// when set, receives the ids that were saved.
type SeedDashboardsInput struct {
	Path     string
	Manifest *dashboard.ManifestDocument
	IDs      *[]string
}

// SeedDashboardsCommand preloads manifest dashboards into a loader.
type SeedDashboardsCommand struct {
	loader    dashboard.Loader
	telemetry Telemetry
}

// NewSeedDashboardsCommand wires dependencies.
func NewSeedDashboardsCommand(loader dashboard.Loader, telemetry Telemetry) *SeedDashboardsCommand {
	return &SeedDashboardsCommand{loader: loader, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SeedDashboardsInput] = (*SeedDashboardsCommand)(nil)

// Execute validates the manifest and saves every entry.
func (c *SeedDashboardsCommand) Execute(ctx context.Context, msg SeedDashboardsInput) error {
	if c.loader == nil {
		return errors.New("seed command requires loader")
	}
	doc := msg.Manifest
	if doc == nil {
		if msg.Path == "" {
			return errors.New("seed command requires a manifest or path")
		}
		read, err := dashboard.ReadManifest(msg.Path)
		if err != nil {
			return err
		}
		doc = read
	}
	if err := doc.Validate(); err != nil {
		return err
	}
	ids, err := dashboard.SeedDashboards(ctx, c.loader, doc)
	if msg.IDs != nil {
		*msg.IDs = ids
	}
	c.telemetry.Record(ctx, "dashboard.seed", map[string]any{
		"seeded": len(ids),
		"failed": err != nil,
	})
	return err
}
