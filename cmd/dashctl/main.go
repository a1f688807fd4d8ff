package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/ettle/strcase"

	"github.com/goliatone/go-dashboard-editor/components/dashboard"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/appstate"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/commands"
	"github.com/goliatone/go-dashboard-editor/pkg/config"
	dashboardpkg "github.com/goliatone/go-dashboard-editor/pkg/dashboard"
	"github.com/goliatone/go-dashboard-editor/pkg/observability"
)

type cli struct {
	Convert convertCmd `cmd:"" help:"Convert a persisted dashboard document to its serialized form (or back with --reverse)."`
	URL     urlCmd     `cmd:"" name:"url" help:"Print the app route, with its _a state, for a serialized dashboard."`
	New     newCmd     `cmd:"" help:"Add a dashboard entry to a seed manifest."`
	Seed    seedCmd    `cmd:"" help:"Load a seed manifest into the configured saved object backend."`
}

func main() {
	ctx := kong.Parse(&cli{},
		kong.Description("Dashboard document and seed manifest utility."),
		kong.UsageOnError(),
		kong.BindTo(context.Background(), (*context.Context)(nil)),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

type convertCmd struct {
	In      string `arg:"" type:"existingfile" help:"JSON document to convert."`
	Reverse bool   `help:"Treat the input as a serialized dashboard and emit the persisted document."`
}

func (cmd *convertCmd) Run(_ context.Context) error {
	data, err := os.ReadFile(cmd.In)
	if err != nil {
		return fmt.Errorf("dashctl: read %s: %w", cmd.In, err)
	}
	return convert(data, cmd.Reverse, os.Stdout)
}

func convert(data []byte, reverse bool, out io.Writer) error {
	var result any
	if reverse {
		var serialized dashboard.SerializedDashboard
		if err := json.Unmarshal(data, &serialized); err != nil {
			return fmt.Errorf("dashctl: parse serialized dashboard: %w", err)
		}
		doc, err := dashboard.ConvertFromSerialized(serialized)
		if err != nil {
			return err
		}
		result = doc
	} else {
		var doc dashboard.SavedDashboard
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("dashctl: parse saved dashboard: %w", err)
		}
		serialized, err := dashboard.ConvertToSerialized(&doc)
		if err != nil {
			return err
		}
		result = serialized
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

type urlCmd struct {
	In                string `arg:"" type:"existingfile" help:"Serialized dashboard JSON."`
	HideWriteControls bool   `help:"Build the state a viewer without write controls would see."`
}

func (cmd *urlCmd) Run(_ context.Context) error {
	data, err := os.ReadFile(cmd.In)
	if err != nil {
		return fmt.Errorf("dashctl: read %s: %w", cmd.In, err)
	}
	var serialized dashboard.SerializedDashboard
	if err := json.Unmarshal(data, &serialized); err != nil {
		return fmt.Errorf("dashctl: parse serialized dashboard: %w", err)
	}
	route, err := dashboardRoute(serialized, cmd.HideWriteControls)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, route)
	return nil
}

func dashboardRoute(serialized dashboard.SerializedDashboard, hideWriteControls bool) (string, error) {
	state, err := appstate.URLValue(appstate.Defaults(serialized, hideWriteControls))
	if err != nil {
		return "", fmt.Errorf("dashctl: encode app state: %w", err)
	}
	route := dashboard.CreateNewDashboardURL
	if serialized.ID != "" {
		route = dashboard.EditURL(serialized.ID)
	}
	return route + "?" + url.Values{dashboard.AppStateKey: {state}}.Encode(), nil
}

type newCmd struct {
	Manifest    string `required:"" type:"path" help:"Seed manifest YAML to update (created when missing)."`
	Title       string `required:"" help:"Dashboard title."`
	ID          string `help:"Dashboard id (defaults to the kebab-cased title)."`
	Description string `help:"One-line description."`
	Overwrite   bool   `help:"Replace an existing entry with the same id."`
}

func (cmd *newCmd) Run(_ context.Context) error {
	path, err := filepath.Abs(cmd.Manifest)
	if err != nil {
		return fmt.Errorf("dashctl: resolve manifest path: %w", err)
	}
	id, err := addDashboard(path, dashboard.ManifestDashboard{
		ID:          cmd.ID,
		Title:       cmd.Title,
		Description: cmd.Description,
	}, cmd.Overwrite)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Added %s to %s\n", id, path)
	return nil
}

func addDashboard(path string, entry dashboard.ManifestDashboard, overwrite bool) (string, error) {
	entry.Title = strings.TrimSpace(entry.Title)
	if entry.Title == "" {
		return "", errors.New("dashctl: title is required")
	}
	if entry.ID == "" {
		entry.ID = strcase.ToKebab(entry.Title)
	}
	doc, err := loadOrInitManifest(path)
	if err != nil {
		return "", err
	}
	replaced := false
	for idx := range doc.Dashboards {
		if doc.Dashboards[idx].ID != entry.ID {
			continue
		}
		if !overwrite {
			return "", fmt.Errorf("dashctl: manifest already defines dashboard %s (use --overwrite to replace)", entry.ID)
		}
		doc.Dashboards[idx] = entry
		replaced = true
	}
	if !replaced {
		doc.Dashboards = append(doc.Dashboards, entry)
	}
	sort.Slice(doc.Dashboards, func(i, j int) bool {
		return doc.Dashboards[i].ID < doc.Dashboards[j].ID
	})
	if err := doc.Validate(); err != nil {
		return "", err
	}
	return entry.ID, writeManifest(path, doc)
}

func loadOrInitManifest(path string) (*dashboard.ManifestDocument, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &dashboard.ManifestDocument{
				Version:    dashboard.ManifestVersion,
				Dashboards: []dashboard.ManifestDashboard{},
				Source:     path,
			}, nil
		}
		return nil, fmt.Errorf("dashctl: stat manifest: %w", err)
	}
	return dashboard.ReadManifest(path)
}

func writeManifest(path string, doc *dashboard.ManifestDocument) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("dashctl: mkdir %s: %w", filepath.Dir(path), err)
	}
	file, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("dashctl: create manifest %s: %w", path, err)
	}
	defer file.Close()
	return dashboard.EncodeManifest(file, doc)
}

type seedCmd struct {
	Config   string `type:"path" help:"Config YAML; DASHBOARD_* variables still apply."`
	Manifest string `required:"" type:"existingfile" help:"Seed manifest to load."`
}

func (cmd *seedCmd) Run(ctx context.Context) error {
	cfg, err := config.Load(cmd.Config)
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return fmt.Errorf("dashctl: build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	loader, closeLoader, err := dashboardpkg.OpenLoader(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLoader()

	var ids []string
	seed := commands.NewSeedDashboardsCommand(loader, observability.ZapTelemetry{Logger: logger})
	if err := seed.Execute(ctx, commands.SeedDashboardsInput{Path: cmd.Manifest, IDs: &ids}); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Seeded %d dashboards into %s\n", len(ids), cfg.Loader.Driver)
	return nil
}
