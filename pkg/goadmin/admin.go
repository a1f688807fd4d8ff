package goadmin

import (
	"context"
	"errors"
	"strings"

	core "github.com/goliatone/go-dashboard-editor/components/dashboard"
	dashboardpkg "github.com/goliatone/go-dashboard-editor/pkg/dashboard"
)

// MenuBuilder ensures dashboard entries exist within the admin navigation.
type MenuBuilder interface {
	EnsureMenuItem(ctx context.Context, menuCode string, item MenuItem) error
}

// MenuItem captures dashboard link metadata.
type MenuItem struct {
	Label    string
	Route    string
	Icon     string
	Position int
	Parent   string
}

// Config wires the dashboards service into an admin shell.
type Config struct {
	EnableDashboard bool
	MenuCode        string
	MenuBuilder     MenuBuilder
	Service         *dashboardpkg.Service
	// BasePath prefixes every app route. Defaults to /app/dashboards.
	BasePath        string
	DefaultMenuItem MenuItem
	// Pinned adds a child entry for the first Pinned dashboards of the listing.
	Pinned int
}

// Admin exposes helpers for go-admin style applications.
type Admin struct {
	cfg Config
}

// New creates an Admin helper that can seed dashboard menus.
func New(cfg Config) (*Admin, error) {
	if cfg.EnableDashboard && cfg.Service == nil {
		return nil, errors.New("goadmin: dashboard service is required when enabled")
	}
	if cfg.MenuCode == "" {
		cfg.MenuCode = "admin.main"
	}
	if cfg.BasePath == "" {
		cfg.BasePath = "/app/" + core.AppID
	}
	cfg.BasePath = strings.TrimRight(cfg.BasePath, "/")
	if cfg.DefaultMenuItem.Label == "" {
		cfg.DefaultMenuItem.Label = "Dashboards"
	}
	if cfg.DefaultMenuItem.Route == "" {
		cfg.DefaultMenuItem.Route = cfg.BasePath + "#" + core.LandingPagePath
	}
	if cfg.DefaultMenuItem.Icon == "" {
		cfg.DefaultMenuItem.Icon = "dashboard"
	}
	return &Admin{cfg: cfg}, nil
}

// Dashboard exposes the configured dashboard service when enabled.
func (a *Admin) Dashboard() *dashboardpkg.Service {
	if !a.cfg.EnableDashboard {
		return nil
	}
	return a.cfg.Service
}

// Bootstrap seeds the landing entry and, when Pinned is set, one child entry per
// listed dashboard.
func (a *Admin) Bootstrap(ctx context.Context) error {
	if !a.cfg.EnableDashboard || a.cfg.MenuBuilder == nil {
		return nil
	}
	root := a.cfg.DefaultMenuItem
	if err := a.cfg.MenuBuilder.EnsureMenuItem(ctx, a.cfg.MenuCode, root); err != nil {
		return err
	}
	if a.cfg.Pinned <= 0 {
		return nil
	}
	items, err := a.cfg.Service.List(ctx, core.FindOptions{PerPage: a.cfg.Pinned})
	if err != nil {
		return err
	}
	for idx, item := range items {
		if idx >= a.cfg.Pinned {
			break
		}
		if err := a.cfg.MenuBuilder.EnsureMenuItem(ctx, a.cfg.MenuCode, MenuItem{
			Label:    item.Title,
			Route:    a.cfg.BasePath + "#" + item.EditURL,
			Icon:     "dashboard",
			Position: idx,
			Parent:   root.Label,
		}); err != nil {
			return err
		}
	}
	return nil
}
