package dashboard

import (
	"context"
	"errors"

	router "github.com/goliatone/go-router"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	core "github.com/goliatone/go-dashboard-editor/components/dashboard"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/commands"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/embeddable"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/gorouter"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/httpapi"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/instance"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/queries"
	"github.com/goliatone/go-dashboard-editor/pkg/activity"
	"github.com/goliatone/go-dashboard-editor/pkg/activity/usersink"
	"github.com/goliatone/go-dashboard-editor/pkg/config"
	"github.com/goliatone/go-dashboard-editor/pkg/observability"
)

// AppOptions overrides collaborators New would otherwise build from config.
type AppOptions struct {
	Logger *zap.Logger
	// Registerer receives the dashboard metrics. Nil skips metrics.
	Registerer prometheus.Registerer
	// Loader replaces the configured backend.
	Loader Loader
	// ActivitySink records save and delete activity through go-users.
	ActivitySink  usertypes.ActivitySink
	Notifications core.Notifications
	Chrome        core.Chrome
	Messages      *core.Messages
}

// App is a fully wired dashboards application: persistence, sessions and the
// command/query executor behind the HTTP routes.
type App struct {
	Config    *config.Config
	Loader    Loader
	Service   *Service
	Factory   *embeddable.Factory
	Sessions  *instance.Sessions
	Executor  *httpapi.CommandExecutor
	Broadcast *core.BroadcastHook
	Metrics   *observability.Metrics
	Logger    *zap.Logger
	Telemetry core.Telemetry

	closeLoader func()
}

// New wires an App from cfg. Dashboards listed in cfg.Loader.Manifest are seeded
// before New returns.
func New(ctx context.Context, cfg *config.Config, opts AppOptions) (*App, error) {
	if cfg == nil {
		return nil, errors.New("dashboard: config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sinks := observability.MultiTelemetry{observability.ZapTelemetry{Logger: logger.Named("dashboard.telemetry")}}
	var metrics *observability.Metrics
	if opts.Registerer != nil && cfg.Observability.Metrics.Enabled {
		metrics = observability.NewMetrics(opts.Registerer)
		sinks = append(sinks, observability.PrometheusTelemetry{Metrics: metrics})
	}

	loader, closeLoader := opts.Loader, func() {}
	if loader == nil {
		var err error
		loader, closeLoader, err = OpenLoader(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	if cfg.Loader.Manifest != "" {
		seed := commands.NewSeedDashboardsCommand(loader, sinks)
		if err := seed.Execute(ctx, commands.SeedDashboardsInput{Path: cfg.Loader.Manifest}); err != nil {
			closeLoader()
			return nil, err
		}
	}

	var hooks activity.Hooks
	if opts.ActivitySink != nil {
		hooks = append(hooks, usersink.Hook{Sink: opts.ActivitySink})
	}
	broadcast := core.NewBroadcastHook()
	service := core.NewService(core.ServiceOptions{
		Loader:         loader,
		RefreshHook:    broadcast,
		Telemetry:      sinks,
		ActivityHooks:  hooks,
		ActivityConfig: activity.Config{Enabled: len(hooks) > 0},
		Logger:         logger,
	})

	capabilities := core.StaticCapabilities(core.Capabilities{
		CreateNew:         cfg.App.CreateNew,
		ShowWriteControls: cfg.App.ShowWriteControls,
	})
	factory := embeddable.NewFactory(embeddable.FactoryOptions{
		Loader:       loader,
		Capabilities: capabilities,
		Logger:       logger,
		Telemetry:    sinks,
	})
	sessions := instance.NewSessions(instance.Deps{
		Factory:       factory,
		Loader:        loader,
		Chrome:        opts.Chrome,
		Notifications: opts.Notifications,
		Messages:      opts.Messages,
		Logger:        logger,
		Telemetry:     sinks,
	}, cfg.App.HideWriteControls)

	executor := &httpapi.CommandExecutor{
		ListQuerier:          queries.NewListDashboardsQuery(service),
		LoadQuerier:          queries.NewLoadDashboardQuery(service),
		EditableQuerier:      queries.NewIsEditableQuery(factory),
		RenderQuerier:        queries.NewRenderDashboardQuery(sessions),
		SaveCommander:        commands.NewSaveDashboardCommand(service, sinks),
		SaveSessionCommander: commands.NewSaveSessionCommand(sessions, service, sinks),
		DeleteCommander:      commands.NewDeleteDashboardsCommand(service, sinks),
		ReloadCommander:      commands.NewReloadDashboardCommand(sessions, service, sinks),
		UpdateCommander:      commands.NewUpdateInputCommand(sessions, sinks),
		TransitionCommander:  commands.NewTransitionCommand(sessions, sinks),
	}

	return &App{
		Config:      cfg,
		Loader:      loader,
		Service:     service,
		Factory:     factory,
		Sessions:    sessions,
		Executor:    executor,
		Broadcast:   broadcast,
		Metrics:     metrics,
		Logger:      logger,
		Telemetry:   sinks,
		closeLoader: closeLoader,
	}, nil
}

// RegisterRoutes mounts the dashboard API on r under the configured base path.
func RegisterRoutes[T any](app *App, r router.Router[T]) error {
	return gorouter.Register(gorouter.Config[T]{
		Router:    r,
		API:       app.Executor,
		Broadcast: app.Broadcast,
		BasePath:  app.Config.Server.BasePath,
	})
}

// Close tears down every session and releases the backend.
func (a *App) Close() {
	a.Sessions.CloseAll()
	a.closeLoader()
}
