package appstate

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-dashboard-editor/components/dashboard"
	"go.uber.org/zap"
)

var errMissingStorage = errors.New("appstate: url state storage is required")

// Args configures Create.
type Args struct {
	// Defaults are computed from the loaded dashboard (see Defaults).
	Defaults AppState
	Storage  URLStateStorage
	// History is consulted for the stale-instance guard. Nil disables the guard.
	History dashboard.History
	// InstanceID is the id of the dashboard this container belongs to, empty for
	// unsaved dashboards.
	InstanceID string
	// Key overrides dashboard.AppStateKey.
	Key       string
	Logger    *zap.Logger
	Telemetry dashboard.Telemetry
}

// Create builds a container seeded with the URL state merged over the defaults,
// writes the merged state back to the URL with replace, and keeps both in sync
// until stop runs.
func Create(args Args) (*Container, func(), error) {
	if args.Storage == nil {
		return nil, nil, errMissingStorage
	}
	if args.Key == "" {
		args.Key = dashboard.AppStateKey
	}
	if args.Logger == nil {
		args.Logger = zap.NewNop()
	}
	e := &engine{
		args:     args,
		defaults: args.Defaults.Clone(),
		log:      args.Logger.Named("appstate"),
	}

	initial := e.defaults
	var fromURL urlState
	ok, err := args.Storage.Get(args.Key, &fromURL)
	switch {
	case err != nil:
		e.log.Warn("ignoring unreadable url state", zap.Error(err))
	case ok:
		initial = merge(e.defaults, fromURL)
	}

	container := NewContainer(initial)
	container.telemetry = dashboard.NormalizeTelemetry(args.Telemetry)
	e.container = container
	if err := e.write(initial, true); err != nil {
		return nil, nil, err
	}

	container.observe(func(s AppState) {
		if err := e.write(s, false); err != nil {
			e.log.Error("url state write failed", zap.Error(err))
		}
	})
	unlisten := args.Storage.Listen(args.Key, e.inbound)
	container.setStatus(StatusSynced)

	var once sync.Once
	stop := func() {
		once.Do(func() {
			unlisten()
			container.stop()
		})
	}
	return container, stop, nil
}

type engine struct {
	args      Args
	defaults  AppState
	container *Container
	log       *zap.Logger
	// writing is set while the engine itself navigates, so the history echo of
	// its own write is ignored.
	writing atomic.Bool
}

func (e *engine) write(s AppState, replace bool) error {
	e.writing.Store(true)
	defer e.writing.Store(false)
	return e.args.Storage.Set(e.args.Key, toURL(s), replace)
}

func (e *engine) inbound() {
	if e.writing.Load() || e.container.Status() == StatusStopped {
		return
	}
	if h := e.args.History; h != nil {
		if id := dashboard.DashboardIDFromPath(h.Location().Pathname); id != e.args.InstanceID {
			e.log.Debug("dropping url state for another dashboard",
				zap.String("url_id", id), zap.String("instance_id", e.args.InstanceID))
			return
		}
	}
	var fromURL urlState
	ok, err := e.args.Storage.Get(e.args.Key, &fromURL)
	if err != nil {
		e.log.Warn("ignoring unreadable url state", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	current := e.container.Get()
	next := merge(e.defaults, fromURL)
	next.HasUnsavedChanges = current.HasUnsavedChanges
	if reflect.DeepEqual(next, current) {
		return
	}
	e.log.Debug("applying url state", zap.Uint64("version", e.container.Version()))
	e.container.replace(next)
}
