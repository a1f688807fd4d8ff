package instance

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-dashboard-editor/components/dashboard"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/editor"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/embeddable"
)

// State is the load orchestration state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateErrorRedirect
	StateErrorRecoverable
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateErrorRedirect:
		return "error-redirect"
	case StateErrorRecoverable:
		return "error-recoverable"
	default:
		return "idle"
	}
}

var errMissingFactory = errors.New("instance: embeddable factory is required")

// newTarget is the target key of the create route.
const newTarget = "new"

// Deps are the collaborators of a Loader.
type Deps struct {
	Factory *embeddable.Factory
	// Loader supplies the defaulted document of new dashboards. Nil falls back to
	// dashboard.NewSavedDashboard.
	Loader        dashboard.Loader
	History       dashboard.History
	Chrome        dashboard.Chrome
	Notifications dashboard.Notifications
	Messages      *dashboard.Messages
	Logger        *zap.Logger
	Telemetry     dashboard.Telemetry
}

// Params describe one mount.
type Params struct {
	// DashboardID is the id from the route. Empty, or a location on the create
	// route, loads a new dashboard.
	DashboardID string
	Node        editor.Node
	// ChromeVisible renders through an editor controller; otherwise the handler is
	// mounted directly into Node.
	ChromeVisible bool
	Input         embeddable.InputChanges
	Signals       *editor.Signals
	// FollowHistory reloads whenever the history moves to another dashboard.
	FollowHistory bool
}

// Instance is one loaded dashboard.
type Instance struct {
	Model     *dashboard.Dashboard
	Handler   embeddable.Handler
	Container *embeddable.Container
	Document  *dashboard.SavedDashboard
}

// Snapshot is a read-only view of the loader.
type Snapshot struct {
	State      State
	Target     string
	Instance   *Instance
	Controller *editor.Controller
	Node       editor.Node
	Err        error
}

// Loader drives load, create, error recovery and teardown for the dashboard shown
// in one mount point. Each load runs on its own goroutine; a result is committed
// only while its generation is still current.
type Loader struct {
	deps Deps
	log  *zap.Logger

	mu         sync.Mutex
	params     Params
	ctx        context.Context
	mounted    bool
	gen        uint64
	cancel     context.CancelFunc
	state      State
	target     string
	instance   *Instance
	controller *editor.Controller
	err        error
	unlisten   func()
}

// New builds a Loader.
func New(deps Deps) (*Loader, error) {
	if deps.Factory == nil {
		return nil, errMissingFactory
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	deps.Chrome = dashboard.NormalizeChrome(deps.Chrome)
	deps.Notifications = dashboard.NormalizeNotifications(deps.Notifications)
	deps.Telemetry = dashboard.NormalizeTelemetry(deps.Telemetry)
	return &Loader{deps: deps, log: deps.Logger.Named("instance")}, nil
}

// Mount starts the first load cycle. The returned channel closes when that cycle
// has finished, committed or not. Mounting twice behaves like SetDashboardID.
func (l *Loader) Mount(ctx context.Context, p Params) <-chan struct{} {
	l.mu.Lock()
	if l.mounted {
		l.mu.Unlock()
		return l.SetDashboardID(ctx, p.DashboardID)
	}
	l.mounted = true
	l.params = p
	l.ctx = ctx
	if p.FollowHistory && l.deps.History != nil {
		l.unlisten = l.deps.History.Listen(l.onNavigate)
	}
	done := l.startLocked(ctx, p.DashboardID)
	l.mu.Unlock()
	return done
}

// SetDashboardID moves to another dashboard. The current instance is torn down
// before the new load starts. Ids matching the current target or the loaded
// dashboard are ignored.
func (l *Loader) SetDashboardID(ctx context.Context, id string) <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.mounted {
		return closedChan()
	}
	key := targetKey(id, l.deps.History)
	if key == l.target {
		return closedChan()
	}
	if id != "" && l.instance != nil && l.instance.Model.ID() == id {
		l.target = key
		return closedChan()
	}
	l.teardownLocked()
	return l.startLocked(ctx, id)
}

// Unmount invalidates any pending load and tears the instance down. Loads that
// finish afterwards are discarded.
func (l *Loader) Unmount() {
	l.mu.Lock()
	if !l.mounted {
		l.mu.Unlock()
		return
	}
	l.mounted = false
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.teardownLocked()
	l.state = StateIdle
	l.target = ""
	unlisten := l.unlisten
	l.unlisten = nil
	l.mu.Unlock()

	if unlisten != nil {
		unlisten()
	}
	l.log.Info("dashboard unmounted")
}

// State returns the current state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Snapshot returns the current state with the loaded instance.
func (l *Loader) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		State:      l.state,
		Target:     l.target,
		Instance:   l.instance,
		Controller: l.controller,
		Node:       l.params.Node,
		Err:        l.err,
	}
}

func (l *Loader) onNavigate(loc dashboard.Location, _ dashboard.HistoryAction) {
	var id string
	switch {
	case loc.Pathname == dashboard.CreateNewDashboardURL:
	case dashboard.DashboardIDFromPath(loc.Pathname) != "":
		id = dashboard.DashboardIDFromPath(loc.Pathname)
	default:
		return
	}
	l.mu.Lock()
	ctx := l.ctx
	l.mu.Unlock()
	if ctx == nil {
		return
	}
	l.SetDashboardID(ctx, id)
}

func targetKey(id string, h dashboard.History) string {
	if id == "" {
		return newTarget
	}
	if h != nil && h.Location().Pathname == dashboard.CreateNewDashboardURL {
		return newTarget
	}
	return id
}

func (l *Loader) startLocked(ctx context.Context, id string) <-chan struct{} {
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	l.target = targetKey(id, l.deps.History)
	l.state = StateLoading
	l.err = nil
	cycleCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	params := l.params
	create := l.target == newTarget

	done := make(chan struct{})
	l.log.Info("dashboard load started", zap.String("target", l.target))
	go func() {
		defer close(done)
		var res embeddable.Result
		if create {
			res = l.create(cycleCtx, params)
		} else {
			res = l.deps.Factory.CreateFromSavedObject(cycleCtx, id, params.Input, nil)
		}
		l.commit(cycleCtx, gen, id, params, res)
	}()
	return done
}

func (l *Loader) create(ctx context.Context, params Params) embeddable.Result {
	doc := dashboard.NewSavedDashboard("")
	if l.deps.Loader != nil {
		loaded, err := l.deps.Loader.Get(ctx, "")
		if err != nil {
			return embeddable.Result{Error: embeddable.NewErrorEmbeddable(err, embeddable.ChildInput{Type: embeddable.ErrorType}, nil)}
		}
		doc = loaded
	}
	serialized, err := dashboard.ConvertToSerialized(doc)
	if err != nil {
		doc.Destroy()
		return embeddable.Result{Error: embeddable.NewErrorEmbeddable(err, embeddable.ChildInput{Type: embeddable.ErrorType}, nil)}
	}
	res := l.deps.Factory.CreateFromDashboard(ctx, dashboard.NewDashboard(&serialized), params.Input, nil)
	if !res.OK() {
		doc.Destroy()
		return res
	}
	res.Document = doc
	return res
}

// commit applies a finished load if it is still current.
func (l *Loader) commit(ctx context.Context, gen uint64, id string, params Params, res embeddable.Result) {
	l.mu.Lock()
	if gen != l.gen || !l.mounted {
		l.mu.Unlock()
		discard(res)
		l.log.Warn("discarding stale dashboard load",
			zap.String("dashboard_id", id),
			zap.Error(dashboard.ErrStaleNavigation),
		)
		return
	}
	l.cancel = nil

	if !res.OK() {
		err := res.Err()
		discard(res)
		l.err = err
		legacy := id == dashboard.LegacyCreateID && dashboard.IsNotFound(err)
		if legacy {
			l.state = StateErrorRedirect
		} else {
			l.state = StateErrorRecoverable
		}
		l.mu.Unlock()
		if legacy {
			l.redirectLegacyCreate(ctx)
		} else {
			l.recoverLoadFailure(ctx, id, err)
		}
		return
	}

	inst := &Instance{Model: res.Model, Handler: res.Handler(), Container: res.Container, Document: res.Document}
	l.mu.Unlock()

	// Chrome, node and editor run unlocked; they may call back into the loader.
	l.setChrome(ctx, inst)
	controller, err := l.render(ctx, params, inst)

	l.mu.Lock()
	if gen != l.gen || !l.mounted {
		l.mu.Unlock()
		if controller != nil {
			controller.Destroy()
		}
		discard(res)
		l.log.Warn("discarding dashboard superseded during render",
			zap.String("dashboard_id", id),
			zap.Error(dashboard.ErrStaleNavigation),
		)
		return
	}
	if err != nil {
		if controller != nil {
			controller.Destroy()
		}
		discard(res)
		l.err = err
		l.state = StateErrorRecoverable
		l.mu.Unlock()
		l.log.Error("dashboard render failed", zap.String("dashboard_id", id), zap.Error(err))
		l.deps.Notifications.AddWarning(l.deps.Messages.Text(ctx, dashboard.MsgFailedToLoad, nil))
		if l.deps.History != nil {
			l.deps.History.Replace(dashboard.ParseLocation(dashboard.LandingPagePath))
		}
		return
	}
	l.instance = inst
	l.controller = controller
	l.state = StateReady
	l.mu.Unlock()

	l.deps.Telemetry.Record(ctx, dashboard.EventLoad, map[string]any{
		"dashboard_id": inst.Model.ID(),
		"panels":       len(inst.Container.ChildIDs()),
	})
	l.log.Info("dashboard ready", zap.String("dashboard_id", inst.Model.ID()))
}

func (l *Loader) setChrome(ctx context.Context, inst *Instance) {
	if inst.Document != nil && inst.Document.ID != "" {
		title := inst.Document.Title
		l.deps.Chrome.SetBreadcrumbs(l.deps.Messages.EditBreadcrumbs(ctx, title))
		l.deps.Chrome.SetDocTitle(title)
		return
	}
	l.deps.Chrome.SetBreadcrumbs(l.deps.Messages.CreateBreadcrumbs(ctx))
}

func (l *Loader) render(ctx context.Context, params Params, inst *Instance) (*editor.Controller, error) {
	if params.Node == nil {
		return nil, nil
	}
	if !params.ChromeVisible {
		return nil, inst.Handler.Mount(ctx, params.Node)
	}
	controller, err := editor.NewController(editor.Options{
		Container: inst.Container,
		Node:      params.Node,
		Signals:   params.Signals,
		Logger:    l.deps.Logger,
	})
	if err != nil {
		return nil, err
	}
	return controller, controller.Render(ctx, editor.RenderProps{})
}

func (l *Loader) redirectLegacyCreate(ctx context.Context) {
	l.log.Warn("legacy create url, redirecting", zap.String("to", dashboard.CreateNewDashboardURL))
	if l.deps.History != nil {
		loc := l.deps.History.Location()
		loc.Pathname = dashboard.CreateNewDashboardURL
		l.deps.History.Replace(loc)
	}
	l.deps.Notifications.AddWarning(l.deps.Messages.Text(ctx, dashboard.MsgLegacyCreateWarn, nil))
}

func (l *Loader) recoverLoadFailure(ctx context.Context, id string, err error) {
	if dashboard.IsNotFound(err) {
		l.log.Warn("dashboard not found", zap.String("dashboard_id", id))
	} else {
		l.log.Error("dashboard load failed", zap.String("dashboard_id", id), zap.Error(err))
	}
	l.deps.Notifications.AddWarning(l.deps.Messages.Text(ctx, dashboard.MsgFailedToLoad, nil))
	l.deps.Notifications.AddDanger(err.Error())
	if l.deps.History != nil {
		l.deps.History.Push(dashboard.ParseLocation(dashboard.LandingPagePath))
	}
}

// teardownLocked destroys the controller first, then the handler it wraps, then
// releases the document.
func (l *Loader) teardownLocked() {
	if l.controller != nil {
		l.controller.Destroy()
	}
	if l.instance != nil {
		if l.instance.Handler != nil {
			l.instance.Handler.Destroy()
		}
		l.instance.Document.Destroy()
	}
	l.controller = nil
	l.instance = nil
}

func discard(res embeddable.Result) {
	if h := res.Handler(); h != nil {
		h.Destroy()
	}
	res.Document.Destroy()
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
