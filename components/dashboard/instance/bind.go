package instance

import (
	"errors"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-dashboard-editor/components/dashboard"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/appstate"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/editor"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/embeddable"
)

var errNotReady = errors.New("instance: dashboard instance has no container")

// BindOptions configure BindAppState.
type BindOptions struct {
	Storage appstate.URLStateStorage
	History dashboard.History
	// HideWriteControls starts saved and new dashboards in view mode.
	HideWriteControls bool
	// Signals, when set, refresh the dashboard sub-state each time the editor
	// reports a clean state.
	Signals   *editor.Signals
	Logger    *zap.Logger
	Telemetry dashboard.Telemetry
}

// Binding keeps a loaded instance and its URL-synchronized app state in step.
type Binding struct {
	appState *appstate.Container
	inst     *Instance
	opts     BindOptions
	log      *zap.Logger

	mu         sync.Mutex
	unapplied  bool
	syncMu     sync.Mutex
	lastPushed map[string]embeddable.PanelState
	stopOnce   sync.Once
	stopSync   func()
	cancelApp  func()
	cancelCont func()
	quit       chan struct{}
	wg         sync.WaitGroup
}

// BindAppState creates the app state of inst, seeded from its model and the URL.
// App state changes flow into the container input; panel edits made on the
// container flow back as app state transitions.
func BindAppState(inst *Instance, opts BindOptions) (*Binding, error) {
	if inst == nil || inst.Container == nil || inst.Model == nil {
		return nil, errNotReady
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	app, stopSync, err := appstate.Create(appstate.Args{
		Defaults:   appstate.Defaults(inst.Model.Serialize(), opts.HideWriteControls),
		Storage:    opts.Storage,
		History:    opts.History,
		InstanceID: inst.Model.ID(),
		Logger:     opts.Logger,
		Telemetry:  opts.Telemetry,
	})
	if err != nil {
		return nil, err
	}
	b := &Binding{
		appState: app,
		inst:     inst,
		opts:     opts,
		log:      opts.Logger.Named("binding"),
		stopSync: stopSync,
		quit:     make(chan struct{}),
	}

	appUpdates, cancelApp := app.Subscribe()
	containerUpdates, cancelCont := inst.Container.Subscribe()
	b.cancelApp, b.cancelCont = cancelApp, cancelCont

	b.pushToContainer(app.Get())

	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		for snap := range appUpdates {
			b.pushToContainer(snap.State)
		}
	}()
	go func() {
		defer b.wg.Done()
		for range containerUpdates {
			b.pullFromContainer()
		}
	}()
	if opts.Signals != nil {
		b.wg.Add(1)
		go b.followDirtyState(opts.Signals)
	}
	return b, nil
}

// AppState returns the bound app state container.
func (b *Binding) AppState() *appstate.Container { return b.appState }

// HasUnappliedChanges reports the last dirty flag seen from the editor.
func (b *Binding) HasUnappliedChanges() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unapplied
}

// Stop ends URL sync and waits for the forwarding goroutines.
func (b *Binding) Stop() {
	b.stopOnce.Do(func() {
		close(b.quit)
		b.stopSync()
		b.cancelApp()
		b.cancelCont()
		b.wg.Wait()
	})
}

func (b *Binding) pushToContainer(state appstate.AppState) {
	b.syncMu.Lock()
	defer b.syncMu.Unlock()
	changes := ChangesFromAppState(state)
	b.lastPushed = changes.Panels
	if sameEditorInput(b.inst.Container.Input(), changes) {
		return
	}
	b.inst.Container.UpdateInput(changes)
}

// pullFromContainer forwards panel edits made directly on the container. It reads
// the container's current panels rather than the notified input, so a stale
// notification cannot undo a newer app state.
func (b *Binding) pullFromContainer() {
	b.syncMu.Lock()
	defer b.syncMu.Unlock()
	current := b.inst.Container.Input().Panels
	if reflect.DeepEqual(current, b.lastPushed) {
		return
	}
	if err := b.appState.Transitions().SetDashboard(appstate.DashboardPatch{
		Panels: embeddable.PanelsToDashboard(current),
	}); err != nil {
		b.log.Warn("panel change not applied to app state", zap.Error(err))
		return
	}
	b.lastPushed = current
}

func (b *Binding) followDirtyState(signals *editor.Signals) {
	defer b.wg.Done()
	for {
		select {
		case <-b.quit:
			return
		case dirty := <-signals.DirtyState():
			b.mu.Lock()
			b.unapplied = dirty
			b.mu.Unlock()
			if dirty {
				continue
			}
			b.refreshDashboardState()
		}
	}
}

// refreshDashboardState reloads the dashboard sub-state from the model, keeping
// the session-only display fields.
func (b *Binding) refreshDashboardState() {
	current := b.appState.Get().Dashboard
	fresh := appstate.Defaults(b.inst.Model.Serialize(), b.opts.HideWriteControls).Dashboard
	fresh.ViewMode = current.ViewMode
	fresh.FullScreenMode = current.FullScreenMode
	fresh.ExpandedPanelID = current.ExpandedPanelID
	if reflect.DeepEqual(fresh, current) {
		return
	}
	if err := b.appState.Transitions().UpdateDashboardState(fresh); err != nil {
		b.log.Warn("dashboard state refresh failed", zap.Error(err))
	}
}

// ChangesFromAppState maps an app state onto a container input change.
func ChangesFromAppState(state appstate.AppState) embeddable.InputChanges {
	s := state.Clone()
	d := s.Dashboard
	return embeddable.InputChanges{
		Filters:          s.Filters,
		Query:            &s.Query,
		ViewMode:         &d.ViewMode,
		IsFullScreenMode: &d.FullScreenMode,
		UseMargins:       &d.Options.UseMargins,
		HidePanelTitles:  &d.Options.HidePanelTitles,
		ExpandedPanelID:  &d.ExpandedPanelID,
		Title:            &d.Title,
		Description:      &d.Description,
		Panels:           embeddable.PanelsFromDashboard(d.Panels),
	}
}

func sameEditorInput(in embeddable.ContainerInput, ch embeddable.InputChanges) bool {
	next := in
	next.Panels = ch.Panels
	next.Filters = ch.Filters
	next.Query = *ch.Query
	next.ViewMode = *ch.ViewMode
	next.IsFullScreenMode = *ch.IsFullScreenMode
	next.UseMargins = *ch.UseMargins
	next.HidePanelTitles = *ch.HidePanelTitles
	next.ExpandedPanelID = *ch.ExpandedPanelID
	next.Title = *ch.Title
	next.Description = *ch.Description
	return reflect.DeepEqual(in, next)
}
