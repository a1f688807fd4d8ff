package instance

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-dashboard-editor/components/dashboard"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/appstate"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/editor"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/embeddable"
)

// ErrUnknownSession is returned for session keys that are not open.
var ErrUnknownSession = errors.New("instance: unknown session")

// Session is a headless dashboard mount with its own history and app state.
type Session struct {
	Key     string
	History *dashboard.MemoryHistory
	Node    *editor.BufferNode
	Loader  *Loader
	Binding *Binding
	Signals *editor.Signals
}

// Container returns the session's container.
func (s *Session) Container() *embeddable.Container {
	snap := s.Loader.Snapshot()
	if snap.Instance == nil {
		return nil
	}
	return snap.Instance.Container
}

// HTML re-renders the container and returns the markup.
func (s *Session) HTML(ctx context.Context) (string, error) {
	c := s.Container()
	if c == nil {
		return "", errNotReady
	}
	if err := c.Refresh(ctx); err != nil {
		return "", err
	}
	return s.Node.HTML(), nil
}

func (s *Session) close() {
	if s.Binding != nil {
		s.Binding.Stop()
	}
	s.Loader.Unmount()
}

// OpenRequest describes a session to open. Search is the query string of the
// dashboard route, for instance "?_a=(...)".
type OpenRequest struct {
	Key         string
	DashboardID string
	Search      string
	Input       embeddable.InputChanges
}

// Sessions keeps headless dashboard sessions by key.
type Sessions struct {
	deps              Deps
	hideWriteControls bool

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessions builds a session registry. Each session gets its own history, so
// deps.History is ignored.
func NewSessions(deps Deps, hideWriteControls bool) *Sessions {
	deps.Telemetry = dashboard.NormalizeTelemetry(deps.Telemetry)
	return &Sessions{deps: deps, hideWriteControls: hideWriteControls, sessions: map[string]*Session{}}
}

// Open loads a dashboard into a new session, replacing any session under the same
// key. It returns once the load has settled.
func (s *Sessions) Open(ctx context.Context, req OpenRequest) (*Session, error) {
	if req.Key == "" {
		return nil, errors.New("instance: session key is required")
	}
	s.Close(req.Key)

	route := dashboard.CreateNewDashboardURL
	if req.DashboardID != "" {
		route = dashboard.EditURL(req.DashboardID)
	}
	history := dashboard.NewMemoryHistory(route + req.Search)
	deps := s.deps
	deps.History = history
	loader, err := New(deps)
	if err != nil {
		return nil, err
	}
	node := editor.NewBufferNode()
	signals := editor.NewSignals()
	done := loader.Mount(ctx, Params{
		DashboardID:   req.DashboardID,
		Node:          node,
		ChromeVisible: true,
		Signals:       signals,
		Input:         req.Input,
	})
	select {
	case <-done:
	case <-ctx.Done():
		loader.Unmount()
		return nil, ctx.Err()
	}
	snap := loader.Snapshot()
	if snap.State != StateReady {
		loader.Unmount()
		if snap.Err != nil {
			return nil, snap.Err
		}
		return nil, fmt.Errorf("instance: dashboard %q is %s", req.DashboardID, snap.State)
	}
	binding, err := BindAppState(snap.Instance, BindOptions{
		Storage:           appstate.NewHistoryStorage(history),
		History:           history,
		HideWriteControls: s.hideWriteControls,
		Logger:            s.deps.Logger,
		Telemetry:         s.deps.Telemetry,
		Signals:           signals,
	})
	if err != nil {
		loader.Unmount()
		return nil, err
	}
	session := &Session{Key: req.Key, History: history, Node: node, Loader: loader, Binding: binding, Signals: signals}
	s.mu.Lock()
	s.sessions[req.Key] = session
	s.mu.Unlock()
	s.deps.Telemetry.Record(ctx, dashboard.EventSessionOpen, map[string]any{
		"session":      req.Key,
		"dashboard_id": req.DashboardID,
	})
	return session, nil
}

// Saver persists a save request, usually *dashboard.Service.
type Saver interface {
	Save(ctx context.Context, req dashboard.SaveRequest) (dashboard.SaveResult, error)
}

// Save applies the session's app state to its dashboard model and persists it.
// An empty title or description falls back to the app state, and a time-restoring
// save without a range takes the container's. A created dashboard is reopened
// under its new id; an updated one becomes the new clean baseline.
func (s *Sessions) Save(ctx context.Context, key string, saver Saver, req dashboard.SaveRequest) (dashboard.SaveResult, error) {
	if saver == nil {
		return dashboard.SaveResult{}, errors.New("instance: saver is required")
	}
	session, ok := s.Get(key)
	if !ok {
		return dashboard.SaveResult{}, fmt.Errorf("%w: %s", ErrUnknownSession, key)
	}
	snap := session.Loader.Snapshot()
	if snap.Instance == nil {
		return dashboard.SaveResult{}, errNotReady
	}
	state := session.Binding.AppState().Get()
	model := snap.Instance.Model
	model.SetState(state.DashboardState())
	if req.Title == "" {
		req.Title = state.Dashboard.Title
	}
	if req.Description == "" {
		req.Description = state.Dashboard.Description
	}
	if req.TimeRestore && req.TimeRange == nil {
		tr := snap.Instance.Container.Input().TimeRange
		req.TimeRange = &tr
	}
	req.Dashboard = model.Serialize()

	res, err := saver.Save(ctx, req)
	if err != nil {
		return res, err
	}
	if res.Created {
		if _, err := s.Open(ctx, OpenRequest{Key: key, DashboardID: res.ID}); err != nil {
			return res, fmt.Errorf("instance: reopen saved dashboard %s: %w", res.ID, err)
		}
		return res, nil
	}
	model.SetState(dashboard.StateFromSerialized(res.Dashboard))
	if snap.Controller != nil {
		snap.Controller.MarkClean()
	}
	return res, nil
}

// Get returns an open session.
func (s *Sessions) Get(key string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[key]
	return session, ok
}

// Container resolves the container of an open session.
func (s *Sessions) Container(key string) (*embeddable.Container, error) {
	session, ok := s.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, key)
	}
	c := session.Container()
	if c == nil {
		return nil, errNotReady
	}
	return c, nil
}

// AppState resolves the app state of an open session.
func (s *Sessions) AppState(key string) (*appstate.Container, error) {
	session, ok := s.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, key)
	}
	return session.Binding.AppState(), nil
}

// Close tears a session down. Unknown keys are ignored.
func (s *Sessions) Close(key string) {
	s.mu.Lock()
	session, ok := s.sessions[key]
	delete(s.sessions, key)
	s.mu.Unlock()
	if ok {
		session.close()
		s.deps.Telemetry.Record(context.Background(), dashboard.EventSessionClose, map[string]any{"session": key})
	}
}

// CloseAll tears every session down.
func (s *Sessions) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = map[string]*Session{}
	s.mu.Unlock()
	for key, session := range sessions {
		session.close()
		s.deps.Telemetry.Record(context.Background(), dashboard.EventSessionClose, map[string]any{"session": key})
	}
}

// Len reports the number of open sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
