package gorouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-dashboard-editor/components/dashboard"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/commands"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/queries"
)

func TestRegisterValidatesConfig(t *testing.T) {
	if err := Register(Config[struct{}]{}); err == nil {
		t.Fatalf("expected error when router is missing")
	}
	if err := Register(Config[struct{}]{Router: newMockRouter()}); err == nil {
		t.Fatalf("expected error when api is missing")
	}
}

func TestRegisterMountsRoutes(t *testing.T) {
	mock := newMockRouter()
	if err := Register(Config[struct{}]{Router: mock, API: &stubExecutor{}, Broadcast: dashboard.NewBroadcastHook()}); err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	for _, key := range []string{
		"GET:/app/dashboards/dashboards",
		"GET:/app/dashboards/dashboards/_editable",
		"GET:/app/dashboards/dashboards/:id",
		"GET:/app/dashboards/dashboards/:id/render",
		"POST:/app/dashboards/dashboards",
		"DELETE:/app/dashboards/dashboards/:id",
		"POST:/app/dashboards/sessions/:key/reload",
		"POST:/app/dashboards/sessions/:key/save",
		"POST:/app/dashboards/sessions/:key/input",
		"POST:/app/dashboards/sessions/:key/transition",
	} {
		if _, ok := mock.routes[key]; !ok {
			t.Fatalf("expected route %s", key)
		}
	}
	if _, ok := mock.ws["/app/dashboards/dashboards/ws"]; !ok {
		t.Fatalf("expected websocket route")
	}
}

func TestLoadRouteMapsNotFound(t *testing.T) {
	mock := newMockRouter()
	api := &stubExecutor{loadErr: dashboard.NewNotFoundError("missing")}
	if err := Register(Config[struct{}]{Router: mock, API: api}); err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	ctx := newMockContext()
	ctx.params["id"] = "missing"
	if err := mock.routes["GET:/app/dashboards/dashboards/:id"](ctx); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if ctx.status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", ctx.status)
	}
}

func TestSaveRouteUsesActivityFromLocals(t *testing.T) {
	mock := newMockRouter()
	api := &stubExecutor{}
	if err := Register(Config[struct{}]{Router: mock, API: api}); err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	ctx := newMockContext()
	ctx.locals["user_id"] = "admin@example.com"
	ctx.body = []byte(`{"title":"Sales"}`)
	if err := mock.routes["POST:/app/dashboards/dashboards"](ctx); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if ctx.status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", ctx.status)
	}
	if api.saved.Request.Title != "Sales" || api.saved.UserID != "admin@example.com" {
		t.Fatalf("unexpected save input %+v", api.saved)
	}
	var out dashboard.SaveResult
	if err := json.Unmarshal(ctx.body, &out); err != nil || out.ID != "new-1" {
		t.Fatalf("unexpected body %s", ctx.body)
	}
}

func TestSaveSessionRoute(t *testing.T) {
	mock := newMockRouter()
	api := &stubExecutor{}
	if err := Register(Config[struct{}]{Router: mock, API: api}); err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	ctx := newMockContext()
	ctx.params["key"] = "s1"
	ctx.locals["user_id"] = "admin@example.com"
	ctx.body = []byte(`{"title":"Sales v2"}`)
	if err := mock.routes["POST:/app/dashboards/sessions/:key/save"](ctx); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if ctx.status != http.StatusOK {
		t.Fatalf("expected 200, got %d", ctx.status)
	}
	in := api.sessionSaved
	if in.SessionKey != "s1" || in.Request.Title != "Sales v2" || in.UserID != "admin@example.com" {
		t.Fatalf("unexpected session save input %+v", in)
	}

	ctx = newMockContext()
	ctx.params["key"] = "s1"
	if err := mock.routes["POST:/app/dashboards/sessions/:key/save"](ctx); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if ctx.status != http.StatusOK || api.sessionSaved.Request.Title != "" {
		t.Fatalf("expected empty body to save with session title, got %d %+v", ctx.status, api.sessionSaved)
	}
}

func TestReloadRoute(t *testing.T) {
	mock := newMockRouter()
	api := &stubExecutor{}
	if err := Register(Config[struct{}]{Router: mock, API: api}); err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	ctx := newMockContext()
	ctx.params["key"] = "s1"
	if err := mock.routes["POST:/app/dashboards/sessions/:key/reload"](ctx); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if ctx.status != http.StatusAccepted || api.reloaded != "s1" {
		t.Fatalf("unexpected reload status %d for %q", ctx.status, api.reloaded)
	}
}

func TestTransitionRouteRejectsBadJSON(t *testing.T) {
	mock := newMockRouter()
	if err := Register(Config[struct{}]{Router: mock, API: &stubExecutor{}}); err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	ctx := newMockContext()
	ctx.body = []byte("{")
	if err := mock.routes["POST:/app/dashboards/sessions/:key/transition"](ctx); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if ctx.status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", ctx.status)
	}
}

// --- Test helpers ---

type mockRouter struct {
	router.Router[struct{}]
	prefix string
	routes map[string]router.HandlerFunc
	ws     map[string]func(router.WebSocketContext) error
}

func newMockRouter() *mockRouter {
	return &mockRouter{
		routes: map[string]router.HandlerFunc{},
		ws:     map[string]func(router.WebSocketContext) error{},
	}
}

func (m *mockRouter) Group(prefix string) router.Router[struct{}] {
	return &mockRouter{
		prefix: m.prefix + prefix,
		routes: m.routes,
		ws:     m.ws,
	}
}

func (m *mockRouter) record(method, path string, handler router.HandlerFunc) {
	m.routes[method+":"+m.prefix+path] = handler
}

func (m *mockRouter) Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.GET), path, handler)
	return mockRouteInfo{}
}

func (m *mockRouter) Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.POST), path, handler)
	return mockRouteInfo{}
}

func (m *mockRouter) Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.DELETE), path, handler)
	return mockRouteInfo{}
}

func (m *mockRouter) WebSocket(path string, cfg router.WebSocketConfig, handler func(router.WebSocketContext) error) router.RouteInfo {
	m.ws[m.prefix+path] = handler
	return mockRouteInfo{}
}

type mockRouteInfo struct {
	router.RouteInfo
}

func (mockRouteInfo) SetName(string) router.RouteInfo { return mockRouteInfo{} }

// contextBase lets mockContext embed router.Context for the methods it does not
// override while still declaring its own Context method.
type contextBase interface {
	router.Context
}

type mockContext struct {
	contextBase
	ctx     context.Context
	headers map[string]string
	body    []byte
	locals  map[any]any
	params  map[string]string
	status  int
}

func newMockContext() *mockContext {
	return &mockContext{
		ctx:     context.Background(),
		headers: map[string]string{},
		locals:  map[any]any{},
		params:  map[string]string{},
	}
}

func (m *mockContext) Context() context.Context { return m.ctx }

func (m *mockContext) SetHeader(k, v string) router.Context {
	m.headers[k] = v
	return m
}

func (m *mockContext) Send(b []byte) error {
	m.body = append([]byte{}, b...)
	return nil
}

func (m *mockContext) JSON(code int, v any) error {
	m.status = code
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.body = data
	return nil
}

func (m *mockContext) Body() []byte { return m.body }

func (m *mockContext) Param(name string, defaultValue ...string) string {
	if v, ok := m.params[name]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *mockContext) Locals(key any, value ...any) any {
	if len(value) == 0 {
		return m.locals[key]
	}
	m.locals[key] = value[0]
	return value[0]
}

type stubExecutor struct {
	loadErr      error
	saved        commands.SaveDashboardInput
	sessionSaved commands.SaveSessionInput
	reloaded     string
}

func (s *stubExecutor) List(context.Context, dashboard.FindOptions) ([]dashboard.ListItem, error) {
	return nil, nil
}

func (s *stubExecutor) Load(_ context.Context, id string) (dashboard.SerializedDashboard, error) {
	if s.loadErr != nil {
		return dashboard.SerializedDashboard{}, s.loadErr
	}
	return dashboard.SerializedDashboard{ID: id}, nil
}

func (s *stubExecutor) Save(_ context.Context, input commands.SaveDashboardInput) error {
	s.saved = input
	*input.Result = dashboard.SaveResult{ID: "new-1", Created: true}
	return nil
}

func (s *stubExecutor) SaveSession(_ context.Context, input commands.SaveSessionInput) error {
	s.sessionSaved = input
	*input.Result = dashboard.SaveResult{ID: "abc", Dashboard: dashboard.SerializedDashboard{ID: "abc", Title: input.Request.Title}}
	return nil
}

func (s *stubExecutor) Delete(context.Context, commands.DeleteDashboardsInput) error { return nil }

func (s *stubExecutor) Reload(_ context.Context, input commands.ReloadDashboardInput) error {
	s.reloaded = input.SessionKey
	*input.Token = 1
	return nil
}

func (s *stubExecutor) UpdateInput(context.Context, commands.UpdateInputInput) error { return nil }

func (s *stubExecutor) Transition(context.Context, commands.TransitionInput) error {
	return errors.New("transition should not run")
}

func (s *stubExecutor) Editable(context.Context) (bool, error) { return true, nil }

func (s *stubExecutor) Render(context.Context, queries.RenderDashboardInput) (queries.RenderedDashboard, error) {
	return queries.RenderedDashboard{}, nil
}
