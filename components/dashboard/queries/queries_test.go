package queries

import (
	"context"
	"io"
	"testing"

	dashboard "github.com/goliatone/go-dashboard-editor/components/dashboard"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/embeddable"
	"github.com/goliatone/go-dashboard-editor/components/dashboard/instance"
)

type stubService struct {
	loadCalls int
	listCalls int
	lastOpts  dashboard.FindOptions
}

func (s *stubService) Load(_ context.Context, id string) (dashboard.SerializedDashboard, error) {
	s.loadCalls++
	return dashboard.SerializedDashboard{ID: id, Title: "Sales"}, nil
}

func (s *stubService) List(_ context.Context, opts dashboard.FindOptions) ([]dashboard.ListItem, error) {
	s.listCalls++
	s.lastOpts = opts
	return []dashboard.ListItem{{ID: "abc", Title: "Sales"}}, nil
}

type stubChecker bool

func (s stubChecker) IsEditable(context.Context) bool { return bool(s) }

type stubRenderer struct{}

func (stubRenderer) Render(name string, data any, _ ...io.Writer) (string, error) {
	payload, _ := data.(map[string]any)
	if name == embeddable.ContainerTemplate {
		return "<section>" + payload["title"].(string) + "</section>", nil
	}
	return name, nil
}

func TestLoadDashboardQuery(t *testing.T) {
	service := &stubService{}
	query := NewLoadDashboardQuery(service)
	out, err := query.Query(context.Background(), LoadDashboardInput{ID: "abc"})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if out.ID != "abc" || service.loadCalls != 1 {
		t.Fatalf("unexpected result %+v (calls %d)", out, service.loadCalls)
	}
}

func TestListDashboardsQuery(t *testing.T) {
	service := &stubService{}
	query := NewListDashboardsQuery(service)
	items, err := query.Query(context.Background(), dashboard.FindOptions{Search: "sal", PerPage: 10})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(items) != 1 || service.lastOpts.Search != "sal" {
		t.Fatalf("unexpected listing %+v with opts %+v", items, service.lastOpts)
	}
}

func TestIsEditableQuery(t *testing.T) {
	ok, err := NewIsEditableQuery(stubChecker(true)).Query(context.Background(), IsEditableInput{})
	if err != nil || !ok {
		t.Fatalf("expected editable, got %v (%v)", ok, err)
	}
	ok, _ = NewIsEditableQuery(nil).Query(context.Background(), IsEditableInput{})
	if ok {
		t.Fatalf("expected nil checker to deny editing")
	}
}

func TestRenderDashboardQuery(t *testing.T) {
	doc := dashboard.NewSavedDashboard("abc")
	doc.Title = "Sales"
	doc.PanelsJSON = `[{"panelIndex":"1","type":"visualization","gridData":{"x":0,"y":0,"w":24,"h":15,"i":"1"}}]`
	store := dashboard.NewInMemoryLoader(doc)
	sessions := instance.NewSessions(instance.Deps{
		Factory: embeddable.NewFactory(embeddable.FactoryOptions{Loader: store, Renderer: stubRenderer{}}),
		Loader:  store,
	}, false)
	defer sessions.CloseAll()

	out, err := NewRenderDashboardQuery(sessions).Query(context.Background(), RenderDashboardInput{DashboardID: "abc"})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if out.HTML != "<section>Sales</section>" {
		t.Fatalf("unexpected html %q", out.HTML)
	}
	if len(out.Panels) != 1 || out.Panels[0] != "1" {
		t.Fatalf("unexpected panels %v", out.Panels)
	}
	if sessions.Len() != 0 {
		t.Fatalf("expected the render session to be closed")
	}
}

func TestRenderDashboardQueryMissing(t *testing.T) {
	store := dashboard.NewInMemoryLoader()
	sessions := instance.NewSessions(instance.Deps{
		Factory: embeddable.NewFactory(embeddable.FactoryOptions{Loader: store, Renderer: stubRenderer{}}),
		Loader:  store,
	}, false)
	_, err := NewRenderDashboardQuery(sessions).Query(context.Background(), RenderDashboardInput{DashboardID: "missing"})
	if !dashboard.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
