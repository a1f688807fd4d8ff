package appstate

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/goliatone/go-dashboard-editor/components/dashboard"
	"github.com/sakura-internet/go-rison/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDashboard(id string) dashboard.SerializedDashboard {
	return dashboard.SerializedDashboard{
		ID:          id,
		Title:       "Sales",
		Description: "Quarterly",
		Panels: []dashboard.Panel{{
			PanelIndex:       "1",
			Type:             "visualization",
			ID:               "vis-1",
			EmbeddableConfig: map[string]any{},
			GridData:         dashboard.GridData{W: 24, H: 15, I: "1"},
		}},
		Options: dashboard.Options{UseMargins: true},
		Query:   dashboard.Query{Query: "", Language: "kuery"},
		Filters: []dashboard.Filter{},
	}
}

func newSynced(t *testing.T, route, id string) (*Container, *dashboard.MemoryHistory, func()) {
	t.Helper()
	history := dashboard.NewMemoryHistory(route)
	c, stop, err := Create(Args{
		Defaults:   Defaults(sampleDashboard(id), false),
		Storage:    NewHistoryStorage(history),
		History:    history,
		InstanceID: id,
	})
	require.NoError(t, err)
	t.Cleanup(stop)
	return c, history, stop
}

func urlWith(t *testing.T, route string, state AppState) dashboard.Location {
	t.Helper()
	value, err := URLValue(state)
	require.NoError(t, err)
	return dashboard.ParseLocation(route).WithQuery(url.Values{dashboard.AppStateKey: {value}})
}

func decodeRaw(t *testing.T, h dashboard.History) map[string]any {
	t.Helper()
	raw := h.Location().Query().Get(dashboard.AppStateKey)
	require.NotEmpty(t, raw)
	var out map[string]any
	require.NoError(t, rison.Unmarshal([]byte(raw), &out, rison.Rison))
	return out
}

func TestDefaultsViewMode(t *testing.T) {
	assert.Equal(t, dashboard.ViewModeView, Defaults(sampleDashboard("abc"), false).Dashboard.ViewMode)
	assert.Equal(t, dashboard.ViewModeEdit, Defaults(sampleDashboard(""), false).Dashboard.ViewMode)
	assert.Equal(t, dashboard.ViewModeView, Defaults(sampleDashboard(""), true).Dashboard.ViewMode)

	d := Defaults(sampleDashboard("abc"), false)
	assert.False(t, d.Dashboard.FullScreenMode)
	assert.Equal(t, "Sales", d.Dashboard.Title)
	assert.Len(t, d.Dashboard.Panels, 1)
	assert.True(t, d.Dashboard.Options.UseMargins)
}

func TestCreateWritesDefaultsBackWithReplace(t *testing.T) {
	c, history, _ := newSynced(t, "/create", "")
	assert.Equal(t, StatusSynced, c.Status())
	assert.Equal(t, 1, history.Len())
	assert.Equal(t, "Sales", c.Get().Dashboard.Title)

	raw := decodeRaw(t, history)
	dash := raw["dashboard"].(map[string]any)
	assert.Equal(t, "Sales", dash["title"])
	assert.Contains(t, dash, "panels")
}

func TestCreateMergesURLStateOverDefaults(t *testing.T) {
	seed := Defaults(sampleDashboard("abc"), false)
	seed.Dashboard.Title = "From URL"
	seed.Dashboard.Panels = nil
	loc := urlWith(t, "/view/abc", seed)

	history := dashboard.NewMemoryHistory(loc.String())
	c, stop, err := Create(Args{
		Defaults:   Defaults(sampleDashboard("abc"), false),
		Storage:    NewHistoryStorage(history),
		History:    history,
		InstanceID: "abc",
	})
	require.NoError(t, err)
	defer stop()

	state := c.Get()
	assert.Equal(t, "From URL", state.Dashboard.Title)
	assert.Equal(t, "Quarterly", state.Dashboard.Description)
	assert.Len(t, state.Dashboard.Panels, 1, "view mode url keeps default panels")
}

func TestCreateIgnoresMalformedURLState(t *testing.T) {
	history := dashboard.NewMemoryHistory("/view/abc?_a=(dashboard:(title:")
	c, stop, err := Create(Args{
		Defaults:   Defaults(sampleDashboard("abc"), false),
		Storage:    NewHistoryStorage(history),
		InstanceID: "abc",
	})
	require.NoError(t, err)
	defer stop()
	assert.Equal(t, "Sales", c.Get().Dashboard.Title)
}

func TestCreateRequiresStorage(t *testing.T) {
	_, _, err := Create(Args{})
	require.ErrorIs(t, err, errMissingStorage)
}

func TestSetIsLastWriteWins(t *testing.T) {
	base := Defaults(sampleDashboard(""), false)
	twice, err := ApplySet(base, PropTitle, "A")
	require.NoError(t, err)
	twice, err = ApplySet(twice, PropTitle, "B")
	require.NoError(t, err)
	once, err := ApplySet(base, PropTitle, "B")
	require.NoError(t, err)
	assert.Equal(t, once, twice)
	assert.Equal(t, "Sales", base.Dashboard.Title, "input state untouched")
}

func TestSetValidatesProperties(t *testing.T) {
	base := Defaults(sampleDashboard(""), false)
	_, err := ApplySet(base, "nope", 1)
	require.True(t, errors.Is(err, ErrUnknownProp))
	_, err = ApplySet(base, PropTitle, 42)
	require.ErrorContains(t, err, "title expects string")

	viewed, err := ApplySet(base, PropViewMode, "view")
	require.NoError(t, err)
	assert.Equal(t, dashboard.ViewModeView, viewed.Dashboard.ViewMode)

	q, err := ApplySet(base, PropQuery, dashboard.Query{Query: "a:b"})
	require.NoError(t, err)
	assert.Equal(t, "kuery", q.Query.Language)
}

func TestSetAcceptsJSONDecodedValues(t *testing.T) {
	base := Defaults(sampleDashboard(""), false)
	var payload struct {
		Query   any `json:"query"`
		Filters any `json:"filters"`
		Options any `json:"options"`
		Panels  any `json:"panels"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{
		"query": {"query": {"match_all": {}}, "language": "lucene"},
		"filters": [{"meta": {"key": "status", "negate": true}}],
		"options": {"useMargins": false, "hidePanelTitles": true},
		"panels": [{"panelIndex": "9", "type": "search", "gridData": {"x": 0, "y": 0, "w": 6, "h": 6, "i": "9"}}]
	}`), &payload))

	out, err := ApplySet(base, PropQuery, payload.Query)
	require.NoError(t, err)
	assert.Equal(t, "lucene", out.Query.Language)

	out, err = ApplySet(out, PropFilters, payload.Filters)
	require.NoError(t, err)
	require.Len(t, out.Filters, 1)
	assert.Equal(t, "status", out.Filters[0].Meta.Key)
	assert.True(t, out.Filters[0].Meta.Negate)

	out, err = ApplySet(out, PropOptions, payload.Options)
	require.NoError(t, err)
	assert.Equal(t, dashboard.Options{HidePanelTitles: true}, out.Dashboard.Options)

	out, err = ApplySet(out, PropPanels, payload.Panels)
	require.NoError(t, err)
	require.Len(t, out.Dashboard.Panels, 1)
	assert.Equal(t, "9", out.Dashboard.Panels[0].PanelIndex)

	_, err = ApplySet(base, PropFilters, map[string]any{"not": "a list"})
	require.True(t, dashboard.IsInvalid(err))
}

func TestSetDashboardMergesPatch(t *testing.T) {
	base := Defaults(sampleDashboard(""), false)
	full := true
	out := ApplySetDashboard(base, DashboardPatch{FullScreenMode: &full})
	assert.True(t, out.Dashboard.FullScreenMode)
	assert.Equal(t, base.Dashboard.Title, out.Dashboard.Title)
	assert.Equal(t, base.Dashboard.Panels, out.Dashboard.Panels)

	replaced := ApplyUpdateDashboardState(out, DashboardAppState{Title: "Fresh"})
	assert.Equal(t, "Fresh", replaced.Dashboard.Title)
	assert.Empty(t, replaced.Dashboard.Panels)
	assert.NotNil(t, replaced.Dashboard.Panels)

	assert.Equal(t, "sq-1", ApplyUpdateSavedQuery(base, "sq-1").SavedQuery)
}

func TestTransitionWritesURLBeforeReturning(t *testing.T) {
	c, history, _ := newSynced(t, "/create", "")
	require.NoError(t, c.Transitions().Set(PropTitle, "Renamed"))
	assert.Equal(t, "Renamed", decodeRaw(t, history)["dashboard"].(map[string]any)["title"])
	assert.Equal(t, 2, history.Len())
	assert.Equal(t, uint64(1), c.Version())

	require.NoError(t, c.Transitions().UpdateSavedQuery("sq-9"))
	assert.Equal(t, "sq-9", decodeRaw(t, history)["savedQuery"])
}

func TestViewModeURLNeverContainsPanels(t *testing.T) {
	c, history, _ := newSynced(t, "/view/abc", "abc")
	assert.NotContains(t, decodeRaw(t, history)["dashboard"], "panels")

	require.NoError(t, c.Transitions().Set(PropPanels, []dashboard.Panel{{PanelIndex: "2", GridData: dashboard.GridData{W: 1, H: 1}}}))
	assert.NotContains(t, decodeRaw(t, history)["dashboard"], "panels")
	assert.Len(t, c.Get().Dashboard.Panels, 1)

	require.NoError(t, c.Transitions().Set(PropViewMode, dashboard.ViewModeEdit))
	assert.Contains(t, decodeRaw(t, history)["dashboard"], "panels")
}

func TestInboundNavigationUpdatesContainer(t *testing.T) {
	c, history, _ := newSynced(t, "/view/abc", "abc")
	require.NoError(t, c.Transitions().Set(PropHasUnsavedChanges, true))

	next := c.Get()
	next.Dashboard.Title = "Navigated"
	history.Push(urlWith(t, "/view/abc", next))

	state := c.Get()
	assert.Equal(t, "Navigated", state.Dashboard.Title)
	assert.True(t, state.HasUnsavedChanges)
	assert.Len(t, state.Dashboard.Panels, 1)

	require.True(t, history.Back())
	assert.Equal(t, "Sales", c.Get().Dashboard.Title)
}

func TestInboundEmptyURLLeavesStateUntouched(t *testing.T) {
	c, history, _ := newSynced(t, "/view/abc", "abc")
	require.NoError(t, c.Transitions().Set(PropTitle, "Kept"))
	version := c.Version()

	history.Push(dashboard.ParseLocation("/view/abc"))
	assert.Equal(t, "Kept", c.Get().Dashboard.Title)
	assert.Equal(t, version, c.Version())
}

func TestInboundDropsStateForAnotherDashboard(t *testing.T) {
	c, history, _ := newSynced(t, "/view/abc", "abc")
	other := c.Get()
	other.Dashboard.Title = "Other dashboard"
	history.Push(urlWith(t, "/view/zzz", other))
	assert.Equal(t, "Sales", c.Get().Dashboard.Title)
}

func TestSubscribeDeliversLatestSnapshot(t *testing.T) {
	c, _, _ := newSynced(t, "/create", "")
	updates, cancel := c.Subscribe()
	defer cancel()

	require.NoError(t, c.Transitions().Set(PropTitle, "A"))
	require.NoError(t, c.Transitions().Set(PropTitle, "B"))

	snap := <-updates
	assert.Equal(t, uint64(2), snap.Version)
	assert.Equal(t, "B", snap.State.Dashboard.Title)
	select {
	case extra := <-updates:
		t.Fatalf("unexpected extra snapshot %+v", extra)
	default:
	}
}

func TestStopIsTerminal(t *testing.T) {
	c, history, stop := newSynced(t, "/view/abc", "abc")
	updates, _ := c.Subscribe()
	stop()
	stop()

	assert.Equal(t, StatusStopped, c.Status())
	_, ok := <-updates
	assert.False(t, ok)

	require.NoError(t, c.Transitions().Set(PropTitle, "ignored"))
	assert.Equal(t, "Sales", c.Get().Dashboard.Title)

	next := c.Get()
	next.Dashboard.Title = "ignored too"
	history.Push(urlWith(t, "/view/abc", next))
	assert.Equal(t, "Sales", c.Get().Dashboard.Title)

	late, _ := c.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestDashboardStateFlowsBackIntoModel(t *testing.T) {
	state := Defaults(sampleDashboard("abc"), false)
	state.Dashboard.Title = "Edited"
	model := dashboard.NewDashboard(ptr(sampleDashboard("abc")))
	model.SetState(state.DashboardState())
	assert.Equal(t, "Edited", model.Title())
	assert.Equal(t, "abc", model.ID())
}

func ptr[T any](v T) *T { return &v }
