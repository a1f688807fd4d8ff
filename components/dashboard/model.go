package dashboard

import "sync"

// DashboardState is a partial update for Dashboard.SetState. Nil pointers, nil slices
// and nil maps are treated as absent and leave the model untouched.
type DashboardState struct {
	Title           *string
	Description     *string
	Panels          []Panel
	Options         *Options
	Query           *Query
	Filters         []Filter
	TimeRestore     *bool
	TimeFrom        *string
	TimeTo          *string
	RefreshInterval *RefreshInterval
	LastSavedTitle  *string
	UIState         map[string]any
}

// StateFromSerialized builds a DashboardState that sets every field of s.
func StateFromSerialized(s SerializedDashboard) DashboardState {
	state := DashboardState{
		Title:          &s.Title,
		Description:    &s.Description,
		Panels:         s.Panels,
		Options:        &s.Options,
		Query:          &s.Query,
		Filters:        s.Filters,
		TimeRestore:    &s.TimeRestore,
		TimeFrom:       &s.TimeFrom,
		TimeTo:         &s.TimeTo,
		LastSavedTitle: &s.LastSavedTitle,
		UIState:        s.UIState,
	}
	if state.Panels == nil {
		state.Panels = []Panel{}
	}
	if state.Filters == nil {
		state.Filters = []Filter{}
	}
	if state.UIState == nil {
		state.UIState = map[string]any{}
	}
	if s.RefreshInterval != nil {
		state.RefreshInterval = s.RefreshInterval
	}
	return state
}

// Dashboard is the session-scoped, mutable model of one dashboard.
type Dashboard struct {
	mu    sync.RWMutex
	id    string
	state SerializedDashboard
}

// NewDashboard builds a model from an optional serialized snapshot. Missing
// collections default to empty values; the input is copied, never retained.
func NewDashboard(serialized *SerializedDashboard) *Dashboard {
	var state SerializedDashboard
	if serialized != nil {
		state = cloneSerialized(*serialized)
	}
	if state.Panels == nil {
		state.Panels = []Panel{}
	}
	if state.Filters == nil {
		state.Filters = []Filter{}
	}
	if state.UIState == nil {
		state.UIState = map[string]any{}
	}
	return &Dashboard{id: state.ID, state: state}
}

// ID returns the persisted id, empty for unsaved dashboards.
func (d *Dashboard) ID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.id
}

// Title returns the current title.
func (d *Dashboard) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state.Title
}

// SetState overwrites every field present in partial.
func (d *Dashboard) SetState(partial DashboardState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if partial.Title != nil {
		d.state.Title = *partial.Title
	}
	if partial.Description != nil {
		d.state.Description = *partial.Description
	}
	if partial.Panels != nil {
		d.state.Panels = clonePanels(partial.Panels)
	}
	if partial.Options != nil {
		d.state.Options = *partial.Options
	}
	if partial.Query != nil {
		d.state.Query = *partial.Query
	}
	if partial.Filters != nil {
		d.state.Filters = cloneFilters(partial.Filters)
	}
	if partial.TimeRestore != nil {
		d.state.TimeRestore = *partial.TimeRestore
	}
	if partial.TimeFrom != nil {
		d.state.TimeFrom = *partial.TimeFrom
	}
	if partial.TimeTo != nil {
		d.state.TimeTo = *partial.TimeTo
	}
	if partial.RefreshInterval != nil {
		ri := *partial.RefreshInterval
		d.state.RefreshInterval = &ri
	}
	if partial.LastSavedTitle != nil {
		d.state.LastSavedTitle = *partial.LastSavedTitle
	}
	if partial.UIState != nil {
		d.state.UIState = cloneMap(partial.UIState)
	}
}

// Serialize returns a deep copy of the model state.
func (d *Dashboard) Serialize() SerializedDashboard {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := cloneSerialized(d.state)
	out.ID = d.id
	return out
}

// Clone returns an independent model with the same state.
func (d *Dashboard) Clone() *Dashboard {
	serialized := d.Serialize()
	clone := NewDashboard(&SerializedDashboard{ID: serialized.ID})
	clone.SetState(StateFromSerialized(serialized))
	return clone
}

func cloneSerialized(s SerializedDashboard) SerializedDashboard {
	out := s
	out.Panels = clonePanels(s.Panels)
	out.Filters = cloneFilters(s.Filters)
	out.UIState = cloneMap(s.UIState)
	if s.RefreshInterval != nil {
		ri := *s.RefreshInterval
		out.RefreshInterval = &ri
	}
	return out
}

// ClonePanels deep-copies a panel list.
func ClonePanels(panels []Panel) []Panel {
	return clonePanels(panels)
}

// CloneFilters deep-copies a filter list.
func CloneFilters(filters []Filter) []Filter {
	return cloneFilters(filters)
}

// CloneMap deep-copies a JSON-like map, nested maps and slices included.
func CloneMap(src map[string]any) map[string]any {
	return cloneMap(src)
}

func clonePanels(panels []Panel) []Panel {
	if panels == nil {
		return nil
	}
	out := make([]Panel, len(panels))
	for i, p := range panels {
		out[i] = p
		out[i].EmbeddableConfig = cloneMap(p.EmbeddableConfig)
	}
	return out
}

func cloneFilters(filters []Filter) []Filter {
	if filters == nil {
		return nil
	}
	out := make([]Filter, len(filters))
	for i, f := range filters {
		out[i] = f
		out[i].Meta.Params = cloneMap(f.Meta.Params)
		out[i].Query = cloneMap(f.Query)
		if f.State != nil {
			st := *f.State
			out[i].State = &st
		}
	}
	return out
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = cloneValue(value)
	}
	return dst
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
