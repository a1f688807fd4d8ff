package appstate

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goliatone/go-dashboard-editor/components/dashboard"
)

// ErrUnknownProp is returned by Set for properties the app state does not have.
var ErrUnknownProp = errors.New("appstate: unknown property")

// Top-level properties accepted by Set.
const (
	PropQuery             = "query"
	PropFilters           = "filters"
	PropSavedQuery        = "savedQuery"
	PropDashboard         = "dashboard"
	PropHasUnsavedChanges = "hasUnsavedChanges"
)

// Dashboard properties accepted by Set. They are routed into the dashboard sub-state.
const (
	PropTitle           = "title"
	PropDescription     = "description"
	PropPanels          = "panels"
	PropViewMode        = "viewMode"
	PropFullScreenMode  = "fullScreenMode"
	PropTimeRestore     = "timeRestore"
	PropOptions         = "options"
	PropExpandedPanelID = "expandedPanelId"
)

// DashboardPatch is a partial dashboard sub-state. Nil fields are left untouched.
type DashboardPatch struct {
	Panels          []dashboard.Panel
	FullScreenMode  *bool
	Title           *string
	Description     *string
	TimeRestore     *bool
	Options         *dashboard.Options
	ViewMode        *dashboard.ViewMode
	ExpandedPanelID *string
}

// ApplySet replaces one property. The input state is never modified.
func ApplySet(state AppState, prop string, value any) (AppState, error) {
	out := state.Clone()
	var err error
	switch prop {
	case PropQuery:
		err = assign(prop, value, &out.Query)
	case PropFilters:
		var filters []dashboard.Filter
		if err = assign(prop, value, &filters); err == nil {
			out.Filters = dashboard.CloneFilters(filters)
		}
	case PropSavedQuery:
		err = assign(prop, value, &out.SavedQuery)
	case PropDashboard:
		var d DashboardAppState
		if err = assign(prop, value, &d); err == nil {
			d.Panels = dashboard.ClonePanels(d.Panels)
			out.Dashboard = d
		}
	case PropHasUnsavedChanges:
		err = assign(prop, value, &out.HasUnsavedChanges)
	case PropTitle:
		err = assign(prop, value, &out.Dashboard.Title)
	case PropDescription:
		err = assign(prop, value, &out.Dashboard.Description)
	case PropPanels:
		var panels []dashboard.Panel
		if err = assign(prop, value, &panels); err == nil {
			out.Dashboard.Panels = dashboard.ClonePanels(panels)
		}
	case PropViewMode:
		if s, ok := value.(string); ok {
			value = dashboard.ViewMode(s)
		}
		err = assign(prop, value, &out.Dashboard.ViewMode)
	case PropFullScreenMode:
		err = assign(prop, value, &out.Dashboard.FullScreenMode)
	case PropTimeRestore:
		err = assign(prop, value, &out.Dashboard.TimeRestore)
	case PropOptions:
		err = assign(prop, value, &out.Dashboard.Options)
	case PropExpandedPanelID:
		err = assign(prop, value, &out.Dashboard.ExpandedPanelID)
	default:
		return state, fmt.Errorf("%w: %s", ErrUnknownProp, prop)
	}
	if err != nil {
		return state, err
	}
	return out.normalized(), nil
}

// assign stores value into target. Values decoded from JSON (maps, slices,
// float64) are re-encoded and decoded into the target type.
func assign[T any](prop string, value any, target *T) error {
	if typed, ok := value.(T); ok {
		*target = typed
		return nil
	}
	raw, ok := value.(json.RawMessage)
	if !ok {
		var err error
		if raw, err = json.Marshal(value); err != nil {
			return fmt.Errorf("%w: appstate: %s: %v", dashboard.ErrInvalidRequest, prop, err)
		}
	}
	var decoded T
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("%w: appstate: %s expects %T, got %T", dashboard.ErrInvalidRequest, prop, *target, value)
	}
	*target = decoded
	return nil
}

// ApplySetDashboard merges patch into the dashboard sub-state.
func ApplySetDashboard(state AppState, patch DashboardPatch) AppState {
	out := state.Clone()
	d := &out.Dashboard
	if patch.Panels != nil {
		d.Panels = dashboard.ClonePanels(patch.Panels)
	}
	if patch.FullScreenMode != nil {
		d.FullScreenMode = *patch.FullScreenMode
	}
	if patch.Title != nil {
		d.Title = *patch.Title
	}
	if patch.Description != nil {
		d.Description = *patch.Description
	}
	if patch.TimeRestore != nil {
		d.TimeRestore = *patch.TimeRestore
	}
	if patch.Options != nil {
		d.Options = *patch.Options
	}
	if patch.ViewMode != nil {
		d.ViewMode = *patch.ViewMode
	}
	if patch.ExpandedPanelID != nil {
		d.ExpandedPanelID = *patch.ExpandedPanelID
	}
	return out.normalized()
}

// ApplyUpdateDashboardState replaces the whole dashboard sub-state.
func ApplyUpdateDashboardState(state AppState, d DashboardAppState) AppState {
	out := state.Clone()
	d.Panels = dashboard.ClonePanels(d.Panels)
	out.Dashboard = d
	return out.normalized()
}

// ApplyUpdateSavedQuery points the state at a saved query id. An empty id clears it.
func ApplyUpdateSavedQuery(state AppState, id string) AppState {
	out := state.Clone()
	out.SavedQuery = id
	return out
}

// Transitions dispatches the pure transitions against a container.
type Transitions struct {
	c *Container
}

// Set replaces one property.
func (t Transitions) Set(prop string, value any) error {
	return t.c.dispatch(prop, func(s AppState) (AppState, error) {
		return ApplySet(s, prop, value)
	})
}

// SetDashboard merges a partial dashboard sub-state.
func (t Transitions) SetDashboard(patch DashboardPatch) error {
	return t.c.dispatch(PropDashboard, func(s AppState) (AppState, error) {
		return ApplySetDashboard(s, patch), nil
	})
}

// UpdateDashboardState replaces the dashboard sub-state.
func (t Transitions) UpdateDashboardState(d DashboardAppState) error {
	return t.c.dispatch(PropDashboard, func(s AppState) (AppState, error) {
		return ApplyUpdateDashboardState(s, d), nil
	})
}

// UpdateSavedQuery sets or clears the saved query id.
func (t Transitions) UpdateSavedQuery(id string) error {
	return t.c.dispatch(PropSavedQuery, func(s AppState) (AppState, error) {
		return ApplyUpdateSavedQuery(s, id), nil
	})
}
