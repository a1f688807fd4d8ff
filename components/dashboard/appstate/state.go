package appstate

import (
	"github.com/goliatone/go-dashboard-editor/components/dashboard"
)

// DashboardAppState is the dashboard sub-state mirrored into the URL.
type DashboardAppState struct {
	Panels          []dashboard.Panel  `json:"panels"`
	FullScreenMode  bool               `json:"fullScreenMode"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	TimeRestore     bool               `json:"timeRestore"`
	Options         dashboard.Options  `json:"options"`
	ViewMode        dashboard.ViewMode `json:"viewMode"`
	ExpandedPanelID string             `json:"expandedPanelId,omitempty"`
}

// AppState is the URL-synchronized state of one loaded dashboard.
// HasUnsavedChanges is session-only and never written to the URL.
type AppState struct {
	Query             dashboard.Query    `json:"query"`
	Filters           []dashboard.Filter `json:"filters"`
	SavedQuery        string             `json:"savedQuery,omitempty"`
	Dashboard         DashboardAppState  `json:"dashboard"`
	HasUnsavedChanges bool               `json:"-"`
}

// Clone deep-copies the state.
func (s AppState) Clone() AppState {
	out := s
	out.Filters = dashboard.CloneFilters(s.Filters)
	out.Dashboard.Panels = dashboard.ClonePanels(s.Dashboard.Panels)
	return out.normalized()
}

func (s AppState) normalized() AppState {
	if s.Filters == nil {
		s.Filters = []dashboard.Filter{}
	}
	if s.Dashboard.Panels == nil {
		s.Dashboard.Panels = []dashboard.Panel{}
	}
	if s.Query.Language == "" {
		s.Query.Language = dashboard.DefaultQueryLanguage
	}
	return s
}

// Defaults derives the initial app state from a dashboard. Saved dashboards and
// viewers without write controls start in view mode.
func Defaults(d dashboard.SerializedDashboard, hideWriteControls bool) AppState {
	mode := dashboard.ViewModeEdit
	if d.ID != "" || hideWriteControls {
		mode = dashboard.ViewModeView
	}
	return AppState{
		Query:   d.Query,
		Filters: dashboard.CloneFilters(d.Filters),
		Dashboard: DashboardAppState{
			Panels:         dashboard.ClonePanels(d.Panels),
			FullScreenMode: false,
			Title:          d.Title,
			Description:    d.Description,
			TimeRestore:    d.TimeRestore,
			Options:        d.Options,
			ViewMode:       mode,
		},
	}.normalized()
}

// DashboardState returns the model partial that carries the app state's dashboard
// fields back into a Dashboard before save.
func (s AppState) DashboardState() dashboard.DashboardState {
	d := s.Clone()
	return dashboard.DashboardState{
		Title:       &d.Dashboard.Title,
		Description: &d.Dashboard.Description,
		Panels:      d.Dashboard.Panels,
		Options:     &d.Dashboard.Options,
		Query:       &d.Query,
		Filters:     d.Filters,
		TimeRestore: &d.Dashboard.TimeRestore,
	}
}

// urlState is the URL form of AppState. Nil fields are absent from the URL and
// leave the defaults in place when merged.
type urlState struct {
	Query      *dashboard.Query    `json:"query,omitempty"`
	Filters    *[]dashboard.Filter `json:"filters,omitempty"`
	SavedQuery *string             `json:"savedQuery,omitempty"`
	Dashboard  *urlDashboardState  `json:"dashboard,omitempty"`
}

type urlDashboardState struct {
	Panels          *[]dashboard.Panel  `json:"panels,omitempty"`
	FullScreenMode  *bool               `json:"fullScreenMode,omitempty"`
	Title           *string             `json:"title,omitempty"`
	Description     *string             `json:"description,omitempty"`
	TimeRestore     *bool               `json:"timeRestore,omitempty"`
	Options         *dashboard.Options  `json:"options,omitempty"`
	ViewMode        *dashboard.ViewMode `json:"viewMode,omitempty"`
	ExpandedPanelID *string             `json:"expandedPanelId,omitempty"`
}

// toURL projects state into its URL form. Panels are omitted in view mode.
func toURL(s AppState) urlState {
	c := s.Clone()
	out := urlState{
		Query:   &c.Query,
		Filters: &c.Filters,
		Dashboard: &urlDashboardState{
			FullScreenMode: &c.Dashboard.FullScreenMode,
			Title:          &c.Dashboard.Title,
			Description:    &c.Dashboard.Description,
			TimeRestore:    &c.Dashboard.TimeRestore,
			Options:        &c.Dashboard.Options,
			ViewMode:       &c.Dashboard.ViewMode,
		},
	}
	if c.SavedQuery != "" {
		out.SavedQuery = &c.SavedQuery
	}
	if c.Dashboard.ExpandedPanelID != "" {
		out.Dashboard.ExpandedPanelID = &c.Dashboard.ExpandedPanelID
	}
	if c.Dashboard.ViewMode != dashboard.ViewModeView {
		out.Dashboard.Panels = &c.Dashboard.Panels
	}
	return out
}

// merge applies the fields present in u over base. The dashboard sub-state merges
// field by field so a view-mode URL keeps the base panels.
func merge(base AppState, u urlState) AppState {
	out := base.Clone()
	if u.Query != nil {
		out.Query = *u.Query
	}
	if u.Filters != nil {
		out.Filters = dashboard.CloneFilters(*u.Filters)
	}
	if u.SavedQuery != nil {
		out.SavedQuery = *u.SavedQuery
	}
	if d := u.Dashboard; d != nil {
		if d.Panels != nil {
			out.Dashboard.Panels = dashboard.ClonePanels(*d.Panels)
		}
		if d.FullScreenMode != nil {
			out.Dashboard.FullScreenMode = *d.FullScreenMode
		}
		if d.Title != nil {
			out.Dashboard.Title = *d.Title
		}
		if d.Description != nil {
			out.Dashboard.Description = *d.Description
		}
		if d.TimeRestore != nil {
			out.Dashboard.TimeRestore = *d.TimeRestore
		}
		if d.Options != nil {
			out.Dashboard.Options = *d.Options
		}
		if d.ViewMode != nil {
			out.Dashboard.ViewMode = *d.ViewMode
		}
		if d.ExpandedPanelID != nil {
			out.Dashboard.ExpandedPanelID = *d.ExpandedPanelID
		}
	}
	return out.normalized()
}
