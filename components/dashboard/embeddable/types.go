package embeddable

import (
	"context"
	"sort"

	"github.com/goliatone/go-dashboard-editor/components/dashboard"
)

// ErrorType is the type reported by ErrorEmbeddable.
const ErrorType = "error"

// ExplicitInput is the per-panel input override stored in the container input.
type ExplicitInput struct {
	ID               string         `json:"id"`
	SavedObjectID    string         `json:"savedObjectId,omitempty"`
	Title            string         `json:"title,omitempty"`
	EmbeddableConfig map[string]any `json:"embeddableConfig,omitempty"`
}

// PanelState places one child in the container.
type PanelState struct {
	Type          string             `json:"type"`
	Version       string             `json:"version,omitempty"`
	ExplicitInput ExplicitInput      `json:"explicitInput"`
	GridData      dashboard.GridData `json:"gridData"`
}

// ContainerInput is the full input of a dashboard container.
type ContainerInput struct {
	ID                    string                     `json:"id"`
	Title                 string                     `json:"title"`
	Description           string                     `json:"description,omitempty"`
	Panels                map[string]PanelState      `json:"panels"`
	Filters               []dashboard.Filter         `json:"filters"`
	Query                 dashboard.Query            `json:"query"`
	TimeRange             dashboard.TimeRange        `json:"timeRange"`
	RefreshConfig         *dashboard.RefreshInterval `json:"refreshConfig,omitempty"`
	ViewMode              dashboard.ViewMode         `json:"viewMode"`
	IsFullScreenMode      bool                       `json:"isFullScreenMode"`
	IsEmbeddedExternally  bool                       `json:"isEmbeddedExternally"`
	UseMargins            bool                       `json:"useMargins"`
	HidePanelTitles       bool                       `json:"hidePanelTitles"`
	ExpandedPanelID       string                     `json:"expandedPanelId,omitempty"`
	LastReloadRequestTime int64                      `json:"lastReloadRequestTime"`
}

// InputChanges is a batched container input update. Nil fields are unchanged.
type InputChanges struct {
	TimeRange        *dashboard.TimeRange
	Filters          []dashboard.Filter
	Query            *dashboard.Query
	RefreshConfig    *dashboard.RefreshInterval
	ViewMode         *dashboard.ViewMode
	IsFullScreenMode *bool
	UseMargins       *bool
	HidePanelTitles  *bool
	ExpandedPanelID  *string
	Title            *string
	Description      *string
	Panels           map[string]PanelState
}

// ChildInput is what each child sees: its panel state plus the inherited
// container-wide fields.
type ChildInput struct {
	ID                    string                     `json:"id"`
	Type                  string                     `json:"type"`
	SavedObjectID         string                     `json:"savedObjectId,omitempty"`
	Title                 string                     `json:"title,omitempty"`
	HidePanelTitles       bool                       `json:"hidePanelTitles"`
	EmbeddableConfig      map[string]any             `json:"embeddableConfig,omitempty"`
	GridData              dashboard.GridData         `json:"gridData"`
	Filters               []dashboard.Filter         `json:"filters"`
	Query                 dashboard.Query            `json:"query"`
	TimeRange             dashboard.TimeRange        `json:"timeRange"`
	RefreshConfig         *dashboard.RefreshInterval `json:"refreshConfig,omitempty"`
	ViewMode              dashboard.ViewMode         `json:"viewMode"`
	LastReloadRequestTime int64                      `json:"lastReloadRequestTime"`
}

// IndexPattern identifies an index pattern used by a child.
type IndexPattern struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Output is the state a child reports back.
type Output struct {
	Loading       bool           `json:"loading"`
	Error         error          `json:"-"`
	IndexPatterns []IndexPattern `json:"indexPatterns,omitempty"`
	Title         string         `json:"title,omitempty"`
}

// PanelError is a child failure surfaced in the container output.
type PanelError struct {
	PanelID string `json:"panelId"`
	Message string `json:"message"`
}

// ContainerOutput aggregates child outputs.
type ContainerOutput struct {
	Title         string         `json:"title"`
	Errors        []PanelError   `json:"errors,omitempty"`
	IndexPatterns []IndexPattern `json:"indexPatterns"`
}

// Embeddable is a renderable child of the container.
type Embeddable interface {
	ID() string
	Type() string
	Input() ChildInput
	UpdateInput(input ChildInput)
	Output() Output
	Render(ctx context.Context) (string, error)
	Destroy()
}

// Node is the mount target a container renders into.
type Node interface {
	Mount(html string) error
	Update(html string) error
	Unmount() error
}

// Handler is what the factory hands back: a container or an error placeholder.
type Handler interface {
	ID() string
	Mount(ctx context.Context, node Node) error
	Destroy()
}

// PanelsFromDashboard keys dashboard panels by panel index.
func PanelsFromDashboard(panels []dashboard.Panel) map[string]PanelState {
	out := make(map[string]PanelState, len(panels))
	for _, p := range panels {
		out[p.PanelIndex] = PanelState{
			Type:    p.Type,
			Version: p.Version,
			ExplicitInput: ExplicitInput{
				ID:               p.PanelIndex,
				SavedObjectID:    p.ID,
				Title:            p.Title,
				EmbeddableConfig: cloneConfig(p.EmbeddableConfig),
			},
			GridData: p.GridData,
		}
	}
	return out
}

// PanelsToDashboard is the inverse of PanelsFromDashboard, ordered by grid position.
func PanelsToDashboard(panels map[string]PanelState) []dashboard.Panel {
	out := make([]dashboard.Panel, 0, len(panels))
	for _, id := range sortedPanelIDs(panels) {
		p := panels[id]
		grid := p.GridData
		if grid.I == "" {
			grid.I = id
		}
		out = append(out, dashboard.Panel{
			PanelIndex:       id,
			Type:             p.Type,
			ID:               p.ExplicitInput.SavedObjectID,
			Title:            p.ExplicitInput.Title,
			Version:          p.Version,
			EmbeddableConfig: cloneConfig(p.ExplicitInput.EmbeddableConfig),
			GridData:         grid,
		})
	}
	return out
}

// sortedPanelIDs orders panels top to bottom, then left to right.
func sortedPanelIDs(panels map[string]PanelState) []string {
	ids := make([]string, 0, len(panels))
	for id := range panels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := panels[ids[i]].GridData, panels[ids[j]].GridData
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return ids[i] < ids[j]
	})
	return ids
}

// cloneConfig deep-copies so children never share nested config with the input.
func cloneConfig(src map[string]any) map[string]any {
	return dashboard.CloneMap(src)
}

func clonePanelStates(src map[string]PanelState) map[string]PanelState {
	out := make(map[string]PanelState, len(src))
	for id, p := range src {
		p.ExplicitInput.EmbeddableConfig = cloneConfig(p.ExplicitInput.EmbeddableConfig)
		out[id] = p
	}
	return out
}

func cloneInput(in ContainerInput) ContainerInput {
	out := in
	out.Panels = clonePanelStates(in.Panels)
	out.Filters = dashboard.CloneFilters(in.Filters)
	if out.Filters == nil {
		out.Filters = []dashboard.Filter{}
	}
	if in.RefreshConfig != nil {
		rc := *in.RefreshConfig
		out.RefreshConfig = &rc
	}
	return out
}
