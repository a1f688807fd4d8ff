package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Loader fetches and persists saved dashboard documents. Implementations ensure
// thread safety; a missing id must surface as a *NotFoundError.
type Loader interface {
	Get(ctx context.Context, id string) (*SavedDashboard, error)
	Save(ctx context.Context, doc *SavedDashboard) (string, error)
	Delete(ctx context.Context, ids ...string) error
	Find(ctx context.Context, opts FindOptions) ([]*SavedDashboard, error)
}

// CapabilitiesProvider resolves the current user's dashboard capabilities.
type CapabilitiesProvider interface {
	Capabilities(ctx context.Context) (Capabilities, error)
}

// StateTransferProvider opens the channel used to hand embeddable state across apps.
type StateTransferProvider interface {
	StateTransfer(history History) StateTransfer
}

// StateTransfer is opaque to the dashboard core.
type StateTransfer interface {
	IncomingEmbeddablePackage() (EmbeddablePackage, bool)
}

// EmbeddablePackage is the payload carried by a state transfer.
type EmbeddablePackage struct {
	Type  string
	Input map[string]any
}

// Notifications receives toast messages. Calls are fire-and-forget.
type Notifications interface {
	AddWarning(message string)
	AddDanger(message string)
	AddError(err error, opts ToastOptions)
}

// ToastOptions decorates error toasts.
type ToastOptions struct {
	Title        string
	ToastMessage string
}

// Chrome is the breadcrumbs/title sink.
type Chrome interface {
	SetBreadcrumbs(crumbs []Breadcrumb)
	SetDocTitle(title string)
}

// RefreshHook notifies transports (REST/WebSocket) about dashboard changes.
type RefreshHook interface {
	DashboardUpdated(ctx context.Context, event Event) error
}

// ViewMode toggles between read-only and editing dashboards.
type ViewMode string

const (
	ViewModeView ViewMode = "view"
	ViewModeEdit ViewMode = "edit"
)

// Capabilities mirrors the dashboard capability flags granted to a user.
type Capabilities struct {
	ShowWriteControls bool `json:"showWriteControls" yaml:"show_write_controls"`
	CreateNew         bool `json:"createNew" yaml:"create_new"`
	ShowSavedQuery    bool `json:"showSavedQuery" yaml:"show_saved_query"`
	SaveQuery         bool `json:"saveQuery" yaml:"save_query"`
	CreateShortURL    bool `json:"createShortUrl" yaml:"create_short_url"`
}

// TimeRange bounds the data shown by every panel.
type TimeRange struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// RefreshInterval controls auto refresh.
type RefreshInterval struct {
	Pause   bool   `json:"pause" yaml:"pause"`
	Value   int    `json:"value" yaml:"value"`
	Display string `json:"display,omitempty" yaml:"display,omitempty"`
	Section int    `json:"section,omitempty" yaml:"section,omitempty"`
}

// Query is a search bar query. Query holds either the query string or, for DSL
// queries, the decoded JSON object.
type Query struct {
	Query    any    `json:"query" yaml:"query"`
	Language string `json:"language" yaml:"language"`
}

// Text renders the query for display. Object queries are rendered as JSON.
func (q Query) Text() string {
	switch v := q.Query.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

// DefaultQueryLanguage is applied to queries persisted without a language.
const DefaultQueryLanguage = "kuery"

// UnmarshalJSON accepts both the object form and legacy bare-string queries.
func (q *Query) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var legacy string
	if err := json.Unmarshal(data, &legacy); err == nil {
		*q = Query{Query: legacy, Language: DefaultQueryLanguage}
		return nil
	}
	type plain Query
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*q = Query(decoded)
	return nil
}

// Filter is a pinned or app-level query filter.
type Filter struct {
	Meta  FilterMeta     `json:"meta" yaml:"meta"`
	Query map[string]any `json:"query,omitempty" yaml:"query,omitempty"`
	State *FilterState   `json:"$state,omitempty" yaml:"state,omitempty"`
}

// FilterMeta describes how a filter is displayed and applied.
type FilterMeta struct {
	Index    string         `json:"index,omitempty" yaml:"index,omitempty"`
	Alias    string         `json:"alias,omitempty" yaml:"alias,omitempty"`
	Key      string         `json:"key,omitempty" yaml:"key,omitempty"`
	Value    string         `json:"value,omitempty" yaml:"value,omitempty"`
	Type     string         `json:"type,omitempty" yaml:"type,omitempty"`
	Negate   bool           `json:"negate" yaml:"negate"`
	Disabled bool           `json:"disabled" yaml:"disabled"`
	Params   map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// FilterState records where a filter lives (app or global state).
type FilterState struct {
	Store string `json:"store" yaml:"store"`
}

// GridData positions a panel on the dashboard grid.
type GridData struct {
	X int    `json:"x" yaml:"x"`
	Y int    `json:"y" yaml:"y"`
	W int    `json:"w" yaml:"w"`
	H int    `json:"h" yaml:"h"`
	I string `json:"i" yaml:"i"`
}

// Panel is one embeddable placed on the dashboard.
type Panel struct {
	PanelIndex       string         `json:"panelIndex" yaml:"panel_index"`
	Type             string         `json:"type" yaml:"type"`
	ID               string         `json:"id,omitempty" yaml:"id,omitempty"`
	Title            string         `json:"title,omitempty" yaml:"title,omitempty"`
	Version          string         `json:"version,omitempty" yaml:"version,omitempty"`
	EmbeddableConfig map[string]any `json:"embeddableConfig" yaml:"embeddable_config"`
	GridData         GridData       `json:"gridData" yaml:"grid_data"`
}

// Options are the persisted dashboard display flags.
type Options struct {
	HidePanelTitles bool `json:"hidePanelTitles" yaml:"hide_panel_titles"`
	UseMargins      bool `json:"useMargins" yaml:"use_margins"`
}

// SerializedDashboard is the persistence-neutral snapshot of a dashboard. An empty ID
// means the dashboard has never been saved.
type SerializedDashboard struct {
	ID              string           `json:"id,omitempty"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Panels          []Panel          `json:"panels"`
	Options         Options          `json:"options"`
	Query           Query            `json:"query"`
	Filters         []Filter         `json:"filters"`
	TimeRestore     bool             `json:"timeRestore"`
	TimeFrom        string           `json:"timeFrom,omitempty"`
	TimeTo          string           `json:"timeTo,omitempty"`
	RefreshInterval *RefreshInterval `json:"refreshInterval,omitempty"`
	LastSavedTitle  string           `json:"lastSavedTitle,omitempty"`
	UIState         map[string]any   `json:"uiState"`
}

// FindOptions scopes listing queries against a Loader.
type FindOptions struct {
	Search  string
	Page    int
	PerPage int
}

// Breadcrumb is a single chrome navigation crumb.
type Breadcrumb struct {
	Text string `json:"text"`
	Href string `json:"href,omitempty"`
}

// Event describes dashboard changes that transports might care about.
type Event struct {
	DashboardID string         `json:"dashboardId"`
	Title       string         `json:"title,omitempty"`
	Reason      string         `json:"reason"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	OccurredAt  time.Time      `json:"occurredAt"`
}
