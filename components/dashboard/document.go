package dashboard

import (
	"encoding/json"
	"strings"
	"sync"
)

// SavedDashboard is the persisted dashboard document. Composite fields are stored as
// JSON strings; only ConvertToSerialized and ConvertFromSerialized decode or encode them.
type SavedDashboard struct {
	ID               string           `json:"id,omitempty"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Hits             int              `json:"hits"`
	PanelsJSON       string           `json:"panelsJSON"`
	OptionsJSON      string           `json:"optionsJSON,omitempty"`
	UIStateJSON      string           `json:"uiStateJSON,omitempty"`
	Version          int              `json:"version"`
	TimeRestore      bool             `json:"timeRestore"`
	TimeFrom         string           `json:"timeFrom,omitempty"`
	TimeTo           string           `json:"timeTo,omitempty"`
	RefreshInterval  *RefreshInterval `json:"refreshInterval,omitempty"`
	LastSavedTitle   string           `json:"lastSavedTitle,omitempty"`
	SearchSourceJSON string           `json:"searchSourceJSON,omitempty"`

	releaseOnce sync.Once
	release     func()
}

type searchSource struct {
	Query  *Query   `json:"query,omitempty"`
	Filter []Filter `json:"filter,omitempty"`
}

// NewSavedDashboard returns a document populated with creation defaults. Existing
// dashboards saved without useMargins keep the legacy spacing.
func NewSavedDashboard(id string) *SavedDashboard {
	options, _ := json.Marshal(Options{UseMargins: id == "", HidePanelTitles: false})
	return &SavedDashboard{
		ID:          id,
		PanelsJSON:  "[]",
		OptionsJSON: string(options),
		Version:     1,
	}
}

// OnDestroy registers the release hook invoked by Destroy.
func (d *SavedDashboard) OnDestroy(fn func()) {
	d.release = fn
}

// Destroy runs the release hook at most once.
func (d *SavedDashboard) Destroy() {
	if d == nil {
		return
	}
	d.releaseOnce.Do(func() {
		if d.release != nil {
			d.release()
		}
	})
}

// Copy returns the document data without its release hook.
func (d *SavedDashboard) Copy() *SavedDashboard {
	out := &SavedDashboard{
		ID:               d.ID,
		Title:            d.Title,
		Description:      d.Description,
		Hits:             d.Hits,
		PanelsJSON:       d.PanelsJSON,
		OptionsJSON:      d.OptionsJSON,
		UIStateJSON:      d.UIStateJSON,
		Version:          d.Version,
		TimeRestore:      d.TimeRestore,
		TimeFrom:         d.TimeFrom,
		TimeTo:           d.TimeTo,
		LastSavedTitle:   d.LastSavedTitle,
		SearchSourceJSON: d.SearchSourceJSON,
	}
	if d.RefreshInterval != nil {
		ri := *d.RefreshInterval
		out.RefreshInterval = &ri
	}
	return out
}

var conversionValidator = NewJSONSchemaValidator()

// ConvertToSerialized decodes the JSON sub-fields of a persisted document. Malformed
// sub-fields produce a *ConversionError.
func ConvertToSerialized(doc *SavedDashboard) (SerializedDashboard, error) {
	if doc == nil {
		return SerializedDashboard{}, &ConversionError{Field: "document", Err: errMissingID}
	}
	panels, err := decodePanels(doc.PanelsJSON)
	if err != nil {
		return SerializedDashboard{}, err
	}
	var options Options
	if err := decodeField("optionsJSON", doc.OptionsJSON, &options); err != nil {
		return SerializedDashboard{}, err
	}
	uiState := map[string]any{}
	if err := decodeField("uiStateJSON", doc.UIStateJSON, &uiState); err != nil {
		return SerializedDashboard{}, err
	}
	if uiState == nil {
		uiState = map[string]any{}
	}
	var source searchSource
	if err := decodeField("searchSourceJSON", doc.SearchSourceJSON, &source); err != nil {
		return SerializedDashboard{}, err
	}
	query := Query{Language: DefaultQueryLanguage}
	if source.Query != nil {
		query = *source.Query
	}
	filters := source.Filter
	if filters == nil {
		filters = []Filter{}
	}
	out := SerializedDashboard{
		ID:             doc.ID,
		Title:          doc.Title,
		Description:    doc.Description,
		Panels:         panels,
		Options:        options,
		Query:          query,
		Filters:        filters,
		TimeRestore:    doc.TimeRestore,
		TimeFrom:       doc.TimeFrom,
		TimeTo:         doc.TimeTo,
		LastSavedTitle: doc.LastSavedTitle,
		UIState:        uiState,
	}
	if doc.RefreshInterval != nil {
		ri := *doc.RefreshInterval
		out.RefreshInterval = &ri
	}
	return out, nil
}

// ConvertFromSerialized encodes a serialized dashboard into its persisted form.
func ConvertFromSerialized(s SerializedDashboard) (*SavedDashboard, error) {
	panelsJSON, err := json.Marshal(normalizePanels(s.Panels))
	if err != nil {
		return nil, &ConversionError{Field: "panelsJSON", Err: err}
	}
	optionsJSON, err := json.Marshal(s.Options)
	if err != nil {
		return nil, &ConversionError{Field: "optionsJSON", Err: err}
	}
	uiState := s.UIState
	if uiState == nil {
		uiState = map[string]any{}
	}
	uiStateJSON, err := json.Marshal(uiState)
	if err != nil {
		return nil, &ConversionError{Field: "uiStateJSON", Err: err}
	}
	query := s.Query
	filters := s.Filters
	if filters == nil {
		filters = []Filter{}
	}
	sourceJSON, err := json.Marshal(searchSource{Query: &query, Filter: filters})
	if err != nil {
		return nil, &ConversionError{Field: "searchSourceJSON", Err: err}
	}
	doc := &SavedDashboard{
		ID:               s.ID,
		Title:            s.Title,
		Description:      s.Description,
		PanelsJSON:       string(panelsJSON),
		OptionsJSON:      string(optionsJSON),
		UIStateJSON:      string(uiStateJSON),
		Version:          1,
		TimeRestore:      s.TimeRestore,
		TimeFrom:         s.TimeFrom,
		TimeTo:           s.TimeTo,
		LastSavedTitle:   s.LastSavedTitle,
		SearchSourceJSON: string(sourceJSON),
	}
	if s.RefreshInterval != nil {
		ri := *s.RefreshInterval
		doc.RefreshInterval = &ri
	}
	return doc, nil
}

func decodePanels(raw string) ([]Panel, error) {
	if strings.TrimSpace(raw) == "" {
		return []Panel{}, nil
	}
	var generic any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return nil, &ConversionError{Field: "panelsJSON", Err: err}
	}
	if err := conversionValidator.Validate("panels", PanelListSchema, generic); err != nil {
		return nil, &ConversionError{Field: "panelsJSON", Err: err}
	}
	var panels []Panel
	if err := json.Unmarshal([]byte(raw), &panels); err != nil {
		return nil, &ConversionError{Field: "panelsJSON", Err: err}
	}
	return normalizePanels(panels), nil
}

// normalizePanels returns a copy of panels where a missing embeddableConfig is an
// empty object, the shape PanelListSchema expects.
func normalizePanels(panels []Panel) []Panel {
	out := make([]Panel, len(panels))
	for i, p := range panels {
		if p.EmbeddableConfig == nil {
			p.EmbeddableConfig = map[string]any{}
		}
		out[i] = p
	}
	return out
}

func decodeField(field, raw string, target any) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return &ConversionError{Field: field, Err: err}
	}
	return nil
}
