package dashboard

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	manifestVersionV1 = "1"
	// ManifestVersion is the seed manifest format understood by this package.
	ManifestVersion = manifestVersionV1
)

// ManifestDocument is a YAML seed file listing dashboards to preload into a Loader.
type ManifestDocument struct {
	Version    string              `json:"version" yaml:"version"`
	Name       string              `json:"name,omitempty" yaml:"name,omitempty"`
	Dashboards []ManifestDashboard `json:"dashboards" yaml:"dashboards"`
	Source     string              `json:"-" yaml:"-"`
}

// ManifestDashboard is one seeded dashboard.
type ManifestDashboard struct {
	ID              string           `json:"id" yaml:"id"`
	Title           string           `json:"title" yaml:"title"`
	Description     string           `json:"description,omitempty" yaml:"description,omitempty"`
	Panels          []Panel          `json:"panels,omitempty" yaml:"panels,omitempty"`
	Options         *Options         `json:"options,omitempty" yaml:"options,omitempty"`
	Query           *Query           `json:"query,omitempty" yaml:"query,omitempty"`
	Filters         []Filter         `json:"filters,omitempty" yaml:"filters,omitempty"`
	TimeRestore     bool             `json:"timeRestore,omitempty" yaml:"time_restore,omitempty"`
	TimeFrom        string           `json:"timeFrom,omitempty" yaml:"time_from,omitempty"`
	TimeTo          string           `json:"timeTo,omitempty" yaml:"time_to,omitempty"`
	RefreshInterval *RefreshInterval `json:"refreshInterval,omitempty" yaml:"refresh_interval,omitempty"`
}

// Serialized converts the entry, applying the same defaults as a new document.
func (m ManifestDashboard) Serialized() SerializedDashboard {
	out := SerializedDashboard{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Panels:      ClonePanels(m.Panels),
		Options:     Options{UseMargins: true},
		Query:       Query{Language: DefaultQueryLanguage},
		Filters:     CloneFilters(m.Filters),
		TimeRestore: m.TimeRestore,
		UIState:     map[string]any{},
	}
	if out.Panels == nil {
		out.Panels = []Panel{}
	}
	if out.Filters == nil {
		out.Filters = []Filter{}
	}
	if m.Options != nil {
		out.Options = *m.Options
	}
	if m.Query != nil {
		out.Query = *m.Query
		if out.Query.Language == "" {
			out.Query.Language = DefaultQueryLanguage
		}
	}
	if m.TimeRestore {
		out.TimeFrom = m.TimeFrom
		out.TimeTo = m.TimeTo
		if m.RefreshInterval != nil {
			ri := *m.RefreshInterval
			out.RefreshInterval = &ri
		}
	}
	return out
}

// ReadManifest loads a seed manifest from disk.
func ReadManifest(path string) (*ManifestDocument, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("dashboard: open manifest %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("dashboard: decode manifest %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeManifest parses a manifest from r. Unknown keys are rejected.
func DecodeManifest(r io.Reader) (*ManifestDocument, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc ManifestDocument
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("dashboard: manifest is empty")
		}
		return nil, fmt.Errorf("dashboard: parse manifest: %w", err)
	}
	if doc.Version == "" {
		doc.Version = manifestVersionV1
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// EncodeManifest writes doc as YAML.
func EncodeManifest(w io.Writer, doc *ManifestDocument) error {
	if doc == nil {
		return fmt.Errorf("dashboard: manifest document is nil")
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("dashboard: encode manifest: %w", err)
	}
	return encoder.Close()
}

// Validate checks the version, ids and titles, and panel indexes.
func (doc *ManifestDocument) Validate() error {
	if doc.Version != manifestVersionV1 {
		return fmt.Errorf("dashboard: unsupported manifest version %q", doc.Version)
	}
	seen := make(map[string]struct{}, len(doc.Dashboards))
	for idx, item := range doc.Dashboards {
		if item.ID == "" {
			return fmt.Errorf("dashboard: manifest dashboard at index %d is missing id", idx)
		}
		if item.Title == "" {
			return fmt.Errorf("dashboard: manifest dashboard %s is missing title", item.ID)
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("dashboard: manifest duplicates dashboard id %s", item.ID)
		}
		seen[item.ID] = struct{}{}
		panels := make(map[string]struct{}, len(item.Panels))
		for _, panel := range item.Panels {
			if panel.PanelIndex == "" {
				return fmt.Errorf("dashboard: manifest dashboard %s has a panel without panel_index", item.ID)
			}
			if _, dup := panels[panel.PanelIndex]; dup {
				return fmt.Errorf("dashboard: manifest dashboard %s duplicates panel %s", item.ID, panel.PanelIndex)
			}
			panels[panel.PanelIndex] = struct{}{}
		}
	}
	return nil
}
