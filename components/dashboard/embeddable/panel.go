package embeddable

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"sync"

	"github.com/goliatone/go-dashboard-editor/components/dashboard"
)

// Built-in panel types.
const (
	VisualizationType = "visualization"
	SearchType        = "search"
)

// ErrUnknownType is returned for panels whose type has no registered factory.
var ErrUnknownType = errors.New("embeddable: unknown panel type")

// ChildFactory builds children of one panel type. Schema, when set, validates the
// panel's embeddable config before Create runs.
type ChildFactory struct {
	Type   string
	Schema map[string]any
	Create func(input ChildInput, renderer Renderer) (Embeddable, error)
}

// ChildRegistry maps panel types to their factories.
type ChildRegistry struct {
	mu        sync.RWMutex
	factories map[string]ChildFactory
	validator dashboard.SchemaValidator
}

// panelConfigSchema accepts any config whose optional indexPattern is a string.
var panelConfigSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"indexPattern": map[string]any{"type": "string"},
		"title":        map[string]any{"type": "string"},
	},
}

// NewChildRegistry returns a registry with the visualization and search panel
// types registered.
func NewChildRegistry(validator dashboard.SchemaValidator) *ChildRegistry {
	if validator == nil {
		validator = dashboard.NewJSONSchemaValidator()
	}
	r := &ChildRegistry{
		factories: make(map[string]ChildFactory),
		validator: validator,
	}
	for _, typ := range []string{VisualizationType, SearchType} {
		_ = r.Register(ChildFactory{Type: typ, Schema: panelConfigSchema, Create: NewPanelEmbeddable})
	}
	return r
}

// Register adds or replaces the factory of a panel type.
func (r *ChildRegistry) Register(f ChildFactory) error {
	if f.Type == "" {
		return errors.New("embeddable: child factory type is required")
	}
	if f.Create == nil {
		return fmt.Errorf("embeddable: child factory %s has no constructor", f.Type)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[f.Type] = f
	return nil
}

// Types lists the registered panel types.
func (r *ChildRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for typ := range r.factories {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}

// Build creates the child for input.
func (r *ChildRegistry) Build(input ChildInput, renderer Renderer) (Embeddable, error) {
	r.mu.RLock()
	f, ok := r.factories[input.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, input.Type)
	}
	if len(f.Schema) > 0 {
		config := input.EmbeddableConfig
		if config == nil {
			config = map[string]any{}
		}
		if err := r.validator.Validate("panel."+f.Type, f.Schema, config); err != nil {
			return nil, err
		}
	}
	return f.Create(input, renderer)
}

// PanelEmbeddable is the generic child used for saved visualizations and searches.
// It renders a placeholder body carrying the inherited input; the visualization
// itself is drawn client side.
type PanelEmbeddable struct {
	mu        sync.RWMutex
	input     ChildInput
	renderer  Renderer
	destroyed bool
}

// NewPanelEmbeddable is the ChildFactory constructor for PanelEmbeddable.
func NewPanelEmbeddable(input ChildInput, renderer Renderer) (Embeddable, error) {
	return &PanelEmbeddable{input: input, renderer: renderer}, nil
}

func (p *PanelEmbeddable) ID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.input.ID
}

func (p *PanelEmbeddable) Type() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.input.Type
}

func (p *PanelEmbeddable) Input() ChildInput {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.input
}

func (p *PanelEmbeddable) UpdateInput(input ChildInput) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return
	}
	p.input = input
}

// Output reports the index pattern named by the embeddable config, if any.
func (p *PanelEmbeddable) Output() Output {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := Output{Title: p.title()}
	if pattern, ok := p.input.EmbeddableConfig["indexPattern"].(string); ok && pattern != "" {
		out.IndexPatterns = []IndexPattern{{ID: pattern, Title: pattern}}
	}
	return out
}

func (p *PanelEmbeddable) title() string {
	if p.input.Title != "" {
		return p.input.Title
	}
	if t, ok := p.input.EmbeddableConfig["title"].(string); ok {
		return t
	}
	return ""
}

func (p *PanelEmbeddable) Render(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.RLock()
	input := p.input
	title := p.title()
	destroyed := p.destroyed
	p.mu.RUnlock()
	if destroyed {
		return "", fmt.Errorf("embeddable: panel %s destroyed", input.ID)
	}
	if p.renderer == nil {
		return fmt.Sprintf(`<article class="dashboard-panel" data-panel-id="%s">%s</article>`,
			html.EscapeString(input.ID), html.EscapeString(title)), nil
	}
	return p.renderer.Render(PanelTemplate, map[string]any{
		"id":              input.ID,
		"type":            input.Type,
		"title":           title,
		"show_title":      !input.HidePanelTitles && title != "",
		"saved_object_id": input.SavedObjectID,
		"query":           input.Query.Text(),
		"time_from":       input.TimeRange.From,
		"time_to":         input.TimeRange.To,
		"filter_count":    len(input.Filters),
		"reload":          input.LastReloadRequestTime,
	})
}

func (p *PanelEmbeddable) Destroy() {
	p.mu.Lock()
	p.destroyed = true
	p.mu.Unlock()
}
