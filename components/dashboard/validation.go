package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaValidator validates decoded JSON payloads against a named schema.
type SchemaValidator interface {
	Validate(name string, schema map[string]any, payload any) error
}

// JSONSchemaValidator compiles schemas once per name and validates payloads.
type JSONSchemaValidator struct {
	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
}

// NewJSONSchemaValidator builds a validator backed by jsonschema v5.
func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Validate ensures payload satisfies schema. Payloads are normalized through JSON so
// typed structs and decoded documents validate the same way.
func (v *JSONSchemaValidator) Validate(name string, schema map[string]any, payload any) error {
	if len(schema) == 0 {
		return nil
	}
	compiled, err := v.schemaFor(name, schema)
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("dashboard: marshal payload for %s: %w", name, err)
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var normalized any
	if err := decoder.Decode(&normalized); err != nil {
		return fmt.Errorf("dashboard: normalize payload for %s: %w", name, err)
	}
	if normalized == nil {
		normalized = map[string]any{}
	}
	if err := compiled.Validate(normalized); err != nil {
		return fmt.Errorf("dashboard: %s failed validation: %w", name, err)
	}
	return nil
}

func (v *JSONSchemaValidator) schemaFor(name string, schema map[string]any) (*jsonschema.Schema, error) {
	v.mu.RLock()
	compiled, ok := v.compiled[name]
	v.mu.RUnlock()
	if ok {
		return compiled, nil
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("dashboard: marshal schema %s: %w", name, err)
	}
	compiler := jsonschema.NewCompiler()
	resource := name + ".json"
	if err := compiler.AddResource(resource, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("dashboard: load schema %s: %w", name, err)
	}
	compiled, err = compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("dashboard: compile schema %s: %w", name, err)
	}
	v.mu.Lock()
	v.compiled[name] = compiled
	v.mu.Unlock()
	return compiled, nil
}

// PanelListSchema is the shape every decoded panelsJSON must satisfy.
var PanelListSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type":     "object",
		"required": []any{"panelIndex", "gridData"},
		"properties": map[string]any{
			"panelIndex":       map[string]any{"type": "string"},
			"type":             map[string]any{"type": "string"},
			"id":               map[string]any{"type": "string"},
			"embeddableConfig": map[string]any{"type": []any{"object", "null"}},
			"gridData": map[string]any{
				"type":     "object",
				"required": []any{"x", "y", "w", "h"},
				"properties": map[string]any{
					"x": map[string]any{"type": "integer", "minimum": 0},
					"y": map[string]any{"type": "integer", "minimum": 0},
					"w": map[string]any{"type": "integer", "minimum": 1},
					"h": map[string]any{"type": "integer", "minimum": 1},
					"i": map[string]any{"type": "string"},
				},
			},
		},
	},
}

type noopSchemaValidator struct{}

func (noopSchemaValidator) Validate(string, map[string]any, any) error { return nil }
