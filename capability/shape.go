package capability

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"
)

// ParamType is a primitive JSON type accepted as a capability parameter.
type ParamType string

const (
	Number  ParamType = "number"
	Integer ParamType = "integer"
	String  ParamType = "string"
	Boolean ParamType = "boolean"
)

func (t ParamType) valid() bool {
	switch t {
	case Number, Integer, String, Boolean:
		return true
	}
	return false
}

// Param declares one named parameter.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Optional    bool

	// MinLength is the minimum length of a String param. Zero means no bound.
	MinLength int
}

// Shape is the declared input of a capability. Undeclared params are ignored
// rather than rejected.
type Shape []Param

// Schema renders the shape as a JSON Schema object.
func (s Shape) Schema() *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(s)),
	}
	for _, p := range s {
		prop := &jsonschema.Schema{
			Type:        string(p.Type),
			Description: p.Description,
		}
		if p.Type == String && p.MinLength > 0 {
			minLength := p.MinLength
			prop.MinLength = &minLength
		}
		schema.Properties[p.Name] = prop
		if !p.Optional {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	sort.Strings(schema.Required)
	return schema
}

// Names lists the declared parameter names in declaration order.
func (s Shape) Names() []string {
	names := make([]string, 0, len(s))
	for _, p := range s {
		names = append(names, p.Name)
	}
	return names
}

func (s Shape) check() error {
	seen := make(map[string]bool, len(s))
	for _, p := range s {
		if p.Name == "" {
			return fmt.Errorf("parameter name is empty")
		}
		if seen[p.Name] {
			return fmt.Errorf("parameter %q declared twice", p.Name)
		}
		seen[p.Name] = true
		if !p.Type.valid() {
			return fmt.Errorf("parameter %q has unsupported type %q", p.Name, p.Type)
		}
		if p.MinLength < 0 || (p.MinLength > 0 && p.Type != String) {
			return fmt.Errorf("parameter %q: min length only applies to strings", p.Name)
		}
	}
	return nil
}

// Validator checks request params against a compiled shape.
type Validator struct {
	capability string
	resolved   *jsonschema.Resolved
}

// Compile resolves the shape's schema once so requests can be validated
// without re-resolving.
func (s Shape) Compile(capability string) (*Validator, error) {
	if err := s.check(); err != nil {
		return nil, fmt.Errorf("shape for %s: %w", capability, err)
	}
	resolved, err := s.Schema().Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve schema for %s: %w", capability, err)
	}
	return &Validator{capability: capability, resolved: resolved}, nil
}

// Validate returns a *ShapeValidationError when params do not fit the shape.
func (v *Validator) Validate(params map[string]any) error {
	if params == nil {
		params = map[string]any{}
	}
	if err := v.resolved.Validate(params); err != nil {
		return &ShapeValidationError{Capability: v.capability, Err: err}
	}
	return nil
}

// Normalize round-trips params through JSON so handlers and the validator
// only ever see JSON value types (float64, string, bool, nil, maps, slices).
func Normalize(params map[string]any) (map[string]any, error) {
	if len(params) == 0 {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	out := make(map[string]any, len(params))
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	return out, nil
}
