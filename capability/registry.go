package capability

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry maps capability names to their descriptors. Entries are added at
// startup and never replaced.
type Registry struct {
	descriptors map[string]*Descriptor
	validators  map[string]*Validator
	resources   []string // resource capability names in registration order
	mu          sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[string]*Descriptor),
		validators:  make(map[string]*Validator),
	}
}

// Register adds d under d.Name. It fails with *DuplicateCapabilityError if the
// name is taken.
func (r *Registry) Register(d Descriptor) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("capability name is empty")
	}
	if d.Handler == nil {
		return fmt.Errorf("capability %s has no handler", d.Name)
	}

	validator, err := d.Shape.Compile(d.Name)
	if err != nil {
		return err
	}

	if d.Kind == KindResource {
		tmpl, err := ParseTemplate(d.URITemplate)
		if err != nil {
			return fmt.Errorf("capability %s: %w", d.Name, err)
		}
		for _, name := range tmpl.Variables() {
			if !containsParam(d.Shape, name) {
				return fmt.Errorf("capability %s: template variable %q is not declared in its shape", d.Name, name)
			}
		}
		d.template = tmpl
	}
	if d.Category == "" {
		d.Category = "general"
	}
	if d.Version == "" {
		d.Version = "1.0"
	}
	d.Tags = append([]string(nil), d.Tags...)
	d.Shape = append(Shape(nil), d.Shape...)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[d.Name]; exists {
		return &DuplicateCapabilityError{Name: d.Name}
	}

	r.descriptors[d.Name] = &d
	r.validators[d.Name] = validator
	if d.Kind == KindResource {
		r.resources = append(r.resources, d.Name)
	}
	return nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, exists := r.descriptors[name]
	if !exists {
		return nil, &UnknownCapabilityError{Name: name}
	}
	return d, nil
}

// Validator returns the compiled shape validator for name.
func (r *Registry) Validator(name string) (*Validator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, exists := r.validators[name]
	if !exists {
		return nil, &UnknownCapabilityError{Name: name}
	}
	return v, nil
}

// MatchURI finds the resource capability whose template matches uri and
// returns the extracted template variables. Templates are tried in
// registration order.
func (r *Registry) MatchURI(uri string) (*Descriptor, map[string]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.resources {
		d := r.descriptors[name]
		if params, ok := d.template.Match(uri); ok {
			return d, params, nil
		}
	}
	return nil, nil, &UnknownCapabilityError{URI: uri}
}

// List returns every descriptor sorted by name.
func (r *Registry) List() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ByCategory returns the descriptors in category, sorted by name.
func (r *Registry) ByCategory(category string) []*Descriptor {
	var out []*Descriptor
	for _, d := range r.List() {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// ByTag returns the descriptors carrying tag, sorted by name.
func (r *Registry) ByTag(tag string) []*Descriptor {
	var out []*Descriptor
	for _, d := range r.List() {
		if d.HasTag(tag) {
			out = append(out, d)
		}
	}
	return out
}

// Categories returns the distinct categories in use, sorted.
func (r *Registry) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, d := range r.List() {
		if !seen[d.Category] {
			seen[d.Category] = true
			out = append(out, d.Category)
		}
	}
	sort.Strings(out)
	return out
}

// Search matches pattern case-insensitively against names and descriptions.
func (r *Registry) Search(pattern string) []*Descriptor {
	pattern = strings.ToLower(pattern)
	var out []*Descriptor
	for _, d := range r.List() {
		if strings.Contains(strings.ToLower(d.Name), pattern) ||
			strings.Contains(strings.ToLower(d.Description), pattern) {
			out = append(out, d)
		}
	}
	return out
}

// Count returns the number of registered capabilities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.descriptors)
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.descriptors[name]
	return exists
}

func containsParam(s Shape, name string) bool {
	for _, p := range s {
		if p.Name == name {
			return true
		}
	}
	return false
}
