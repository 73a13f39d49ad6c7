package capability

import (
	"fmt"

	"github.com/yosida95/uritemplate/v3"
)

// Template matches resource URIs such as greeting://World against an
// RFC 6570 template such as greeting://{name}.
type Template struct {
	raw  string
	tmpl *uritemplate.Template
}

// ParseTemplate compiles a URI template.
func ParseTemplate(raw string) (*Template, error) {
	if raw == "" {
		return nil, fmt.Errorf("uri template is empty")
	}
	tmpl, err := uritemplate.New(raw)
	if err != nil {
		return nil, fmt.Errorf("parse uri template %q: %w", raw, err)
	}
	return &Template{raw: raw, tmpl: tmpl}, nil
}

func (t *Template) String() string {
	return t.raw
}

// Variables lists the template's variable names.
func (t *Template) Variables() []string {
	return t.tmpl.Varnames()
}

// Match extracts the template variables from uri. The boolean is false when
// uri does not fit the template.
func (t *Template) Match(uri string) (map[string]any, bool) {
	values := t.tmpl.Match(uri)
	if values == nil {
		return nil, false
	}
	params := make(map[string]any, len(values))
	for _, name := range t.tmpl.Varnames() {
		v := values.Get(name)
		if !v.Valid() {
			continue
		}
		params[name] = v.String()
	}
	return params, true
}

// Expand renders the template with the given variables.
func (t *Template) Expand(vars map[string]string) (string, error) {
	values := uritemplate.Values{}
	for k, v := range vars {
		values.Set(k, uritemplate.String(v))
	}
	return t.tmpl.Expand(values)
}
