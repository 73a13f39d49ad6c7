package capability

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest carries per-capability overrides loaded from a YAML file:
//
//	capabilities:
//	  get_weather_forecast:
//	    cacheable: true
//	    cache_ttl: 10m
//	  add:
//	    timeout: ${ADD_TIMEOUT:-2s}
type Manifest struct {
	Capabilities map[string]Override `yaml:"capabilities"`
}

// Override replaces descriptor metadata. Nil fields are left untouched.
type Override struct {
	Enabled     *bool          `yaml:"enabled"`
	Description *string        `yaml:"description"`
	Category    *string        `yaml:"category"`
	Tags        []string       `yaml:"tags"`
	Timeout     *time.Duration `yaml:"timeout"`
	Cacheable   *bool          `yaml:"cacheable"`
	CacheTTL    *time.Duration `yaml:"cache_ttl"`
}

// LoadManifest reads a manifest from path. An empty path yields an empty manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return &Manifest{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifestWithEnv(data, os.Getenv)
}

// ParseManifest decodes YAML manifest bytes without environment expansion.
func ParseManifest(data []byte) (*Manifest, error) {
	return ParseManifestWithEnv(data, nil)
}

// ParseManifestWithEnv expands ${VAR} and ${VAR:-default} references through
// lookup, then decodes the YAML. A nil lookup leaves the text untouched.
func ParseManifestWithEnv(data []byte, lookup func(string) string) (*Manifest, error) {
	if lookup != nil {
		data = []byte(expandEnv(string(data), lookup))
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	for name, o := range m.Capabilities {
		if o.Timeout != nil && *o.Timeout < 0 {
			return nil, fmt.Errorf("manifest: %s: timeout must not be negative", name)
		}
		if o.CacheTTL != nil && *o.CacheTTL < 0 {
			return nil, fmt.Errorf("manifest: %s: cache_ttl must not be negative", name)
		}
	}
	return &m, nil
}

// Apply returns d with the override for d.Name applied and whether the
// capability stays enabled.
func (m *Manifest) Apply(d Descriptor) (Descriptor, bool) {
	if m == nil {
		return d, true
	}
	o, ok := m.Capabilities[d.Name]
	if !ok {
		return d, true
	}
	if o.Description != nil {
		d.Description = *o.Description
	}
	if o.Category != nil {
		d.Category = *o.Category
	}
	if o.Tags != nil {
		d.Tags = append([]string(nil), o.Tags...)
	}
	if o.Timeout != nil {
		d.Timeout = *o.Timeout
	}
	if o.Cacheable != nil {
		d.Cacheable = *o.Cacheable
	}
	if o.CacheTTL != nil {
		d.CacheTTL = *o.CacheTTL
	}
	enabled := o.Enabled == nil || *o.Enabled
	return d, enabled
}

// Unknown lists override names that match none of the given descriptors.
func (m *Manifest) Unknown(descriptors []Descriptor) []string {
	if m == nil {
		return nil
	}
	known := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		known[d.Name] = true
	}
	var out []string
	for name := range m.Capabilities {
		if !known[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// RegisterAll applies the manifest to each descriptor and registers the
// enabled ones, stopping at the first registration error. It returns the
// names that were skipped because they are disabled.
func (r *Registry) RegisterAll(m *Manifest, descriptors ...Descriptor) ([]string, error) {
	var skipped []string
	for _, d := range descriptors {
		d, enabled := m.Apply(d)
		if !enabled {
			skipped = append(skipped, d.Name)
			continue
		}
		if err := r.Register(d); err != nil {
			return skipped, err
		}
	}
	return skipped, nil
}
