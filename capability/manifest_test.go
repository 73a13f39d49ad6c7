package capability

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testManifest = `
capabilities:
  add:
    timeout: 2s
    tags: [math]
  get_weather_forecast:
    cacheable: true
    cache_ttl: 10m
    category: forecasts
  greeting:
    enabled: false
  retired_tool:
    description: no longer shipped
`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(testManifest))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(m.Capabilities) != 4 {
		t.Fatalf("expected 4 overrides, got %d", len(m.Capabilities))
	}

	add, ok := m.Apply(makeTool("add"))
	if !ok {
		t.Fatal("expected add enabled")
	}
	if add.Timeout != 2*time.Second {
		t.Errorf("expected 2s timeout, got %v", add.Timeout)
	}
	if len(add.Tags) != 1 || add.Tags[0] != "math" {
		t.Errorf("unexpected tags %v", add.Tags)
	}

	weather, _ := m.Apply(makeTool("get_weather_forecast"))
	if !weather.Cacheable || weather.CacheTTL != 10*time.Minute {
		t.Errorf("expected cache override, got cacheable=%v ttl=%v", weather.Cacheable, weather.CacheTTL)
	}
	if weather.Category != "forecasts" {
		t.Errorf("expected category override, got %q", weather.Category)
	}

	if _, ok := m.Apply(makeGreeting()); ok {
		t.Error("expected greeting disabled")
	}

	untouched, ok := m.Apply(makeTool("other"))
	if !ok || untouched.Description != "tool other" {
		t.Errorf("expected descriptor without override untouched, got %+v", untouched)
	}
}

func TestParseManifestRejectsNegativeDurations(t *testing.T) {
	if _, err := ParseManifest([]byte("capabilities:\n  add:\n    timeout: -1s\n")); err == nil {
		t.Error("expected negative timeout to be rejected")
	}
	if _, err := ParseManifest([]byte("capabilities: [")); err == nil {
		t.Error("expected malformed YAML to be rejected")
	}
}

func TestLoadManifest(t *testing.T) {
	m, err := LoadManifest("")
	if err != nil || m == nil || len(m.Capabilities) != 0 {
		t.Fatalf("expected empty manifest for empty path, got %+v, %v", m, err)
	}

	path := filepath.Join(t.TempDir(), "capabilities.yaml")
	if err := os.WriteFile(path, []byte(testManifest), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err = LoadManifest(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(m.Capabilities) != 4 {
		t.Errorf("expected 4 overrides, got %d", len(m.Capabilities))
	}

	if _, err := LoadManifest(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestManifestUnknown(t *testing.T) {
	m, err := ParseManifest([]byte(testManifest))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	unknown := m.Unknown([]Descriptor{makeTool("add"), makeTool("get_weather_forecast"), makeGreeting()})
	if len(unknown) != 1 || unknown[0] != "retired_tool" {
		t.Errorf("unexpected unknown overrides: %v", unknown)
	}
}

func TestRegisterAll(t *testing.T) {
	m, err := ParseManifest([]byte(testManifest))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	r := NewRegistry()
	skipped, err := r.RegisterAll(m, makeTool("add"), makeGreeting())
	if err != nil {
		t.Fatalf("register all: %v", err)
	}
	if len(skipped) != 1 || skipped[0] != "greeting" {
		t.Errorf("expected greeting skipped, got %v", skipped)
	}
	if !r.Has("add") || r.Has("greeting") {
		t.Errorf("unexpected registry contents")
	}

	if _, err := r.RegisterAll(nil, makeTool("add")); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestEffectiveCacheTTL(t *testing.T) {
	d := makeTool("x")
	if d.EffectiveCacheTTL() != 0 {
		t.Errorf("expected zero TTL for non-cacheable descriptor")
	}
	d.Cacheable = true
	if d.EffectiveCacheTTL() != DefaultCacheTTL {
		t.Errorf("expected default TTL, got %v", d.EffectiveCacheTTL())
	}
	d.CacheTTL = time.Minute
	if d.EffectiveCacheTTL() != time.Minute {
		t.Errorf("expected explicit TTL, got %v", d.EffectiveCacheTTL())
	}
}
