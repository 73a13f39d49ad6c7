package server

import (
	"testing"
	"time"

	"github.com/user/mcp-go-demo/capability"
)

func TestResultCacheExpiry(t *testing.T) {
	c := NewResultCache()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	d := &capability.Descriptor{Name: "forecast", Cacheable: true, CacheTTL: time.Minute}
	params := map[string]any{"lat": 1.0, "lon": 2.0}

	c.Put(d, params, capability.TextResponse("sunny"))
	if resp, ok := c.Get(d, map[string]any{"lon": 2.0, "lat": 1.0}); !ok || resp.Text() != "sunny" {
		t.Fatalf("expected cache hit regardless of key order, got %v %v", resp, ok)
	}

	now = now.Add(time.Minute)
	if _, ok := c.Get(d, params); ok {
		t.Error("expected entry to expire after its TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry to be dropped, have %d", c.Len())
	}
}

func TestResultCacheSkipsNonCacheable(t *testing.T) {
	c := NewResultCache()
	d := &capability.Descriptor{Name: "add"}

	c.Put(d, nil, capability.TextResponse("5"))
	if c.Len() != 0 {
		t.Error("expected non-cacheable descriptor not to be stored")
	}

	cacheable := &capability.Descriptor{Name: "forecast", Cacheable: true}
	c.Put(cacheable, nil, capability.ErrorResponse(errTestHandler))
	if c.Len() != 0 {
		t.Error("expected error responses not to be stored")
	}
}

func TestResultCacheReturnsCopies(t *testing.T) {
	c := NewResultCache()
	d := &capability.Descriptor{Name: "forecast", Cacheable: true}

	c.Put(d, nil, capability.TextResponse("sunny"))
	first, _ := c.Get(d, nil)
	first.Content[0].Text = "mutated"

	second, _ := c.Get(d, nil)
	if second.Text() != "sunny" {
		t.Errorf("expected cached response to be isolated, got %s", second.Text())
	}
}

func TestResultCachePurge(t *testing.T) {
	c := NewResultCache()
	now := time.Now()
	c.now = func() time.Time { return now }

	short := &capability.Descriptor{Name: "short", Cacheable: true, CacheTTL: time.Second}
	long := &capability.Descriptor{Name: "long", Cacheable: true, CacheTTL: time.Hour}
	c.Put(short, nil, capability.TextResponse("a"))
	c.Put(long, nil, capability.TextResponse("b"))

	now = now.Add(time.Minute)
	if removed := c.Purge(); removed != 1 {
		t.Errorf("expected one expired entry purged, got %d", removed)
	}
	if c.Len() != 1 {
		t.Errorf("expected one entry left, got %d", c.Len())
	}
}

func TestResultCacheNil(t *testing.T) {
	var c *ResultCache
	d := &capability.Descriptor{Name: "forecast", Cacheable: true}
	c.Put(d, nil, capability.TextResponse("x"))
	if _, ok := c.Get(d, nil); ok {
		t.Error("expected nil cache to miss")
	}
	if c.Len() != 0 || c.Purge() != 0 {
		t.Error("expected nil cache to be empty")
	}
}
