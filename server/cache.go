package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/user/mcp-go-demo/capability"
)

// ResultCache keeps successful responses of cacheable capabilities, keyed by
// capability name and params.
type ResultCache struct {
	entries map[string]cacheEntry
	now     func() time.Time
	mu      sync.Mutex
}

type cacheEntry struct {
	resp    *capability.Response
	expires time.Time
}

// NewResultCache creates an empty cache.
func NewResultCache() *ResultCache {
	return &ResultCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func cacheKey(name string, params map[string]any) (string, bool) {
	// encoding/json sorts map keys, so equal params give equal keys.
	data, err := json.Marshal(params)
	if err != nil {
		return "", false
	}
	return name + "\x00" + string(data), true
}

// Get returns a cached response for d and params if one is still fresh.
func (c *ResultCache) Get(d *capability.Descriptor, params map[string]any) (*capability.Response, bool) {
	if c == nil || !d.Cacheable {
		return nil, false
	}
	key, ok := cacheKey(d.Name, params)
	if !ok {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}
	if !c.now().Before(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return copyResponse(entry.resp), true
}

// Put stores resp for d and params. Error responses are never cached.
func (c *ResultCache) Put(d *capability.Descriptor, params map[string]any, resp *capability.Response) {
	if c == nil || !d.Cacheable || resp == nil || resp.IsError {
		return
	}
	key, ok := cacheKey(d.Name, params)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		resp:    copyResponse(resp),
		expires: c.now().Add(d.EffectiveCacheTTL()),
	}
}

// Len returns the number of stored entries, fresh or not.
func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Purge drops expired entries and returns how many were removed.
func (c *ResultCache) Purge() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expires) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func copyResponse(resp *capability.Response) *capability.Response {
	out := *resp
	out.Content = append([]capability.Content(nil), resp.Content...)
	return &out
}
