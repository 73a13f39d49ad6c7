package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/user/mcp-go-demo/capability"
	"github.com/user/mcp-go-demo/logging"
)

// StatusToolName is the built-in tool reporting server state.
const StatusToolName = "server_status"

// CapabilitySummary is the listing entry for one registered capability.
type CapabilitySummary struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Category    string   `json:"category"`
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	URITemplate string   `json:"uri_template,omitempty"`
	Params      []string `json:"params,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Cacheable   bool     `json:"cacheable,omitempty"`
}

// CapabilityFilter narrows a capability listing. Empty fields match
// everything.
type CapabilityFilter struct {
	Category string `json:"category,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Search   string `json:"search,omitempty"`
}

// StatusReport is the payload of the server_status tool.
type StatusReport struct {
	Server       string               `json:"server"`
	Version      string               `json:"version"`
	Categories   []string             `json:"categories"`
	Capabilities []CapabilitySummary  `json:"capabilities"`
	Stats        StatsSnapshot        `json:"stats"`
	Today        *DailyStats          `json:"today,omitempty"`
	AuditCounts  map[string]int64     `json:"audit_counts,omitempty"`
	CacheEntries int                  `json:"cache_entries"`
	RecentTrace  []logging.TraceEvent `json:"recent_trace,omitempty"`
}

// Summarize lists the capabilities in the registry that pass filter.
func Summarize(registry *capability.Registry, filter CapabilityFilter) []CapabilitySummary {
	descriptors := registry.List()
	if filter.Category != "" {
		descriptors = intersect(descriptors, registry.ByCategory(filter.Category))
	}
	if filter.Tag != "" {
		descriptors = intersect(descriptors, registry.ByTag(filter.Tag))
	}
	if filter.Search != "" {
		descriptors = intersect(descriptors, registry.Search(filter.Search))
	}

	out := make([]CapabilitySummary, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, CapabilitySummary{
			Name:        d.Name,
			Kind:        d.Kind.String(),
			Category:    d.Category,
			Version:     d.Version,
			Description: d.Description,
			URITemplate: d.URITemplate,
			Params:      d.Shape.Names(),
			Tags:        d.Tags,
			Cacheable:   d.Cacheable,
		})
	}
	return out
}

// intersect keeps the entries of a that also appear in b, in a's order.
func intersect(a, b []*capability.Descriptor) []*capability.Descriptor {
	in := make(map[string]bool, len(b))
	for _, d := range b {
		in[d.Name] = true
	}
	var out []*capability.Descriptor
	for _, d := range a {
		if in[d.Name] {
			out = append(out, d)
		}
	}
	return out
}

func statusDescriptor(s *StdioServer) capability.Descriptor {
	return capability.Descriptor{
		Name:        StatusToolName,
		Kind:        capability.KindTool,
		Description: "Report registered capabilities and call statistics",
		Category:    "server",
		Tags:        []string{"server", "status"},
		Shape: capability.Shape{
			{Name: "category", Type: capability.String, Description: "only list capabilities in this category", Optional: true},
			{Name: "tag", Type: capability.String, Description: "only list capabilities carrying this tag", Optional: true},
			{Name: "search", Type: capability.String, Description: "substring of a capability name or description", Optional: true},
		},
		Handler: capability.HandlerFunc(func(ctx context.Context, req capability.Request) (*capability.Response, error) {
			filter := CapabilityFilter{}
			filter.Category, _ = req.Params["category"].(string)
			filter.Tag, _ = req.Params["tag"].(string)
			filter.Search, _ = req.Params["search"].(string)

			report := s.Status(ctx, filter)
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("marshal status: %w", err)
			}
			return capability.TextResponse(string(data)), nil
		}),
	}
}

// Status gathers the server_status report. Expired cache entries are dropped
// first so CacheEntries only counts live results.
func (s *StdioServer) Status(ctx context.Context, filter CapabilityFilter) StatusReport {
	if removed := s.cache.Purge(); removed > 0 {
		s.logger.Debug("purged %d expired cache entries", removed)
	}

	report := StatusReport{
		Server:       s.config.Name,
		Version:      s.config.Version,
		Categories:   s.registry.Categories(),
		Capabilities: Summarize(s.registry, filter),
		Stats:        s.stats.GetStats(),
		Today:        s.stats.GetDailyStats(time.Now().Format("2006-01-02")),
		CacheEntries: s.cache.Len(),
		RecentTrace:  s.trace.Last(20),
	}

	counts, err := s.audit.CountByCapability(ctx)
	if err != nil {
		s.logger.Warn("status: %v", err)
	} else {
		report.AuditCounts = counts
	}
	return report
}
