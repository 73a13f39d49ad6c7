package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Failure reasons recorded by the dispatcher.
const (
	ReasonUnknown    = "unknown_capability"
	ReasonValidation = "shape_validation"
	ReasonHandler    = "handler_error"
	ReasonTimeout    = "timeout"
)

// StatsTracker counts capability invocations for the server_status tool and
// the shutdown summary.
type StatsTracker struct {
	succeededTotal int64
	failedTotal    int64
	cacheHits      int64
	succeededBy    map[string]int64 // capability -> successful calls
	failedBy       map[string]int64 // capability -> failed calls
	failedByReason map[string]int64

	dailyStats map[string]*DailyStats // YYYY-MM-DD -> stats

	startTime time.Time
	now       func() time.Time
	mu        sync.RWMutex
}

// DailyStats tracks calls for a single day.
type DailyStats struct {
	Date         string           `json:"date"`
	Succeeded    int64            `json:"succeeded"`
	Failed       int64            `json:"failed"`
	Capabilities map[string]int64 `json:"capabilities"`
}

// NewStatsTracker creates a new stats tracker.
func NewStatsTracker() *StatsTracker {
	return &StatsTracker{
		succeededBy:    make(map[string]int64),
		failedBy:       make(map[string]int64),
		failedByReason: make(map[string]int64),
		dailyStats:     make(map[string]*DailyStats),
		startTime:      time.Now(),
		now:            time.Now,
	}
}

// RecordSuccess records a call that produced a normal response.
func (st *StatsTracker) RecordSuccess(name string, cached bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.succeededTotal++
	st.succeededBy[name]++
	if cached {
		st.cacheHits++
	}

	day := st.day()
	day.Succeeded++
	day.Capabilities[name]++
}

// RecordFailure records a call that produced an error response.
func (st *StatsTracker) RecordFailure(name string, reason string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.failedTotal++
	st.failedBy[name]++
	st.failedByReason[reason]++

	day := st.day()
	day.Failed++
	day.Capabilities[name]++
}

// day returns today's bucket. Callers hold st.mu.
func (st *StatsTracker) day() *DailyStats {
	today := st.now().Format("2006-01-02")
	if st.dailyStats[today] == nil {
		st.dailyStats[today] = &DailyStats{
			Date:         today,
			Capabilities: make(map[string]int64),
		}
	}
	return st.dailyStats[today]
}

// GetStats returns the current aggregate statistics.
func (st *StatsTracker) GetStats() StatsSnapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()

	totalCalls := st.succeededTotal + st.failedTotal
	failureRate := 0.0
	if totalCalls > 0 {
		failureRate = float64(st.failedTotal) / float64(totalCalls) * 100
	}

	return StatsSnapshot{
		Timestamp:       st.now().Unix(),
		TotalCalls:      totalCalls,
		Succeeded:       st.succeededTotal,
		Failed:          st.failedTotal,
		CacheHits:       st.cacheHits,
		FailureRate:     failureRate,
		FailedByReason:  copyCounts(st.failedByReason),
		TopCapabilities: topCapabilities(st.succeededBy, st.failedBy, 5),
		Uptime:          st.now().Sub(st.startTime).Seconds(),
	}
}

// GetDailyStats returns stats for a specific day, or nil.
func (st *StatsTracker) GetDailyStats(date string) *DailyStats {
	st.mu.RLock()
	defer st.mu.RUnlock()

	stats, exists := st.dailyStats[date]
	if !exists {
		return nil
	}
	out := *stats
	out.Capabilities = copyCounts(stats.Capabilities)
	return &out
}

// Summary renders a one-line summary for the shutdown log.
func (st *StatsTracker) Summary() string {
	stats := st.GetStats()
	parts := []string{fmt.Sprintf("%d calls, %d failed", stats.TotalCalls, stats.Failed)}
	if stats.CacheHits > 0 {
		parts = append(parts, fmt.Sprintf("%d cache hits", stats.CacheHits))
	}
	return strings.Join(parts, ", ")
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func topCapabilities(succeeded, failed map[string]int64, limit int) []CapabilityStat {
	byName := make(map[string]*CapabilityStat)
	for name, count := range succeeded {
		byName[name] = &CapabilityStat{Name: name, Succeeded: count}
	}
	for name, count := range failed {
		if byName[name] == nil {
			byName[name] = &CapabilityStat{Name: name}
		}
		byName[name].Failed = count
	}

	out := make([]CapabilityStat, 0, len(byName))
	for _, s := range byName {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].Succeeded+out[i].Failed, out[j].Succeeded+out[j].Failed
		if ti != tj {
			return ti > tj
		}
		return out[i].Name < out[j].Name
	})

	if len(out) > limit {
		return out[:limit]
	}
	return out
}

// StatsSnapshot represents a snapshot of current statistics.
type StatsSnapshot struct {
	Timestamp       int64            `json:"timestamp"`
	TotalCalls      int64            `json:"total_calls"`
	Succeeded       int64            `json:"succeeded"`
	Failed          int64            `json:"failed"`
	CacheHits       int64            `json:"cache_hits"`
	FailureRate     float64          `json:"failure_rate"`
	FailedByReason  map[string]int64 `json:"failed_by_reason"`
	TopCapabilities []CapabilityStat `json:"top_capabilities"`
	Uptime          float64          `json:"uptime_seconds"`
}

// CapabilityStat counts calls for a single capability.
type CapabilityStat struct {
	Name      string `json:"name"`
	Succeeded int64  `json:"succeeded"`
	Failed    int64  `json:"failed"`
}
