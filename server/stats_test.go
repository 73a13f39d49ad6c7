package server

import (
	"strings"
	"testing"
	"time"
)

func TestStatsTrackerCounts(t *testing.T) {
	st := NewStatsTracker()
	st.RecordSuccess("add", false)
	st.RecordSuccess("add", false)
	st.RecordSuccess("get_weather_forecast", true)
	st.RecordFailure("add", ReasonValidation)
	st.RecordFailure("subtract", ReasonUnknown)

	stats := st.GetStats()
	if stats.TotalCalls != 5 {
		t.Errorf("expected 5 calls, got %d", stats.TotalCalls)
	}
	if stats.Succeeded != 3 || stats.Failed != 2 {
		t.Errorf("expected 3/2 split, got %d/%d", stats.Succeeded, stats.Failed)
	}
	if stats.CacheHits != 1 {
		t.Errorf("expected 1 cache hit, got %d", stats.CacheHits)
	}
	if stats.FailureRate < 39.99 || stats.FailureRate > 40.01 {
		t.Errorf("expected 40%% failure rate, got %v", stats.FailureRate)
	}
	if stats.FailedByReason[ReasonUnknown] != 1 || stats.FailedByReason[ReasonValidation] != 1 {
		t.Errorf("unexpected failure reasons: %v", stats.FailedByReason)
	}

	top := stats.TopCapabilities
	if len(top) != 3 {
		t.Fatalf("expected 3 capabilities, got %d", len(top))
	}
	if top[0].Name != "add" || top[0].Succeeded != 2 || top[0].Failed != 1 {
		t.Errorf("expected add first, got %+v", top[0])
	}
	if top[1].Name != "get_weather_forecast" || top[2].Name != "subtract" {
		t.Errorf("expected ties broken by name, got %+v", top)
	}
}

func TestStatsTrackerDaily(t *testing.T) {
	st := NewStatsTracker()
	day := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return day }

	st.RecordSuccess("add", false)
	st.RecordFailure("add", ReasonHandler)

	daily := st.GetDailyStats("2025-03-14")
	if daily == nil {
		t.Fatal("expected daily stats")
	}
	if daily.Succeeded != 1 || daily.Failed != 1 || daily.Capabilities["add"] != 2 {
		t.Errorf("unexpected daily stats: %+v", daily)
	}
	if st.GetDailyStats("2025-03-15") != nil {
		t.Error("expected no stats for another day")
	}
}

func TestStatsTrackerSummary(t *testing.T) {
	st := NewStatsTracker()
	if got := st.Summary(); got != "0 calls, 0 failed" {
		t.Errorf("unexpected empty summary %q", got)
	}

	st.RecordSuccess("get_weather_forecast", true)
	st.RecordFailure("add", ReasonTimeout)
	if got := st.Summary(); !strings.Contains(got, "2 calls, 1 failed") || !strings.Contains(got, "1 cache hits") {
		t.Errorf("unexpected summary %q", got)
	}
}
