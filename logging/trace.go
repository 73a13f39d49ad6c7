package logging

import (
	"sync"
	"time"
)

// Dispatch stages recorded by the server.
const (
	StageLookup   = "lookup"
	StageValidate = "validate"
	StageInvoke   = "invoke"
	StageCache    = "cache"
	StageResponse = "response"
)

// TraceEvent captures one step of a capability invocation.
type TraceEvent struct {
	Time       time.Time     `json:"time"`
	Stage      string        `json:"stage"`
	Capability string        `json:"capability"`
	Kind       string        `json:"kind"`
	Detail     string        `json:"detail,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	Failed     bool          `json:"failed,omitempty"`
}

// TraceRecorder stores a bounded set of recent trace events.
type TraceRecorder struct {
	limit int
	mu    sync.RWMutex
	buf   []TraceEvent
}

// NewTraceRecorder creates a trace recorder with a fixed buffer size.
func NewTraceRecorder(limit int) *TraceRecorder {
	if limit <= 0 {
		limit = 200
	}
	return &TraceRecorder{limit: limit}
}

// Add records a new trace event. A nil recorder drops the event.
func (tr *TraceRecorder) Add(event TraceEvent) {
	if tr == nil {
		return
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	tr.buf = append(tr.buf, event)
	if len(tr.buf) > tr.limit {
		tr.buf = tr.buf[len(tr.buf)-tr.limit:]
	}
}

// List returns a copy of the current trace buffer in chronological order.
func (tr *TraceRecorder) List() []TraceEvent {
	if tr == nil {
		return nil
	}
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	out := make([]TraceEvent, len(tr.buf))
	copy(out, tr.buf)
	return out
}

// Last returns up to n of the most recent events, oldest first.
func (tr *TraceRecorder) Last(n int) []TraceEvent {
	events := tr.List()
	if n <= 0 || n >= len(events) {
		return events
	}
	return events[len(events)-n:]
}
