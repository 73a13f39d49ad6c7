package server

import (
	"context"
	"testing"
	"time"
)

func TestAuditLogRecordAndRecent(t *testing.T) {
	audit := newTestAuditLog(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"add", "greeting", "add"} {
		inv, err := audit.Record(ctx, Invocation{
			Capability: name,
			Kind:       "tool",
			Outcome:    OutcomeOK,
			Duration:   time.Duration(i+1) * time.Millisecond,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		if inv.ID == "" {
			t.Error("expected generated ID")
		}
	}

	recent, err := audit.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 invocations, got %d", len(recent))
	}
	if recent[0].Capability != "add" || !recent[0].CreatedAt.Equal(base.Add(2*time.Second)) {
		t.Errorf("expected newest first, got %+v", recent[0])
	}
	if recent[0].Duration != 3*time.Millisecond {
		t.Errorf("expected duration round trip, got %v", recent[0].Duration)
	}
	if recent[1].Capability != "greeting" {
		t.Errorf("expected greeting second, got %s", recent[1].Capability)
	}

	counts, err := audit.CountByCapability(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts["add"] != 2 || counts["greeting"] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestAuditLogErrorFields(t *testing.T) {
	audit := newTestAuditLog(t)
	ctx := context.Background()

	_, err := audit.Record(ctx, Invocation{
		Capability: "greeting",
		Kind:       "resource",
		URI:        "greeting://World",
		Params:     `{"name":"World"}`,
		Outcome:    OutcomeError,
		Reason:     ReasonHandler,
		Error:      "greeting failed: boom",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	recent, err := audit.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected one invocation, got %d", len(recent))
	}
	got := recent[0]
	if got.URI != "greeting://World" || got.Params != `{"name":"World"}` || got.Reason != ReasonHandler || got.Error != "greeting failed: boom" {
		t.Errorf("unexpected invocation: %+v", got)
	}
}

func TestOpenDBPersists(t *testing.T) {
	path := testDBPath(t)
	ctx := context.Background()

	db, err := OpenDB(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	audit, err := NewAuditLog(db)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if _, err := audit.Record(ctx, Invocation{Capability: "add", Kind: "tool", Outcome: OutcomeOK}); err != nil {
		t.Fatalf("record: %v", err)
	}
	db.Close()

	db, err = OpenDB(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	audit, err = NewAuditLog(db)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	recent, err := audit.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 {
		t.Errorf("expected invocation to survive reopen, got %d", len(recent))
	}
}

func TestOpenDBInMemoryIsPrivate(t *testing.T) {
	ctx := context.Background()

	first, err := OpenDB("")
	if err != nil {
		t.Fatalf("open first: %v", err)
	}
	defer first.Close()
	second, err := OpenDB("")
	if err != nil {
		t.Fatalf("open second: %v", err)
	}
	defer second.Close()

	firstLog, err := NewAuditLog(first)
	if err != nil {
		t.Fatalf("audit first: %v", err)
	}
	secondLog, err := NewAuditLog(second)
	if err != nil {
		t.Fatalf("audit second: %v", err)
	}

	if _, err := firstLog.Record(ctx, Invocation{Capability: "add", Kind: "tool", Outcome: OutcomeOK}); err != nil {
		t.Fatalf("record: %v", err)
	}

	if recent, err := firstLog.Recent(ctx, 10); err != nil || len(recent) != 1 {
		t.Errorf("expected one invocation in the first database, got %d (%v)", len(recent), err)
	}
	if recent, err := secondLog.Recent(ctx, 10); err != nil || len(recent) != 0 {
		t.Errorf("expected the second database to be empty, got %d (%v)", len(recent), err)
	}
}
