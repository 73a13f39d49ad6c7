package server

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// OpenDB opens the sqlite database at dbPath, or a private in-memory database
// when dbPath is empty, and makes sure the schema exists.
func OpenDB(dbPath string) (*sql.DB, error) {
	var db *sql.DB
	var err error

	if dbPath != "" {
		db, err = sql.Open("sqlite", "file:"+dbPath)
	} else {
		// Each in-memory database gets its own name so separate opens never share tables.
		db, err = sql.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initDBSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init database schema: %w", err)
	}

	return db, nil
}

func initDBSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS invocations (
		id TEXT PRIMARY KEY,
		capability TEXT NOT NULL,
		kind TEXT NOT NULL,
		uri TEXT,
		params TEXT,
		outcome TEXT NOT NULL,
		reason TEXT,
		error TEXT,
		duration_us INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_invocations_created_at ON invocations(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Invocation outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Invocation is one audited capability call.
type Invocation struct {
	ID         string        `json:"id"`
	Capability string        `json:"capability"`
	Kind       string        `json:"kind"`
	URI        string        `json:"uri,omitempty"`
	Params     string        `json:"params,omitempty"`
	Outcome    string        `json:"outcome"`
	Reason     string        `json:"reason,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	CreatedAt  time.Time     `json:"created_at"`
}

// AuditLog persists invocations to sqlite.
type AuditLog struct {
	db *sql.DB
}

// NewAuditLog wraps db, creating the invocations table if needed.
func NewAuditLog(db *sql.DB) (*AuditLog, error) {
	if err := initDBSchema(db); err != nil {
		return nil, fmt.Errorf("failed to ensure audit schema: %w", err)
	}
	return &AuditLog{db: db}, nil
}

// Record stores inv, assigning an ID and timestamp when missing.
func (a *AuditLog) Record(ctx context.Context, inv Invocation) (Invocation, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now()
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO invocations (id, capability, kind, uri, params, outcome, reason, error, duration_us, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Capability, inv.Kind, inv.URI, inv.Params, inv.Outcome, inv.Reason, inv.Error,
		inv.Duration.Microseconds(), inv.CreatedAt.UnixNano(),
	)
	if err != nil {
		return inv, fmt.Errorf("failed to record invocation: %w", err)
	}
	return inv, nil
}

// Recent returns up to limit invocations, newest first.
func (a *AuditLog) Recent(ctx context.Context, limit int) ([]Invocation, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, capability, kind, COALESCE(uri, ''), COALESCE(params, ''), outcome,
		       COALESCE(reason, ''), COALESCE(error, ''), duration_us, created_at
		FROM invocations
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query invocations: %w", err)
	}
	defer rows.Close()

	var out []Invocation
	for rows.Next() {
		var inv Invocation
		var durationUS, createdAt int64
		if err := rows.Scan(&inv.ID, &inv.Capability, &inv.Kind, &inv.URI, &inv.Params, &inv.Outcome,
			&inv.Reason, &inv.Error, &durationUS, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		inv.Duration = time.Duration(durationUS) * time.Microsecond
		inv.CreatedAt = time.Unix(0, createdAt)
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invocations: %w", err)
	}
	return out, nil
}

// CountByCapability returns the number of audited calls per capability.
func (a *AuditLog) CountByCapability(ctx context.Context) (map[string]int64, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT capability, COUNT(*) FROM invocations GROUP BY capability`)
	if err != nil {
		return nil, fmt.Errorf("failed to count invocations: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var name string
		var n int64
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("failed to scan invocation count: %w", err)
		}
		counts[name] = n
	}
	return counts, rows.Err()
}
