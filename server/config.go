package server

import (
	"database/sql"
	"io"
	"time"
)

// Config configures the stdio server.
type Config struct {
	Name         string
	Version      string
	LogLevel     string
	DBPath       string
	// DB, when set, is used instead of opening DBPath. The server takes
	// ownership and closes it.
	DB           *sql.DB
	ManifestPath string
	CallTimeout  time.Duration
	TraceLimit   int

	// LogOutput receives log lines. Nil means stderr.
	LogOutput io.Writer
}

const (
	DefaultName        = "mcp-go-demo"
	DefaultVersion     = "1.0.0"
	DefaultCallTimeout = 30 * time.Second
)

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.CallTimeout < 0 {
		c.CallTimeout = 0
	}
	if c.TraceLimit <= 0 {
		c.TraceLimit = 200
	}
	return c
}
