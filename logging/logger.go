// Package logging provides the leveled stderr logger and the dispatch trace
// buffer shared by the server components.
package logging

import (
	"io"
	"log"
	"os"
	"strings"
)

type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
)

// ParseLevel maps a config string to a LogLevel. Unknown values fall back to info.
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LogDebug
	case "warn", "warning":
		return LogWarn
	case "error":
		return LogError
	default:
		return LogInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LogDebug:
		return "debug"
	case LogWarn:
		return "warn"
	case LogError:
		return "error"
	default:
		return "info"
	}
}

// Logger writes leveled lines to stderr. Stdout belongs to the MCP transport
// and must never be written to.
type Logger struct {
	level  LogLevel
	logger *log.Logger
}

func NewLogger(level string) *Logger {
	return NewLoggerTo(os.Stderr, level)
}

// NewLoggerTo builds a logger writing to w.
func NewLoggerTo(w io.Writer, level string) *Logger {
	return &Logger{
		level:  ParseLevel(level),
		logger: log.New(w, "", log.LstdFlags),
	}
}

// Level reports the configured threshold.
func (l *Logger) Level() LogLevel {
	return l.level
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.level <= LogDebug {
		l.logger.Printf("[DEBUG] "+msg, args...)
	}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	if l.level <= LogInfo {
		l.logger.Printf("[INFO] "+msg, args...)
	}
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.level <= LogWarn {
		l.logger.Printf("[WARN] "+msg, args...)
	}
}

func (l *Logger) Error(msg string, args ...interface{}) {
	if l.level <= LogError {
		l.logger.Printf("[ERROR] "+msg, args...)
	}
}
