// Package logging sets up the leveled subsystem loggers used across the service.
package logging

import (
	"os"
	"strings"

	"github.com/decred/slog"
)

// Subsystem tags.
const (
	HTTP        = "HTTP"
	Ledger      = "LDGR"
	Tournament  = "TRNY"
	Withdrawal  = "WDRL"
	Settlement  = "STLM"
	Users       = "USER"
	Support     = "SUPT"
	Workers     = "WRKR"
	Notify      = "NTFY"
	Storage     = "STOR"
	Application = "MAIN"
)

// Loggers hands out one logger per subsystem, all sharing a backend and level.
type Loggers struct {
	backend *slog.Backend
	level   slog.Level
	loggers map[string]slog.Logger
}

// New builds the backend writing to stdout at the given level ("debug", "info", ...).
// Unknown levels fall back to info.
func New(level string) *Loggers {
	return &Loggers{
		backend: slog.NewBackend(os.Stdout),
		level:   ParseLevel(level),
		loggers: make(map[string]slog.Logger),
	}
}

// Logger returns the logger for tag, creating it on first use.
func (l *Loggers) Logger(tag string) slog.Logger {
	if lg, ok := l.loggers[tag]; ok {
		return lg
	}
	lg := l.backend.Logger(tag)
	lg.SetLevel(l.level)
	l.loggers[tag] = lg
	return lg
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "debug":
		return slog.LevelDebug
	case "trace":
		return slog.LevelTrace
	default:
		return slog.LevelInfo
	}
}
