package logging

import (
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestLoggerIsCachedPerTag(t *testing.T) {
	l := New("warn")
	a := l.Logger(Ledger)
	b := l.Logger(Ledger)
	assert.Same(t, a, b)
	assert.Equal(t, slog.LevelWarn, a.Level())
}
