package log

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stiprobe/internal/testutil"
)

func TestElapsedHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	clock := testutil.NewStepClock(12 * time.Millisecond)
	logger := New(&buf, "debug", WithClock(clock.Now))

	logger.Info("[orm1] Initializing mapper")
	logger.WithField("entities", 3).Debug("[orm1] discovered")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[2026-01-02T03:04:05.012Z] (+12ms) [orm1] Initializing mapper", lines[0])
	assert.Equal(t, "[2026-01-02T03:04:05.024Z] (+12ms) [orm1] discovered entities=3", lines[1])
}

func TestElapsedHandlerLevelPrefix(t *testing.T) {
	var buf bytes.Buffer
	clock := testutil.NewStepClock(time.Millisecond)
	logger := New(&buf, "info", WithClock(clock.Now))

	logger.Debug("hidden")
	logger.Warn("careful")
	logger.WithError(assert.AnError).Error("failed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN: careful")
	assert.Contains(t, out, "ERROR: failed error="+assert.AnError.Error())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]log.Level{
		"debug":   log.DebugLevel,
		"TRACE":   log.DebugLevel,
		"info":    log.InfoLevel,
		"warn":    log.WarnLevel,
		"error":   log.ErrorLevel,
		"bogus":   log.InfoLevel,
		"":        log.InfoLevel,
		" fatal ": log.FatalLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestResolveLevel(t *testing.T) {
	t.Setenv(EnvVar, "")
	assert.Equal(t, DefaultLevel, ResolveLevel(""))

	t.Setenv(EnvVar, "debug")
	assert.Equal(t, "debug", ResolveLevel(""))
	assert.Equal(t, "warn", ResolveLevel("warn"))
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard().WithField("k", "v").Error("dropped")
	})
}
