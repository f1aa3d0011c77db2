// Package log configures apex/log for stiprobe.
//
// Every line carries a UTC timestamp and the time elapsed since the previous
// line, which is how mapper startup and teardown costs show up in a run:
//
//	[2026-10-18T09:30:00.120Z] (+12ms) [orm1] Refreshing database schema
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
)

// EnvVar is consulted when no explicit level is configured.
const EnvVar = "STIPROBE_LOG"

// DefaultLevel is used when neither a flag nor EnvVar sets a level.
const DefaultLevel = "info"

// ParseLevel maps a level name to an apex level. "trace" is an alias for
// debug. Unknown names fall back to info.
func ParseLevel(name string) log.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "trace" {
		return log.DebugLevel
	}
	lvl, err := log.ParseLevel(name)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// ResolveLevel returns flagLevel, or EnvVar when the flag is empty, or
// DefaultLevel.
func ResolveLevel(flagLevel string) string {
	if flagLevel != "" {
		return flagLevel
	}
	if env := os.Getenv(EnvVar); env != "" {
		return env
	}
	return DefaultLevel
}

// New returns a logger writing elapsed-time lines to w.
func New(w io.Writer, level string, opts ...Option) *log.Logger {
	return &log.Logger{
		Handler: NewElapsedHandler(w, opts...),
		Level:   ParseLevel(level),
	}
}

// Discard returns a logger that drops everything. Used by tests and by
// library callers that pass no logger.
func Discard() log.Interface {
	return &log.Logger{Handler: discard.New(), Level: log.FatalLevel}
}

// Option customises an ElapsedHandler.
type Option func(*ElapsedHandler)

// WithClock replaces time.Now. Tests use a deterministic clock.
func WithClock(now func() time.Time) Option {
	return func(h *ElapsedHandler) { h.now = now }
}

// ElapsedHandler writes one line per entry with the delta to the previous
// entry in milliseconds. Safe for concurrent use.
type ElapsedHandler struct {
	mu   sync.Mutex
	w    io.Writer
	now  func() time.Time
	last time.Time
}

// NewElapsedHandler creates a handler. The first line's delta is measured
// from handler creation.
func NewElapsedHandler(w io.Writer, opts ...Option) *ElapsedHandler {
	h := &ElapsedHandler{w: w, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	h.last = h.now()
	return h
}

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// HandleLog implements log.Handler.
func (h *ElapsedHandler) HandleLog(e *log.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	delta := now.Sub(h.last).Milliseconds()
	h.last = now

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] (+%dms) ", now.UTC().Format(timestampLayout), delta)
	if e.Level >= log.WarnLevel {
		b.WriteString(strings.ToUpper(e.Level.String()))
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	for _, name := range e.Fields.Names() {
		fmt.Fprintf(&b, " %s=%v", name, e.Fields.Get(name))
	}
	b.WriteByte('\n')

	_, err := io.WriteString(h.w, b.String())
	return err
}
