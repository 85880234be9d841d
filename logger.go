// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frameproc

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for frameproc and its GPU backend.
// By default nothing is logged. Pass nil to restore silence.
//
// Log levels used by frameproc:
//   - [slog.LevelDebug]: resource (re)allocation, dispatch sizes, coalescing
//   - [slog.LevelInfo]: adapter selection, scheduler start and stop
//   - [slog.LevelWarn]: missing timestamp queries, software fallback
//   - [slog.LevelError]: a renderer failure that ended a session
//
// Example:
//
//	frameproc.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	hooksMu.RLock()
	defer hooksMu.RUnlock()
	for _, h := range loggerHooks {
		h(l)
	}
}

// Logger returns the current logger. Sub-packages call this to share the
// same configuration without import cycles.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

var (
	hooksMu     sync.RWMutex
	loggerHooks []func(*slog.Logger)
)

// RegisterLoggerHook registers fn to receive the logger on every SetLogger
// call, and immediately with the current one. Backends living in other
// packages use it to follow the root configuration.
func RegisterLoggerHook(fn func(*slog.Logger)) {
	hooksMu.Lock()
	loggerHooks = append(loggerHooks, fn)
	hooksMu.Unlock()
	fn(Logger())
}
