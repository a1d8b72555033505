// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compositor

import (
	"log/slog"

	"github.com/gogpu/compositor/internal/logging"
)

// SetLogger configures the logger for the compositor and all its
// sub-packages. By default nothing is logged.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by the compositor:
//   - [slog.LevelDebug]: per-frame diagnostics (regions, buffer age)
//   - [slog.LevelInfo]: lifecycle events (backend selected, output hot-plug, effect loaded)
//   - [slog.LevelWarn]: recoverable frame failures (test or commit rejected, no backbuffer)
//   - [slog.LevelError]: contract violations (unbalanced target stack, leaked remnants)
//
// Example:
//
//	// Enable info-level logging to stderr:
//	compositor.SetLogger(slog.Default())
//
//	// Enable debug-level logging for full diagnostics:
//	compositor.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.SetLogger(l)
}

// Logger returns the current logger used by the compositor.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.Logger()
}
