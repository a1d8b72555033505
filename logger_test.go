// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compositor

import (
	"bytes"
	"context"
	"image"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/compositor/effects/showpaint"
	"github.com/gogpu/compositor/internal/logging"
	"github.com/gogpu/compositor/scene"
)

func TestLoggerDefaultSilent(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("Logger() returned nil")
	}
	// Default logger must be disabled at all levels.
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn} {
		if l.Enabled(context.Background(), level) {
			t.Errorf("default logger should not be enabled for %v", level)
		}
	}
}

func TestSetLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	custom := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	SetLogger(custom)

	if got := Logger(); got != custom {
		t.Error("Logger() did not return the custom logger set via SetLogger")
	}
	// Sub-packages share the logger.
	if got := logging.Logger(); got != custom {
		t.Error("logging.Logger() did not return the custom logger")
	}
}

func TestLifecycleLogged(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	f := newFixture(t)
	f.c.AddWindow(scene.NewImageClient("term", image.Rect(0, 0, 8, 8), red))
	if err := f.c.LoadEffect(showpaint.New(), 0); err != nil {
		t.Fatalf("LoadEffect() error = %v", err)
	}
	f.tick(t, 1)

	out := buf.String()
	for _, msg := range []string{
		"backend selected",
		"output added",
		"effect loaded",
		"msg=frame",
	} {
		if !strings.Contains(out, msg) {
			t.Errorf("log output lacks %q:\n%s", msg, out)
		}
	}
}

func TestSetLoggerNilRestoresSilent(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	SetLogger(slog.Default())
	SetLogger(nil)

	l := Logger()
	if l == nil {
		t.Fatal("SetLogger(nil) should set nop logger, not nil")
	}
	if l.Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) should produce a disabled logger")
	}
}
