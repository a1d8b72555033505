// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compositor.toml")
	if err := os.WriteFile(path, []byte(`backend = "software"`), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	reloads := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { reloads <- c })
	}()

	// The watcher starts asynchronously; rewrite until a change is seen.
	write := func(doc string) {
		if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
			t.Error(err)
		}
	}
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(10 * time.Second)
	write("swapchain_depth = 99")
	var got *Config
	for got == nil {
		select {
		case c := <-reloads:
			if c.SwapchainDepth == 99 {
				t.Fatal("invalid configuration delivered")
			}
			got = c
		case <-ticker.C:
			write(`backend = "gpu"`)
		case <-timeout:
			t.Fatal("no reload within 10s")
		}
	}
	if got.Backend != "gpu" {
		t.Errorf("reloaded Backend = %q, want gpu", got.Backend)
	}
	// Write into another file of the directory is ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "no", "such.toml"), func(*Config) {})
	if err == nil {
		t.Error("Watch() on a missing directory succeeded")
	}
}
