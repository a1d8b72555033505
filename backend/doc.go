// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package backend presents painted frames to outputs.
//
// A backend owns one swapchain and one display connector per output. A
// frame goes through a fixed state machine:
//
//	Idle → BeginFrame → Drawing → {Commit | Rollback} → Idle
//
// BeginFrame acquires a backbuffer and derives from its age and the output
// history which part of it is stale. Drawing binds the backbuffer on the
// render target stack. EndFrame tests the resulting state with the
// connector and commits it atomically; a rejected frame is rolled back,
// leaves the history untouched and is retried when new damage arrives.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime:
//
//	import _ "github.com/gogpu/compositor/backend/software"
//
//	b, err := backend.Default(backend.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
// Use New to request a specific backend by name.
//
// # Connectors
//
// Connectors apply display state. Atomic displays implement Connector
// directly; displays that only know attach and commit are wrapped with
// NewLegacyAdapter. HeadlessConnector keeps the screen in memory and is
// the default.
package backend
