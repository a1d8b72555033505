// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package effects lists the built-in effects.
//
// Each effect lives in its own package. New returns an instance by name
// for configuration driven loading.
package effects
