// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build compdebug

package render

// assertBalanced panics on stack contract violations in debug builds.
func assertBalanced(err error) {
	panic(err)
}
