// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package software provides a CPU presentation backend.
//
// Backbuffers are plain RGBA images, painting goes through
// render.SoftwarePainter and window textures keep their pixels in system
// memory. The backend is always available and registers itself with the
// lowest priority:
//
//	import _ "github.com/gogpu/compositor/backend/software"
package software
