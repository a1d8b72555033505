// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package compositor paints client windows onto outputs.
//
// # Overview
//
// A Compositor ties together the pieces of an output compositing pipeline:
//
//   - damage tracks what changed on each output and how old each
//     backbuffer is
//   - output manages plugged outputs and atomic configuration changes
//   - scene holds windows, their stacking order and textures
//   - effect runs pluggable effects around every paint pass
//   - backend acquires backbuffers and presents them
//   - schedule decides when each output repaints
//
// # Quick Start
//
//	c, err := compositor.New(nil, compositor.WithBackend("software"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	c.AddOutput(output.Config{Name: "HDMI-1", Geometry: image.Rect(0, 0, 1920, 1080), Enabled: true})
//	c.AddWindow(scene.NewImageClient("terminal", image.Rect(100, 100, 900, 700), color.Black))
//
//	if err := c.Run(ctx, ""); err != nil {
//	    log.Fatal(err)
//	}
//
// # Frames
//
// Each frame of an output takes the damage pending on it, begins a frame
// on the backend, paints the scene through the effect chain and ends the
// frame. The backend widens the paint to the stale part of the reused
// backbuffer and presents only the damaged area. A frame that fails keeps
// its damage for the next attempt.
//
// # Threading
//
// Painting and every change to outputs, windows and effects happen on one
// goroutine, the one calling Run. Other goroutines use Post. Window
// contents and damage may be reported concurrently.
//
// # Logging
//
// The package is silent by default. Use SetLogger to enable logging.
package compositor
