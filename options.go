// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compositor

import (
	"image/color"
	"time"

	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/config"
	"github.com/gogpu/compositor/effect"
	"github.com/gogpu/compositor/scene"
)

// Option configures a Compositor during creation.
// Use functional options to customize Compositor behavior.
//
// Example:
//
//	// Highest priority backend, default settings
//	c, err := compositor.New(nil)
//
//	// Named backend with two desktops and the fade effect
//	c, err := compositor.New(nil,
//	    compositor.WithBackend("software"),
//	    compositor.WithDesktops(2),
//	    compositor.WithEffect(fade.New(), 50))
type Option func(*options)

type loadRequest struct {
	effect   effect.Effect
	position int
}

// options holds optional configuration for Compositor creation.
type options struct {
	backendName string
	backendOpts backend.Options
	retention   scene.RetentionPolicy
	refreshRate int
	desktops    int
	background  color.Color
	clock       func() time.Duration
	interval    time.Duration
	effects     []loadRequest
	config      *config.Config
}

// defaultOptions returns the default compositor options.
func defaultOptions() options {
	return options{
		retention: scene.DefaultRetention(),
		desktops:  1,
	}
}

// WithBackend selects a registered backend by name when New is given a
// nil backend. Without it the backend with the highest priority is used.
func WithBackend(name string) Option {
	return func(o *options) {
		o.backendName = name
	}
}

// WithBackendOptions sets the options passed to a backend created by name.
func WithBackendOptions(opts backend.Options) Option {
	return func(o *options) {
		o.backendOpts = opts
	}
}

// WithRetention sets how many frames a hidden window keeps its texture.
func WithRetention(frames int) Option {
	return func(o *options) {
		o.retention = scene.RetentionPolicy{HiddenFrames: max(frames, 0)}
	}
}

// WithRefreshRate sets the refresh rate, in millihertz, of outputs added
// without one.
func WithRefreshRate(mhz int) Option {
	return func(o *options) {
		o.refreshRate = mhz
	}
}

// WithDesktops sets the number of virtual desktops.
func WithDesktops(n int) Option {
	return func(o *options) {
		o.desktops = n
	}
}

// WithBackground sets the color painted where no window is.
func WithBackground(c color.Color) Option {
	return func(o *options) {
		o.background = c
	}
}

// WithEffect loads e at position when the compositor is created.
//
// Example:
//
//	c, err := compositor.New(nil, compositor.WithEffect(dim.New(), 60))
func WithEffect(e effect.Effect, position int) Option {
	return func(o *options) {
		o.effects = append(o.effects, loadRequest{effect: e, position: position})
	}
}

// WithClock replaces the presentation clock handed to effects. The
// default counts from the creation of the compositor.
func WithClock(now func() time.Duration) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithInterval fixes the minimum time between scheduler ticks.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		o.interval = d
	}
}

// WithConfig applies a configuration file. The backend section selects
// and sets up the backend; effects, outputs and the rest are applied as
// by Reconfigure once the compositor is created. Options given after
// WithConfig override it.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.config = cfg
		o.backendName = cfg.Backend
		o.backendOpts.Buffers = cfg.SwapchainDepth
		o.backendOpts.DisableBufferAge = !cfg.BufferAge
		o.backendOpts.TextureBudgetMB = cfg.TextureBudgetMB
		o.retention = scene.RetentionPolicy{HiddenFrames: max(cfg.RetentionFrames, 0)}
		o.refreshRate = cfg.RefreshMillihertz()
		o.desktops = cfg.Desktops
	}
}
