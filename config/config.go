// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package config reads the compositor configuration from TOML.
//
// A configuration file looks like:
//
//	backend = "software"
//	refresh_rate = 60.0
//	retention_frames = 60
//	buffer_age = true
//	swapchain_depth = 2
//	desktops = 4
//
//	[effects.fade]
//	enabled = true
//	duration = "200ms"
//
//	[[outputs]]
//	name = "DP-1"
//	width = 1920
//	height = 1080
//
// Keys of an effect table other than enabled and position are passed to
// the effect as settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/compositor/effect"
	"github.com/gogpu/compositor/effects"
	"github.com/gogpu/compositor/output"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid configuration")

// MaxSwapchainDepth is the largest accepted swapchain_depth.
const MaxSwapchainDepth = 4

// Defaults.
const (
	DefaultRefreshRate     = 60.0
	DefaultRetentionFrames = 60
	DefaultSwapchainDepth  = 2
	DefaultDesktops        = 1
)

// Config is the compositor configuration.
type Config struct {
	// Backend names a registered backend. Empty selects the one with the
	// highest priority.
	Backend string `toml:"backend"`

	// RefreshRate in Hz is used for outputs that do not set one.
	RefreshRate float64 `toml:"refresh_rate"`

	// RetentionFrames is how many frames a hidden window keeps its
	// texture.
	RetentionFrames int `toml:"retention_frames"`

	BufferAge       bool `toml:"buffer_age"`
	SwapchainDepth  int  `toml:"swapchain_depth"`
	TextureBudgetMB int  `toml:"texture_budget_mb"`
	Desktops        int  `toml:"desktops"`

	Effects map[string]Effect `toml:"-"`
	Outputs []Output          `toml:"outputs"`
}

// Effect configures one built-in effect.
type Effect struct {
	Enabled bool

	// Position overrides the default chain position when HasPosition is
	// set.
	Position    int
	HasPosition bool

	Settings effect.Settings
}

// Output configures one output.
type Output struct {
	Name        string  `toml:"name"`
	X           int     `toml:"x"`
	Y           int     `toml:"y"`
	Width       int     `toml:"width"`
	Height      int     `toml:"height"`
	Scale       float64 `toml:"scale"`
	Transform   string  `toml:"transform"`
	RefreshRate float64 `toml:"refresh_rate"`
	Enabled     *bool   `toml:"enabled"`
}

// file is the on-disk layout. Effect tables hold arbitrary keys.
type file struct {
	Config
	Effects map[string]map[string]any `toml:"effects"`
}

// Default returns the configuration used without a file.
func Default() *Config {
	return &Config{
		RefreshRate:     DefaultRefreshRate,
		RetentionFrames: DefaultRetentionFrames,
		BufferAge:       true,
		SwapchainDepth:  DefaultSwapchainDepth,
		Desktops:        DefaultDesktops,
		Effects:         map[string]Effect{},
	}
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a TOML document. Missing keys keep their
// defaults.
func Parse(data []byte) (*Config, error) {
	f := file{Config: *Default()}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("%w: line %d column %d: %s", ErrInvalid, row, col, derr.Error())
		}
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			return nil, fmt.Errorf("%w: %s", ErrInvalid, strings.TrimSpace(serr.String()))
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	cfg := f.Config
	cfg.Effects = make(map[string]Effect, len(f.Effects))
	for name, table := range f.Effects {
		e, err := parseEffect(table)
		if err != nil {
			return nil, fmt.Errorf("%w: effects.%s: %w", ErrInvalid, name, err)
		}
		cfg.Effects[name] = e
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseEffect(table map[string]any) (Effect, error) {
	e := Effect{Enabled: true, Settings: effect.Settings{}}
	for k, v := range table {
		switch k {
		case "enabled":
			b, ok := v.(bool)
			if !ok {
				return e, fmt.Errorf("enabled must be a boolean, got %T", v)
			}
			e.Enabled = b
		case "position":
			p, ok := v.(int64)
			if !ok {
				return e, fmt.Errorf("position must be an integer, got %T", v)
			}
			e.Position = int(p)
			e.HasPosition = true
		default:
			e.Settings[k] = v
		}
	}
	return e, nil
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	var errs []error
	if c.RefreshRate <= 0 {
		errs = append(errs, fmt.Errorf("refresh_rate must be positive, got %v", c.RefreshRate))
	}
	if c.RetentionFrames < 0 {
		errs = append(errs, fmt.Errorf("retention_frames must not be negative, got %d", c.RetentionFrames))
	}
	if c.SwapchainDepth < 1 || c.SwapchainDepth > MaxSwapchainDepth {
		errs = append(errs, fmt.Errorf("swapchain_depth must be in [1, %d], got %d", MaxSwapchainDepth, c.SwapchainDepth))
	}
	if c.TextureBudgetMB < 0 {
		errs = append(errs, fmt.Errorf("texture_budget_mb must not be negative, got %d", c.TextureBudgetMB))
	}
	if c.Desktops < 1 {
		errs = append(errs, fmt.Errorf("desktops must be at least 1, got %d", c.Desktops))
	}
	for _, name := range slices.Sorted(maps.Keys(c.Effects)) {
		if _, ok := effects.Position(name); !ok {
			errs = append(errs, fmt.Errorf("effects.%s: unknown effect", name))
		}
	}
	seen := make(map[string]bool, len(c.Outputs))
	for i, o := range c.Outputs {
		if o.Name == "" {
			errs = append(errs, fmt.Errorf("outputs[%d]: missing name", i))
		} else if seen[o.Name] {
			errs = append(errs, fmt.Errorf("outputs[%d]: duplicate name %q", i, o.Name))
		}
		seen[o.Name] = true
		if o.Width <= 0 || o.Height <= 0 {
			errs = append(errs, fmt.Errorf("outputs[%d]: invalid size %dx%d", i, o.Width, o.Height))
		}
		if o.Scale < 0 || o.RefreshRate < 0 {
			errs = append(errs, fmt.Errorf("outputs[%d]: negative scale or refresh rate", i))
		}
		if _, err := parseTransform(o.Transform); err != nil {
			errs = append(errs, fmt.Errorf("outputs[%d]: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// EnabledEffects returns the names of enabled effects.
func (c *Config) EnabledEffects() []string {
	var names []string
	for _, name := range slices.Sorted(maps.Keys(c.Effects)) {
		if c.Effects[name].Enabled {
			names = append(names, name)
		}
	}
	return names
}

// RefreshMillihertz returns the default refresh rate in millihertz.
func (c *Config) RefreshMillihertz() int {
	return int(c.RefreshRate * 1000)
}

// OutputConfig converts an output entry. The refresh rate falls back to
// the global one.
func (c *Config) OutputConfig(o Output) output.Config {
	t, _ := parseTransform(o.Transform)
	rate := o.RefreshRate
	if rate <= 0 {
		rate = c.RefreshRate
	}
	return output.Config{
		Name:        o.Name,
		Geometry:    image.Rect(o.X, o.Y, o.X+o.Width, o.Y+o.Height),
		Scale:       o.Scale,
		Transform:   t,
		Enabled:     o.Enabled == nil || *o.Enabled,
		RefreshRate: int(rate * 1000),
	}
}

func parseTransform(s string) (output.Transform, error) {
	switch s {
	case "", "normal":
		return output.TransformNormal, nil
	case "90":
		return output.TransformRotate90, nil
	case "180":
		return output.TransformRotate180, nil
	case "270":
		return output.TransformRotate270, nil
	default:
		return 0, fmt.Errorf("unknown transform %q", s)
	}
}
