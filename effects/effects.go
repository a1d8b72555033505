// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package effects

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/compositor/effect"
	"github.com/gogpu/compositor/effects/dim"
	"github.com/gogpu/compositor/effects/fade"
	"github.com/gogpu/compositor/effects/overview"
	"github.com/gogpu/compositor/effects/showpaint"
	"github.com/gogpu/compositor/effects/thumbnail"
)

// ErrUnknownEffect is returned by New for a name that is not built in.
var ErrUnknownEffect = errors.New("effects: unknown effect")

type builtin struct {
	position int
	create   func() effect.Effect
}

// Chain positions. Lower positions run further from the base renderer,
// so showpaint tints whatever the others painted.
var builtins = map[string]builtin{
	showpaint.Name: {0, func() effect.Effect { return showpaint.New() }},
	overview.Name:  {10, func() effect.Effect { return overview.New() }},
	thumbnail.Name: {20, func() effect.Effect { return thumbnail.New() }},
	fade.Name:      {50, func() effect.Effect { return fade.New() }},
	dim.Name:       {60, func() effect.Effect { return dim.New() }},
}

// New creates the built-in effect called name.
func New(name string) (effect.Effect, error) {
	b, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEffect, name)
	}
	return b.create(), nil
}

// Position returns the default chain position of a built-in effect.
func Position(name string) (int, bool) {
	b, ok := builtins[name]
	return b.position, ok
}

// Names returns the built-in effect names in chain order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		return builtins[a].position - builtins[b].position
	})
	return names
}
