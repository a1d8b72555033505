// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package effects

import (
	"errors"
	"slices"
	"testing"
)

func TestNew(t *testing.T) {
	for _, name := range Names() {
		e, err := New(name)
		if err != nil {
			t.Fatalf("New(%q) error = %v", name, err)
		}
		if e.Name() != name {
			t.Errorf("New(%q).Name() = %q", name, e.Name())
		}
	}
	if _, err := New("wobbly"); !errors.Is(err, ErrUnknownEffect) {
		t.Errorf("New(wobbly) error = %v, want %v", err, ErrUnknownEffect)
	}
}

func TestNames(t *testing.T) {
	want := []string{"showpaint", "overview", "thumbnail", "fade", "dim"}
	if got := Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if p, ok := Position("dim"); !ok || p != 60 {
		t.Errorf("Position(dim) = %d, %v, want 60, true", p, ok)
	}
}
