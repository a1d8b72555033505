// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestTargetPoolReuse(t *testing.T) {
	p := NewTargetPool(nil, 2)
	a, err := p.Get(64, 32)
	if err != nil {
		t.Fatal(err)
	}
	p.Put(a)
	b, _ := p.Get(64, 32)
	if a != b {
		t.Error("Get() after Put() did not reuse the idle target")
	}
	c, _ := p.Get(32, 32)
	if c == b {
		t.Error("Get() returned a target of the wrong size")
	}
	allocated, reused := p.Stats()
	if allocated != 2 || reused != 1 {
		t.Errorf("Stats() = %d, %d, want 2, 1", allocated, reused)
	}
}

func TestTargetPoolEvictsOldest(t *testing.T) {
	var views []*fakeView
	alloc := func(w, h int) (RenderTarget, error) {
		v := &fakeView{}
		views = append(views, v)
		return NewTextureTarget(v, w, h, gputypes.TextureFormatRGBA8Unorm), nil
	}
	p := NewTargetPool(alloc, 2)
	t1, _ := p.Get(1, 1)
	t2, _ := p.Get(2, 2)
	t3, _ := p.Get(3, 3)
	p.Put(t1)
	p.Put(t2)
	p.Put(t3)
	if p.Idle() != 2 {
		t.Errorf("Idle() = %d, want 2", p.Idle())
	}
	if !views[0].destroyed {
		t.Error("oldest idle target was not destroyed")
	}
	p.Close()
	if !views[1].destroyed || !views[2].destroyed || p.Idle() != 0 {
		t.Error("Close() did not destroy idle targets")
	}
}

func TestTargetPoolAllocationFailure(t *testing.T) {
	boom := errors.New("out of memory")
	p := NewTargetPool(func(int, int) (RenderTarget, error) { return nil, boom }, 1)
	_, err := p.Get(1, 1)
	if !errors.Is(err, ErrTargetAllocation) || !errors.Is(err, boom) {
		t.Errorf("Get() = %v, want ErrTargetAllocation wrapping cause", err)
	}
	if _, err := p.Get(0, 5); !errors.Is(err, ErrTargetAllocation) {
		t.Errorf("Get(0,5) = %v, want ErrTargetAllocation", err)
	}
}
