// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package output

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/gogpu/compositor/region"
)

func addTwo(m *Manager) (*Output, *Output) {
	a := m.Add(Config{Name: "DP-1", Geometry: image.Rect(0, 0, 1920, 1080), Enabled: true})
	b := m.Add(Config{Name: "HDMI-1", Geometry: image.Rect(1920, 0, 3200, 1024), Enabled: true})
	return a, b
}

func TestAddDefaults(t *testing.T) {
	m := NewManager()
	o := m.Add(Config{Name: "DP-1", Geometry: image.Rect(0, 0, 100, 100)})

	if o.ID() == 0 {
		t.Error("ID() = 0, want nonzero")
	}
	if got := o.Scale(); got != 1 {
		t.Errorf("Scale() = %v, want 1", got)
	}
	if got := o.RefreshRate(); got != DefaultRefreshRate {
		t.Errorf("RefreshRate() = %d, want %d", got, DefaultRefreshRate)
	}
	want := time.Second / 60
	if got := o.RefreshInterval(); got < want-time.Microsecond || got > want+time.Microsecond {
		t.Errorf("RefreshInterval() = %v, want %v", got, want)
	}
	if o.IsEnabled() {
		t.Error("IsEnabled() = true, want false")
	}
}

func TestEnabledFiltersAndKeepsOrder(t *testing.T) {
	m := NewManager()
	a, b := addTwo(m)
	c := m.Add(Config{Name: "eDP-1", Geometry: image.Rect(0, 0, 10, 10)})

	if got := m.All(); len(got) != 3 || got[0] != a || got[1] != b || got[2] != c {
		t.Errorf("All() = %v, want [%v %v %v]", got, a, b, c)
	}
	if got := m.Enabled(); len(got) != 2 {
		t.Errorf("len(Enabled()) = %d, want 2", len(got))
	}
}

func TestDisableDiscardsHistory(t *testing.T) {
	m := NewManager()
	o, _ := addTwo(m)
	o.History().Push(region.Rect(image.Rect(0, 0, 10, 10)))
	o.History().Push(region.Rect(image.Rect(0, 0, 20, 20)))

	if err := m.Disable(o.ID()); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	if o.IsEnabled() {
		t.Error("IsEnabled() = true after Disable")
	}
	if got := o.History().Len(); got != 0 {
		t.Errorf("History().Len() = %d after Disable, want 0", got)
	}
}

func TestSetGeometry(t *testing.T) {
	tests := []struct {
		name        string
		geometry    image.Rectangle
		wantHistory int
	}{
		{"move keeps history", image.Rect(100, 0, 2020, 1080), 1},
		{"resize discards history", image.Rect(0, 0, 1280, 720), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager()
			o, _ := addTwo(m)
			o.History().Push(region.Rect(image.Rect(0, 0, 10, 10)))

			if err := m.SetGeometry(o.ID(), tt.geometry); err != nil {
				t.Fatalf("SetGeometry() error = %v", err)
			}
			if got := o.Geometry(); got != tt.geometry {
				t.Errorf("Geometry() = %v, want %v", got, tt.geometry)
			}
			if got := o.History().Len(); got != tt.wantHistory {
				t.Errorf("History().Len() = %d, want %d", got, tt.wantHistory)
			}
		})
	}
}

func TestUnknownOutput(t *testing.T) {
	m := NewManager()
	if err := m.Enable(7); !errors.Is(err, ErrUnknownOutput) {
		t.Errorf("Enable() error = %v, want %v", err, ErrUnknownOutput)
	}
	if err := m.Remove(7); !errors.Is(err, ErrUnknownOutput) {
		t.Errorf("Remove() error = %v, want %v", err, ErrUnknownOutput)
	}
}

func TestSubscribe(t *testing.T) {
	m := NewManager()
	var events []Event
	cancel := m.Subscribe(func(ev Event, _ *Output) { events = append(events, ev) })

	o := m.Add(Config{Name: "DP-1", Geometry: image.Rect(0, 0, 10, 10)})
	if err := m.Enable(o.ID()); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	if err := m.Enable(o.ID()); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	if err := m.Remove(o.ID()); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	cancel()
	m.Add(Config{Name: "DP-2"})

	want := []Event{EventAdded, EventChanged, EventRemoved}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events[%d] = %v, want %v", i, events[i], want[i])
		}
	}
}

func TestApplyAllOrNothing(t *testing.T) {
	m := NewManager()
	a, b := addTwo(m)
	a.History().Push(region.Rect(image.Rect(0, 0, 1, 1)))
	errTooLarge := errors.New("mode too large")

	tester := TesterFunc(func(o *Output, cfg Config) error {
		if cfg.Geometry.Dx() > 3000 {
			return errTooLarge
		}
		return nil
	})
	p := Proposal{
		a.ID(): {Geometry: image.Rect(0, 0, 1280, 720), Enabled: true},
		b.ID(): {Geometry: image.Rect(1280, 0, 5120, 2160), Enabled: true},
	}

	err := m.Apply(p, tester)
	if !errors.Is(err, ErrConfigRejected) || !errors.Is(err, errTooLarge) {
		t.Fatalf("Apply() error = %v, want %v wrapping %v", err, ErrConfigRejected, errTooLarge)
	}
	if got := a.Geometry(); got != image.Rect(0, 0, 1920, 1080) {
		t.Errorf("passing output changed to %v, want prior geometry", got)
	}
	if got := a.History().Len(); got != 1 {
		t.Errorf("History().Len() = %d after rejection, want 1", got)
	}

	p[b.ID()] = Config{Geometry: image.Rect(1280, 0, 2560, 1024), Enabled: true}
	if err := m.Apply(p, tester); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := a.Geometry(); got != image.Rect(0, 0, 1280, 720) {
		t.Errorf("Geometry() = %v after apply, want 1280x720", got)
	}
	if got := a.Name(); got != "DP-1" {
		t.Errorf("Name() = %q, want name kept", got)
	}
	if got := a.History().Len(); got != 0 {
		t.Errorf("History().Len() = %d after resize, want 0", got)
	}
}

func TestPendingCommit(t *testing.T) {
	o := NewManager().Add(Config{Name: "DP-1"})
	o.SetPendingCommit(true)
	if !o.PendingCommit() {
		t.Error("PendingCommit() = false, want true")
	}
	o.SetPendingCommit(false)
	if o.PendingCommit() {
		t.Error("PendingCommit() = true, want false")
	}
}
