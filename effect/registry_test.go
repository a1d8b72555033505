// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package effect

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/gogpu/compositor/arena"
)

type plain struct {
	name     string
	keys     []KeyEvent
	pointer  int
	unloaded bool
	settings Settings
}

func (p *plain) Name() string                         { return p.name }
func (p *plain) IsActive() bool                       { return true }
func (p *plain) GrabbedKeyboardEvent(ev KeyEvent)     { p.keys = append(p.keys, ev) }
func (p *plain) InterceptedPointerEvent(PointerEvent) { p.pointer++ }
func (p *plain) Unload()                              { p.unloaded = true }
func (p *plain) Reconfigure(s Settings)               { p.settings = s }

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&plain{name: "late"}, 50)
	_ = r.Register(&plain{name: "early"}, 10)
	_ = r.Register(&plain{name: "tie-first"}, 30)
	_ = r.Register(&plain{name: "tie-second"}, 30)

	want := []string{"early", "tie-first", "tie-second", "late"}
	if got := r.Loaded(); !slices.Equal(got, want) {
		t.Errorf("Loaded() = %v, want %v", got, want)
	}
	if err := r.Register(&plain{name: "late"}, 0); !errors.Is(err, ErrAlreadyLoaded) {
		t.Errorf("duplicate Register() = %v, want ErrAlreadyLoaded", err)
	}
}

func TestRegistryKeyboardGrab(t *testing.T) {
	r := NewRegistry()
	a, b := &plain{name: "a"}, &plain{name: "b"}
	_ = r.Register(a, 0)
	_ = r.Register(b, 0)

	if r.DeliverKey(KeyEvent{Key: KeyEscape}) {
		t.Error("DeliverKey() = true without a grab")
	}
	if err := r.GrabKeyboard(a); err != nil {
		t.Fatalf("GrabKeyboard(a) = %v", err)
	}
	if err := r.GrabKeyboard(b); !errors.Is(err, ErrKeyboardGrabbed) {
		t.Errorf("GrabKeyboard(b) = %v, want ErrKeyboardGrabbed", err)
	}
	if err := r.GrabKeyboard(a); !errors.Is(err, ErrKeyboardGrabbed) {
		t.Errorf("second GrabKeyboard(a) = %v, want ErrKeyboardGrabbed", err)
	}
	if !r.DeliverKey(KeyEvent{Key: KeyEscape, Pressed: true}) || len(a.keys) != 1 {
		t.Error("grabbed key not delivered to a")
	}
	if err := r.UngrabKeyboard(b); !errors.Is(err, ErrNotKeyboardGrabber) {
		t.Errorf("UngrabKeyboard(b) = %v, want ErrNotKeyboardGrabber", err)
	}
	if err := r.UngrabKeyboard(a); err != nil {
		t.Errorf("UngrabKeyboard(a) = %v", err)
	}
	if err := r.GrabKeyboard(b); err != nil {
		t.Errorf("GrabKeyboard(b) after release = %v", err)
	}
}

func TestRegistryPointerInterception(t *testing.T) {
	r := NewRegistry()
	a, b := &plain{name: "a"}, &plain{name: "b"}
	r.StartPointerInterception(a, CursorCrosshair)
	r.StartPointerInterception(b, CursorMove)
	if shape, ok := r.CursorOverride(); !ok || shape != CursorMove {
		t.Errorf("CursorOverride() = %v, %v, want CursorMove", shape, ok)
	}
	r.StartPointerInterception(a, CursorWait)
	if shape, _ := r.CursorOverride(); shape != CursorWait {
		t.Errorf("CursorOverride() after re-request = %v, want CursorWait", shape)
	}
	if !r.DeliverPointer(PointerEvent{}) || a.pointer != 1 || b.pointer != 1 {
		t.Error("pointer event not delivered to every interceptor")
	}
	r.StopPointerInterception(a)
	if shape, _ := r.CursorOverride(); shape != CursorMove {
		t.Errorf("CursorOverride() after stop = %v, want CursorMove", shape)
	}
	r.StopPointerInterception(b)
	if r.PointerIntercepted() {
		t.Error("PointerIntercepted() = true with empty list")
	}
}

func TestWindowGrabs(t *testing.T) {
	r := NewRegistry()
	a, b := &plain{name: "a"}, &plain{name: "b"}
	w := arena.Handle{Index: 3, Generation: 1}

	if err := r.ClaimWindow(w, RoleWindowClosed, a, false); err != nil {
		t.Fatal(err)
	}
	if err := r.ClaimWindow(w, RoleWindowClosed, a, false); err != nil {
		t.Errorf("re-claim by holder = %v, want nil", err)
	}
	if err := r.ClaimWindow(w, RoleWindowClosed, b, false); !errors.Is(err, ErrSlotClaimed) {
		t.Errorf("claim by other = %v, want ErrSlotClaimed", err)
	}
	if err := r.ReleaseWindow(w, RoleWindowClosed, b); !errors.Is(err, ErrNotClaimant) {
		t.Errorf("release by other = %v, want ErrNotClaimant", err)
	}
	if err := r.ClaimWindow(w, RoleWindowClosed, b, true); err != nil {
		t.Errorf("forced claim = %v", err)
	}
	if got, _ := r.WindowClaimant(w, RoleWindowClosed); got != b {
		t.Errorf("WindowClaimant() = %v, want b", got)
	}
	if err := r.ClaimWindow(w, RoleWindowAdded, a, false); err != nil {
		t.Errorf("claim of a different role = %v", err)
	}
	if err := r.ReleaseWindow(w, RoleWindowClosed, b); err != nil {
		t.Errorf("release by holder = %v", err)
	}
	r.ForgetWindow(w)
	if _, ok := r.WindowClaimant(w, RoleWindowAdded); ok {
		t.Error("slot survived ForgetWindow")
	}
}

func TestRegistryUnregisterReleasesEverything(t *testing.T) {
	r := NewRegistry()
	a := &plain{name: "a"}
	_ = r.Register(a, 0)
	w := arena.Handle{Index: 1, Generation: 1}
	_ = r.GrabKeyboard(a)
	r.StartPointerInterception(a, CursorMove)
	_ = r.ClaimWindow(w, RolePreview, a, false)
	r.SetFullscreen(a)
	r.TakeFullRepaint()

	if err := r.Unregister("a"); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.KeyboardGrabber(); ok {
		t.Error("keyboard grab survived unload")
	}
	if r.PointerIntercepted() {
		t.Error("pointer interception survived unload")
	}
	if _, ok := r.WindowClaimant(w, RolePreview); ok {
		t.Error("window slot survived unload")
	}
	if _, ok := r.Fullscreen(); ok {
		t.Error("fullscreen effect survived unload")
	}
	if !a.unloaded {
		t.Error("Unload() not called")
	}
	if !r.TakeFullRepaint() {
		t.Error("unload did not request a full repaint")
	}
	if r.TakeFullRepaint() {
		t.Error("TakeFullRepaint() did not clear the request")
	}
	if err := r.Unregister("a"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("second Unregister() = %v, want ErrNotLoaded", err)
	}
}

func TestRegistryReconfigure(t *testing.T) {
	r := NewRegistry()
	a := &plain{name: "a"}
	_ = r.Register(a, 0)
	if err := r.Reconfigure("a", Settings{"strength": 0.5}); err != nil {
		t.Fatal(err)
	}
	if a.settings["strength"] != 0.5 {
		t.Errorf("settings = %v", a.settings)
	}
	if err := r.Reconfigure("missing", nil); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Reconfigure(missing) = %v, want ErrNotLoaded", err)
	}
}

func TestSettings(t *testing.T) {
	s := Settings{
		"ratio":   0.5,
		"count":   int64(3),
		"enabled": true,
		"ms":      int64(250),
		"text":    "1.5s",
		"bad":     "soon",
	}
	if got := s.Float("ratio", 1); got != 0.5 {
		t.Errorf("Float(ratio) = %v, want 0.5", got)
	}
	if got := s.Float("count", 0); got != 3 {
		t.Errorf("Float(count) = %v, want 3", got)
	}
	if got := s.Float("enabled", 7); got != 7 {
		t.Errorf("Float(enabled) = %v, want default 7", got)
	}
	if !s.Bool("enabled", false) || s.Bool("missing", false) {
		t.Error("Bool() did not read the stored value or the default")
	}
	tests := []struct {
		key  string
		want time.Duration
	}{
		{"ms", 250 * time.Millisecond},
		{"text", 1500 * time.Millisecond},
		{"bad", time.Second},
		{"missing", time.Second},
	}
	for _, tt := range tests {
		if got := s.Duration(tt.key, time.Second); got != tt.want {
			t.Errorf("Duration(%s) = %v, want %v", tt.key, got, tt.want)
		}
	}
}
