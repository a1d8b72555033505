// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package effect

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gogpu/compositor/arena"
	"github.com/gogpu/compositor/internal/logging"
)

// Registry errors.
var (
	// ErrAlreadyLoaded is returned when registering an effect name twice.
	ErrAlreadyLoaded = errors.New("effect: already loaded")

	// ErrNotLoaded is returned for operations on an unknown effect.
	ErrNotLoaded = errors.New("effect: not loaded")

	// ErrKeyboardGrabbed is returned when the keyboard grab is held.
	ErrKeyboardGrabbed = errors.New("effect: keyboard already grabbed")

	// ErrNotKeyboardGrabber is returned when releasing a grab not held.
	ErrNotKeyboardGrabber = errors.New("effect: keyboard not grabbed by caller")
)

type entry struct {
	effect   Effect
	position int
	seq      int
}

type interception struct {
	effect Effect
	shape  CursorShape
}

// Registry is the set of loaded effects and the exclusive resources they
// hold. A Registry is owned by the compositor and handed to every
// component that needs to query effects; there is no global instance.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
	seq     int

	keyboard     Effect
	interceptors []interception
	grabs        *WindowGrabs
	fullscreen   Effect

	fullRepaint atomic.Bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{grabs: newWindowGrabs()}
}

// Register loads e at the given chain position. Lower positions run
// first, that is, further from the base renderer. Effects with equal
// positions keep their load order.
func (r *Registry) Register(e Effect, position int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, en := range r.entries {
		if en.effect.Name() == e.Name() {
			return fmt.Errorf("%w: %s", ErrAlreadyLoaded, e.Name())
		}
	}
	r.seq++
	r.entries = append(r.entries, entry{effect: e, position: position, seq: r.seq})
	slices.SortStableFunc(r.entries, func(a, b entry) int {
		if a.position != b.position {
			return a.position - b.position
		}
		return a.seq - b.seq
	})
	logging.Logger().Info("effect loaded", "effect", e.Name(), "position", position)
	return nil
}

// Unregister unloads the named effect and releases every grab it holds.
// The current frame keeps using its snapshot; the effect is gone from
// the next frame on, which is fully repainted.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	idx := slices.IndexFunc(r.entries, func(en entry) bool { return en.effect.Name() == name })
	if idx < 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	e := r.entries[idx].effect
	r.entries = slices.Delete(r.entries, idx, idx+1)
	if r.keyboard == e {
		r.keyboard = nil
	}
	r.interceptors = slices.DeleteFunc(r.interceptors, func(i interception) bool { return i.effect == e })
	released := r.grabs.ForgetClaimant(e)
	if r.fullscreen == e {
		r.fullscreen = nil
	}
	r.mu.Unlock()

	if u, ok := e.(Unloader); ok {
		u.Unload()
	}
	r.RequestFullRepaint()
	logging.Logger().Info("effect unloaded", "effect", name, "released_grabs", released)
	return nil
}

// Lookup returns a loaded effect by name.
func (r *Registry) Lookup(name string) (Effect, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, en := range r.entries {
		if en.effect.Name() == name {
			return en.effect, true
		}
	}
	return nil, false
}

// IsLoaded reports whether the named effect is loaded.
func (r *Registry) IsLoaded(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Loaded returns the names of loaded effects in chain order.
func (r *Registry) Loaded() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.entries))
	for i, en := range r.entries {
		names[i] = en.effect.Name()
	}
	return names
}

// Active evaluates every effect's activity predicate once and returns
// the active ones in chain order.
func (r *Registry) Active() []Effect {
	r.mu.RLock()
	effects := make([]Effect, 0, len(r.entries))
	for _, en := range r.entries {
		effects = append(effects, en.effect)
	}
	r.mu.RUnlock()

	// Predicates run without the lock so they may query the registry.
	active := effects[:0]
	for _, e := range effects {
		if e.IsActive() {
			active = append(active, e)
		}
	}
	return active
}

// Each calls fn for every loaded effect in chain order.
func (r *Registry) Each(fn func(Effect)) {
	r.mu.RLock()
	effects := make([]Effect, len(r.entries))
	for i, en := range r.entries {
		effects[i] = en.effect
	}
	r.mu.RUnlock()
	for _, e := range effects {
		fn(e)
	}
}

// GrabKeyboard gives e exclusive keyboard input.
func (r *Registry) GrabKeyboard(e Effect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.keyboard != nil {
		return fmt.Errorf("%w by %s", ErrKeyboardGrabbed, r.keyboard.Name())
	}
	r.keyboard = e
	return nil
}

// UngrabKeyboard releases the keyboard grab held by e.
func (r *Registry) UngrabKeyboard(e Effect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.keyboard != e {
		return ErrNotKeyboardGrabber
	}
	r.keyboard = nil
	return nil
}

// KeyboardGrabber returns the effect holding the keyboard grab.
func (r *Registry) KeyboardGrabber() (Effect, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keyboard, r.keyboard != nil
}

// DeliverKey sends ev to the grabbing effect. It reports false when no
// effect holds the grab and the event should go to clients.
func (r *Registry) DeliverKey(ev KeyEvent) bool {
	r.mu.RLock()
	e := r.keyboard
	r.mu.RUnlock()
	if e == nil {
		return false
	}
	if kg, ok := e.(KeyboardGrabber); ok {
		kg.GrabbedKeyboardEvent(ev)
	}
	return true
}

// StartPointerInterception adds e to the interception list with the
// requested cursor shape. The most recent request decides the shape.
func (r *Registry) StartPointerInterception(e Effect, shape CursorShape) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interceptors = slices.DeleteFunc(r.interceptors, func(i interception) bool { return i.effect == e })
	r.interceptors = append(r.interceptors, interception{effect: e, shape: shape})
}

// StopPointerInterception removes e from the interception list.
// Interception ends when the list becomes empty.
func (r *Registry) StopPointerInterception(e Effect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interceptors = slices.DeleteFunc(r.interceptors, func(i interception) bool { return i.effect == e })
}

// PointerIntercepted reports whether any effect intercepts the pointer.
func (r *Registry) PointerIntercepted() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.interceptors) > 0
}

// CursorOverride returns the cursor shape of the latest interception.
func (r *Registry) CursorOverride() (CursorShape, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.interceptors) == 0 {
		return CursorDefault, false
	}
	return r.interceptors[len(r.interceptors)-1].shape, true
}

// DeliverPointer sends ev to every intercepting effect. It reports false
// when nobody intercepts.
func (r *Registry) DeliverPointer(ev PointerEvent) bool {
	r.mu.RLock()
	targets := make([]Effect, len(r.interceptors))
	for i, in := range r.interceptors {
		targets[i] = in.effect
	}
	r.mu.RUnlock()
	for _, e := range targets {
		if pi, ok := e.(PointerInterceptor); ok {
			pi.InterceptedPointerEvent(ev)
		}
	}
	return len(targets) > 0
}

// ClaimWindow claims the (w, role) data slot for e.
func (r *Registry) ClaimWindow(w arena.Handle, role Role, e Effect, force bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.grabs.Claim(w, role, e, force)
}

// ReleaseWindow releases the (w, role) data slot held by e.
func (r *Registry) ReleaseWindow(w arena.Handle, role Role, e Effect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.grabs.Release(w, role, e)
}

// WindowClaimant returns the effect holding the (w, role) slot.
func (r *Registry) WindowClaimant(w arena.Handle, role Role) (Effect, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.grabs.Claimant(w, role)
}

// ForgetWindow drops the data slots of a window that is gone for good.
func (r *Registry) ForgetWindow(w arena.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grabs.ForgetWindow(w)
}

// SetFullscreen marks e as the active fullscreen effect, nil to clear.
func (r *Registry) SetFullscreen(e Effect) {
	r.mu.Lock()
	r.fullscreen = e
	r.mu.Unlock()
	r.RequestFullRepaint()
}

// Fullscreen returns the active fullscreen effect.
func (r *Registry) Fullscreen() (Effect, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fullscreen, r.fullscreen != nil
}

// RequestFullRepaint asks for the next frame of every output to repaint
// the full output geometry.
func (r *Registry) RequestFullRepaint() { r.fullRepaint.Store(true) }

// TakeFullRepaint returns and clears the full repaint request.
func (r *Registry) TakeFullRepaint() bool { return r.fullRepaint.Swap(false) }

// NotifyWindowAdded tells listening effects about a new window.
func (r *Registry) NotifyWindowAdded(w Window) {
	r.Each(func(e Effect) {
		if l, ok := e.(WindowListener); ok {
			l.WindowAdded(w)
		}
	})
}

// NotifyWindowClosed tells listening effects that a window closed. w is
// the remnant when one was kept.
func (r *Registry) NotifyWindowClosed(w Window) {
	r.Each(func(e Effect) {
		if l, ok := e.(WindowListener); ok {
			l.WindowClosed(w)
		}
	})
}

// NotifyWindowActivated tells listening effects that focus changed.
func (r *Registry) NotifyWindowActivated(w Window) {
	r.Each(func(e Effect) {
		if l, ok := e.(WindowListener); ok {
			l.WindowActivated(w)
		}
	})
}

// Reconfigure passes settings to a loaded configurable effect.
func (r *Registry) Reconfigure(name string, s Settings) error {
	e, ok := r.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	if c, ok := e.(Configurable); ok {
		c.Reconfigure(s)
		r.RequestFullRepaint()
	}
	return nil
}
