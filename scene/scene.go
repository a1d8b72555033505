// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package scene

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"slices"

	"github.com/gogpu/compositor/arena"
	"github.com/gogpu/compositor/effect"
	"github.com/gogpu/compositor/internal/logging"
	"github.com/gogpu/compositor/render"
	"github.com/gogpu/compositor/region"
)

// Errors returned by the scene.
var (
	ErrUnknownWindow      = errors.New("scene: unknown window")
	ErrNoSnapshot         = errors.New("scene: no stacking snapshot")
	ErrPaintInProgress    = errors.New("scene: paint in progress")
	ErrNoTextureFactory   = errors.New("scene: no texture factory")
	ErrRemnantReferenced  = errors.New("scene: remnant destroyed while referenced")
	ErrSnapshotInProgress = errors.New("scene: stacking snapshot already created")
)

// DefaultHiddenFrames is the number of frames a hidden window keeps its
// texture.
const DefaultHiddenFrames = 60

// TextureFactory creates window textures. Backends implement it.
type TextureFactory interface {
	NewTexture(desc render.TextureDescriptor) (render.Texture, error)
}

// TextureFactoryFunc adapts a function to TextureFactory.
type TextureFactoryFunc func(desc render.TextureDescriptor) (render.Texture, error)

// NewTexture calls f.
func (f TextureFactoryFunc) NewTexture(desc render.TextureDescriptor) (render.Texture, error) {
	return f(desc)
}

// PixmapTextures creates CPU textures.
var PixmapTextures TextureFactory = TextureFactoryFunc(func(desc render.TextureDescriptor) (render.Texture, error) {
	return render.NewPixmapTexture(int(desc.Width), int(desc.Height)), nil
})

// RetentionPolicy decides when the texture of a hidden window is released.
// A window is shown when it is visible on the current desktop. Its texture
// is released once it was not shown for more than HiddenFrames
// consecutive frames and no effect pins it. Zero releases on the first
// hidden frame.
//
// Frames are scene frames started by NextFrame, not output frames: painting
// several outputs in one frame counts a hidden window once.
type RetentionPolicy struct {
	HiddenFrames int
}

// DefaultRetention returns the default retention policy.
func DefaultRetention() RetentionPolicy {
	return RetentionPolicy{HiddenFrames: DefaultHiddenFrames}
}

// Option configures a Scene.
type Option func(*Scene)

// WithTextureFactory sets the factory for window textures.
func WithTextureFactory(f TextureFactory) Option {
	return func(s *Scene) { s.factory = f }
}

// WithRetention sets the texture retention policy.
func WithRetention(p RetentionPolicy) Option {
	return func(s *Scene) { s.retention = p }
}

// WithBackground sets the color painted where no window covers the output.
func WithBackground(c color.Color) Option {
	return func(s *Scene) { s.background = c }
}

// WithDamageFunc sets the sink for damage in global coordinates caused by
// window changes.
func WithDamageFunc(fn func(region.Region)) Option {
	return func(s *Scene) { s.onDamage = fn }
}

// Scene holds the paintable windows and is the terminal stage of the
// effect chain.
//
// Scene is not safe for concurrent use; it belongs to the rendering
// goroutine.
type Scene struct {
	chain    *effect.Chain
	registry *effect.Registry
	windows  *arena.Arena[*Window]

	// order is the stacking order, bottom to top, remnants included.
	order []arena.Handle

	snapshot  Snapshot
	bracketed bool
	teardown  []*Window
	paint     *paintState

	factory    TextureFactory
	retention  RetentionPolicy
	background color.Color
	onDamage   func(region.Region)

	desktop  int
	desktops int

	// frame is the current scene frame, see NextFrame.
	frame uint64
}

// New creates a scene and installs it as the terminal of chain.
func New(chain *effect.Chain, opts ...Option) *Scene {
	s := &Scene{
		chain:      chain,
		registry:   chain.Registry(),
		windows:    arena.New[*Window](),
		factory:    PixmapTextures,
		retention:  DefaultRetention(),
		background: color.RGBA{A: 0xff},
		desktop:    1,
		desktops:   1,
		frame:      1,
	}
	for _, opt := range opts {
		opt(s)
	}
	chain.SetTerminal(s)
	return s
}

// SetRetention replaces the texture retention policy. It applies from
// the next stacking snapshot on.
func (s *Scene) SetRetention(p RetentionPolicy) { s.retention = p }

// NextFrame starts a scene frame. The stacking orders created until the
// next call count as one frame for texture retention.
func (s *Scene) NextFrame() { s.frame++ }

// Retention returns the texture retention policy.
func (s *Scene) Retention() RetentionPolicy { return s.retention }

// Chain returns the effect chain the scene terminates.
func (s *Scene) Chain() *effect.Chain { return s.chain }

// Len returns the number of windows, remnants included.
func (s *Scene) Len() int { return s.windows.Len() }

// SetDesktops sets the number of virtual desktops.
func (s *Scene) SetDesktops(n int) {
	s.desktops = max(n, 1)
	s.desktop = min(s.desktop, s.desktops)
}

// Desktops returns the number of virtual desktops.
func (s *Scene) Desktops() int { return s.desktops }

// SetCurrentDesktop switches the shown desktop and damages everything.
func (s *Scene) SetCurrentDesktop(d int) {
	if d < 1 || d > s.desktops || d == s.desktop {
		return
	}
	s.desktop = d
	for _, w := range s.windows.All() {
		if w.IsVisible() {
			s.damage(region.Rect(w.Geometry()))
		}
	}
}

// CurrentDesktop returns the shown desktop.
func (s *Scene) CurrentDesktop() int { return s.desktop }

// AddWindow adds a client on top of the stacking order.
func (s *Scene) AddWindow(c Client) arena.Handle {
	w := &Window{scene: s, client: c, fullDirty: true}
	w.handle = s.windows.Insert(w)
	s.order = append(s.order, w.handle)
	if c.IsVisible() {
		s.damage(region.Rect(c.Geometry()))
	}
	s.registry.NotifyWindowAdded(w)
	logging.Logger().Debug("window added", "window", w.handle, "caption", c.Caption())
	return w.handle
}

// Window resolves a handle. Stale handles report false.
func (s *Scene) Window(h arena.Handle) (*Window, bool) {
	return s.windows.Get(h)
}

// WindowDamaged records damage in window coordinates.
func (s *Scene) WindowDamaged(h arena.Handle, r region.Region) error {
	w, ok := s.live(h)
	if !ok {
		return ErrUnknownWindow
	}
	g := w.Geometry()
	local := r.IntersectRect(image.Rect(0, 0, g.Dx(), g.Dy()))
	w.dirty = w.dirty.Union(local)
	if w.client.IsVisible() {
		s.damage(local.Translate(g.Min))
	}
	return nil
}

// GeometryChanged damages the old and the new geometry of a window.
func (s *Scene) GeometryChanged(h arena.Handle, old image.Rectangle) error {
	w, ok := s.live(h)
	if !ok {
		return ErrUnknownWindow
	}
	g := w.Geometry()
	if g.Size() != old.Size() {
		w.fullDirty = true
	}
	s.damage(region.Rect(old).UnionRect(g))
	return nil
}

// VisibilityChanged damages the geometry of a window that was mapped,
// unmapped, minimized or restored.
func (s *Scene) VisibilityChanged(h arena.Handle) error {
	w, ok := s.live(h)
	if !ok {
		return ErrUnknownWindow
	}
	s.damage(region.Rect(w.Geometry()))
	return nil
}

// Activate notifies effects that a window got focus.
func (s *Scene) Activate(h arena.Handle) error {
	w, ok := s.live(h)
	if !ok {
		return ErrUnknownWindow
	}
	s.registry.NotifyWindowActivated(w)
	return nil
}

// DestroyWindow removes a client. A visible window turns into a remnant
// that stays in the stacking order while effects reference it.
func (s *Scene) DestroyWindow(h arena.Handle) error {
	w, ok := s.live(h)
	if !ok {
		return ErrUnknownWindow
	}
	if !w.client.IsVisible() {
		s.registry.NotifyWindowClosed(w)
		s.discard(w)
		return nil
	}
	if err := s.prepare(w); err != nil {
		logging.Logger().Warn("no texture for closed window", "window", h, "err", err)
	}
	w.remnant = newRemnant(w)
	w.client = nil
	w.dirty = region.Region{}
	w.fullDirty = false

	s.registry.NotifyWindowClosed(w)
	w.remnant.Unref()
	return nil
}

// SetStackingOrder replaces the stacking order of live windows, bottom to
// top. Remnants keep their position.
func (s *Scene) SetStackingOrder(order []arena.Handle) {
	next := make([]arena.Handle, 0, len(s.order))
	for _, h := range order {
		if w, ok := s.live(h); ok && !slices.Contains(next, w.handle) {
			next = append(next, h)
		}
	}
	for i, h := range s.order {
		if w, ok := s.windows.Get(h); ok && w.remnant != nil {
			next = slices.Insert(next, min(i, len(next)), h)
		}
	}
	s.order = next
	for _, w := range s.windows.All() {
		if w.IsVisible() {
			s.damage(region.Rect(w.Geometry()))
		}
	}
}

// Order returns a copy of the stacking order, bottom to top.
func (s *Scene) Order() []arena.Handle {
	return slices.Clone(s.order)
}

// Pin keeps the texture of a window while it is hidden.
func (s *Scene) Pin(h arena.Handle) {
	if w, ok := s.windows.Get(h); ok {
		w.pins++
	}
}

// Unpin drops a pin taken with Pin.
func (s *Scene) Unpin(h arena.Handle) {
	w, ok := s.windows.Get(h)
	if !ok {
		return
	}
	if w.pins == 0 {
		logging.Logger().Warn("unpin without pin", "window", h)
		return
	}
	w.pins--
}

// Close releases every window. Remnants still referenced by effects are
// destroyed anyway; this is reported as ErrRemnantReferenced.
func (s *Scene) Close() error {
	var leaked int
	for _, w := range s.windows.All() {
		if w.remnant != nil && w.remnant.refs > 0 {
			leaked++
			logging.Logger().Error("remnant destroyed while referenced",
				"window", w.handle, "refs", w.remnant.refs)
		}
		s.release(w)
	}
	s.order = nil
	s.snapshot = nil
	s.teardown = nil
	s.bracketed = false
	if leaked > 0 {
		return fmt.Errorf("%w: %d remnants", ErrRemnantReferenced, leaked)
	}
	return nil
}

// damage forwards window damage to the damage sink.
func (s *Scene) damage(r region.Region) {
	if s.onDamage != nil && !r.IsEmpty() {
		s.onDamage(r)
	}
}

func (s *Scene) live(h arena.Handle) (*Window, bool) {
	w, ok := s.windows.Get(h)
	if !ok || w.remnant != nil {
		return nil, false
	}
	return w, true
}

// discard takes a window out of the stacking order. Render resources are
// released right away outside a frame and after the frame otherwise.
func (s *Scene) discard(w *Window) {
	if i := slices.Index(s.order, w.handle); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	s.registry.ForgetWindow(w.handle)
	if w.IsVisible() {
		s.damage(region.Rect(w.Geometry()))
	}
	if s.bracketed {
		s.teardown = append(s.teardown, w)
		return
	}
	s.release(w)
}

func (s *Scene) release(w *Window) {
	if w.texture != nil {
		w.texture.Destroy()
		w.texture = nil
	}
	if w.remnant != nil {
		w.remnant.discarded = true
	}
	s.windows.Remove(w.handle)
}

// prepare creates the texture of a window and uploads pending damage.
func (s *Scene) prepare(w *Window) error {
	if w.texture == nil {
		if s.factory == nil {
			return ErrNoTextureFactory
		}
		g := w.Geometry()
		if g.Empty() {
			return nil
		}
		tex, err := s.factory.NewTexture(render.WindowTextureDescriptor(w.label(), g.Dx(), g.Dy()))
		if err != nil {
			return fmt.Errorf("scene: texture for %s: %w", w.handle, err)
		}
		w.texture = tex
		w.fullDirty = true
	}
	if w.client == nil {
		return nil
	}
	img := w.client.Image()
	if img == nil {
		return nil
	}
	dirty := w.dirty
	if w.fullDirty {
		b := img.Bounds()
		dirty = region.Rect(image.Rect(0, 0, b.Dx(), b.Dy()))
	}
	if dirty.IsEmpty() {
		return nil
	}
	if err := w.texture.Update(img, dirty); err != nil {
		return err
	}
	w.dirty = region.Region{}
	w.fullDirty = false
	return nil
}
