// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compositor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/compositor/arena"
	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/config"
	"github.com/gogpu/compositor/damage"
	"github.com/gogpu/compositor/effect"
	"github.com/gogpu/compositor/effects"
	"github.com/gogpu/compositor/internal/logging"
	"github.com/gogpu/compositor/output"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
	"github.com/gogpu/compositor/scene"
	"github.com/gogpu/compositor/schedule"
)

// Compositor errors.
var (
	// ErrUnknownOutput is returned for an output ID that is not plugged.
	ErrUnknownOutput = errors.New("compositor: unknown output")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("compositor: closed")
)

// Compositor paints windows onto outputs.
//
// Outputs, windows and effects are changed on the rendering goroutine:
// the one calling Run, or Tick in tests. Other goroutines hand changes to
// it with Post. Damage may be reported from any goroutine through the
// tracker returned by Damage.
type Compositor struct {
	backend   backend.Backend
	outputs   *output.Manager
	tracker   *damage.Tracker
	registry  *effect.Registry
	chain     *effect.Chain
	scene     *scene.Scene
	targets   *render.TargetPool
	scheduler *schedule.Scheduler
	host      *host

	clock       func() time.Duration
	refreshRate int
	unsubscribe func()
	closed      bool
}

// New creates a compositor presenting through b. A nil b selects a
// registered backend, see WithBackend. The backend is initialized and
// owned by the compositor from then on.
func New(b backend.Backend, opts ...Option) (*Compositor, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if b == nil {
		var err error
		if o.backendName != "" {
			b, err = backend.New(o.backendName, o.backendOpts)
		} else {
			b, err = backend.Default(o.backendOpts)
		}
		if err != nil {
			return nil, fmt.Errorf("compositor: %w", err)
		}
	} else if err := b.Init(); err != nil {
		return nil, fmt.Errorf("compositor: init %s: %w", b.Name(), err)
	}
	logging.Logger().Info("backend selected", "backend", b.Name(), "buffer_age", b.SupportsBufferAge())

	c := &Compositor{
		backend:     b,
		outputs:     output.NewManager(),
		tracker:     damage.NewTracker(),
		registry:    effect.NewRegistry(),
		refreshRate: o.refreshRate,
		clock:       o.clock,
	}
	if c.clock == nil {
		start := time.Now()
		c.clock = func() time.Duration { return time.Since(start) }
	}
	c.chain = effect.NewChain(c.registry, nil)

	sceneOpts := []scene.Option{
		scene.WithTextureFactory(scene.TextureFactoryFunc(b.NewTexture)),
		scene.WithRetention(o.retention),
		scene.WithDamageFunc(c.damageAll),
	}
	if o.background != nil {
		sceneOpts = append(sceneOpts, scene.WithBackground(o.background))
	}
	c.scene = scene.New(c.chain, sceneOpts...)
	c.scene.SetDesktops(o.desktops)

	var alloc render.TargetAllocator
	if d, ok := b.(interface{ Device() backend.Device }); ok {
		alloc = d.Device().NewBuffer
	}
	c.targets = render.NewTargetPool(alloc, 0)
	c.host = &host{c: c}

	schedOpts := []schedule.Option{schedule.WithPrepare(c.prepareTick)}
	if o.interval > 0 {
		schedOpts = append(schedOpts, schedule.WithInterval(o.interval))
	}
	c.scheduler = schedule.New(c, c.tracker, c.outputs, schedOpts...)
	c.unsubscribe = c.outputs.Subscribe(c.outputEvent)

	for _, req := range o.effects {
		if err := c.LoadEffect(req.effect, req.position); err != nil {
			c.Close()
			return nil, err
		}
	}
	if o.config != nil {
		if err := c.Reconfigure(o.config); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// Backend returns the presentation backend.
func (c *Compositor) Backend() backend.Backend { return c.backend }

// Outputs returns the output manager.
func (c *Compositor) Outputs() *output.Manager { return c.outputs }

// Scene returns the scene.
func (c *Compositor) Scene() *scene.Scene { return c.scene }

// Effects returns the effect registry.
func (c *Compositor) Effects() *effect.Registry { return c.registry }

// Scheduler returns the repaint scheduler.
func (c *Compositor) Scheduler() *schedule.Scheduler { return c.scheduler }

// Damage returns the damage tracker.
func (c *Compositor) Damage() *damage.Tracker { return c.tracker }

// Host returns the compositor as seen by effects.
func (c *Compositor) Host() effect.Host { return c.host }

// Post queues fn to run on the rendering goroutine before the next frame.
func (c *Compositor) Post(fn func()) { c.scheduler.Post(fn) }

// AddOutput plugs an output. Outputs without a refresh rate get the one
// set with WithRefreshRate.
func (c *Compositor) AddOutput(cfg output.Config) *output.Output {
	if cfg.RefreshRate <= 0 {
		cfg.RefreshRate = c.refreshRate
	}
	return c.outputs.Add(cfg)
}

// RemoveOutput unplugs an output.
func (c *Compositor) RemoveOutput(id output.ID) error {
	return c.outputs.Remove(id)
}

// EnableOutput turns an output on.
func (c *Compositor) EnableOutput(id output.ID) error {
	return c.outputs.Enable(id)
}

// DisableOutput turns an output off. A frame in progress on it is
// abandoned.
func (c *Compositor) DisableOutput(id output.ID) error {
	return c.outputs.Disable(id)
}

// ApplyOutputConfiguration changes several outputs at once after the
// backend accepted every one of them. On any rejection nothing changes.
func (c *Compositor) ApplyOutputConfiguration(p output.Proposal) error {
	return c.outputs.Apply(p, c.backend)
}

// AddWindow adds a client window on top of the stacking order.
func (c *Compositor) AddWindow(client scene.Client) arena.Handle {
	return c.scene.AddWindow(client)
}

// DestroyWindow removes a window.
func (c *Compositor) DestroyWindow(h arena.Handle) error {
	return c.scene.DestroyWindow(h)
}

// WindowDamaged reports changed contents of a window, r in window
// coordinates.
func (c *Compositor) WindowDamaged(h arena.Handle, r region.Region) error {
	return c.scene.WindowDamaged(h, r)
}

// SetStackingOrder replaces the stacking order, bottom to top.
func (c *Compositor) SetStackingOrder(order []arena.Handle) {
	c.scene.SetStackingOrder(order)
}

// LoadEffect loads e at position in the effect chain.
func (c *Compositor) LoadEffect(e effect.Effect, position int) error {
	if l, ok := e.(effect.Loader); ok {
		if err := l.Load(c.host); err != nil {
			return fmt.Errorf("compositor: load %s: %w", e.Name(), err)
		}
	}
	if err := c.registry.Register(e, position); err != nil {
		if u, ok := e.(effect.Unloader); ok {
			u.Unload()
		}
		return err
	}
	c.registry.RequestFullRepaint()
	return nil
}

// UnloadEffect unloads the named effect.
func (c *Compositor) UnloadEffect(name string) error {
	return c.registry.Unregister(name)
}

// DeliverKey hands a key event to the effect grabbing the keyboard. It
// reports whether an effect took it; otherwise it belongs to the focused
// client.
func (c *Compositor) DeliverKey(ev effect.KeyEvent) bool {
	return c.registry.DeliverKey(ev)
}

// DeliverPointer hands a pointer event to intercepting effects and
// reports whether any took it.
func (c *Compositor) DeliverPointer(ev effect.PointerEvent) bool {
	return c.registry.DeliverPointer(ev)
}

// Reconfigure applies a configuration: desktops, texture retention,
// built-in effects and outputs. Built-in effects are loaded, reconfigured
// or unloaded to match cfg. Outputs are matched by name; unknown names
// are plugged as new outputs and the others are changed together.
//
// A loaded effect keeps its chain position; a new position takes effect
// when the effect is loaded again.
func (c *Compositor) Reconfigure(cfg *config.Config) error {
	c.scene.SetDesktops(cfg.Desktops)
	c.scene.SetRetention(scene.RetentionPolicy{HiddenFrames: cfg.RetentionFrames})
	c.refreshRate = cfg.RefreshMillihertz()

	var errs []error
	for _, name := range effects.Names() {
		ec, ok := cfg.Effects[name]
		want := ok && ec.Enabled
		loaded := c.registry.IsLoaded(name)
		switch {
		case want && loaded:
			errs = append(errs, c.registry.Reconfigure(name, ec.Settings))
		case want:
			errs = append(errs, c.loadBuiltin(name, ec))
		case loaded:
			errs = append(errs, c.registry.Unregister(name))
		}
	}

	byName := make(map[string]*output.Output)
	for _, o := range c.outputs.All() {
		byName[o.Name()] = o
	}
	proposal := output.Proposal{}
	for _, entry := range cfg.Outputs {
		want := cfg.OutputConfig(entry)
		if o, ok := byName[want.Name]; ok {
			proposal[o.ID()] = want
			continue
		}
		c.AddOutput(want)
	}
	if len(proposal) > 0 {
		errs = append(errs, c.ApplyOutputConfiguration(proposal))
	}
	return errors.Join(errs...)
}

func (c *Compositor) loadBuiltin(name string, ec config.Effect) error {
	e, err := effects.New(name)
	if err != nil {
		return err
	}
	pos, _ := effects.Position(name)
	if ec.HasPosition {
		pos = ec.Position
	}
	if conf, ok := e.(effect.Configurable); ok && len(ec.Settings) > 0 {
		conf.Reconfigure(ec.Settings)
	}
	return c.LoadEffect(e, pos)
}

// PaintOutput paints and presents one frame of an output: it takes the
// pending damage, begins a frame, runs the scene through the effect chain
// and ends the frame. On failure the damage is put back. A frame whose
// output is disabled while painting is abandoned.
func (c *Compositor) PaintOutput(ctx context.Context, id output.ID) error {
	if c.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	o, ok := c.outputs.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownOutput, id)
	}
	c.flushRepaints()

	pending := c.tracker.SnapshotAndClear(id)
	f, err := c.backend.BeginFrame(o)
	if err != nil {
		c.tracker.Restore(id, pending)
		return err
	}
	if err := f.Draw(); err != nil {
		c.backend.AbandonFrame(f)
		c.tracker.Restore(id, pending)
		return err
	}
	if _, err := c.scene.CreateStackingOrder(c.scene.Order()); err != nil {
		c.backend.AbandonFrame(f)
		c.tracker.Restore(id, pending)
		return err
	}
	defer c.scene.ClearStackingOrder()

	res, err := c.scene.PaintOutput(scene.Frame{
		Output:      outputInfo(o),
		Painter:     f.Painter,
		Stack:       f.Stack,
		Pending:     pending,
		Repair:      f.Repair,
		PresentTime: c.clock(),
	})
	if err != nil {
		c.backend.AbandonFrame(f)
		c.tracker.Restore(id, pending)
		return err
	}
	if !o.IsEnabled() {
		c.backend.AbandonFrame(f)
		return nil
	}

	result, err := c.backend.EndFrame(f, res.Rendered, res.Damaged)
	if err != nil {
		c.tracker.Restore(id, pending)
		return err
	}
	logging.Logger().Debug("frame",
		"output", o.Name(),
		"age", result.Age,
		"presented", result.Presented,
		"damage", result.Damage.Bounds(),
		"rendered", res.Rendered.Bounds())
	return nil
}

// Tick runs one scheduler pass and returns the number of frames
// presented.
func (c *Compositor) Tick(ctx context.Context) int {
	return c.scheduler.Tick(ctx)
}

// Run paints until ctx is done. With a configuration path it also
// reloads the configuration when the file changes.
func (c *Compositor) Run(ctx context.Context, configPath string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.scheduler.Run(ctx)
	})
	if configPath != "" {
		g.Go(func() error {
			return config.Watch(ctx, configPath, func(cfg *config.Config) {
				c.Post(func() {
					if err := c.Reconfigure(cfg); err != nil {
						logging.Logger().Warn("configuration not fully applied", "err", err)
					}
				})
			})
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close unloads every effect, releases all windows and closes the
// backend. Remnants still referenced are reported as an error.
func (c *Compositor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	for _, name := range c.registry.Loaded() {
		if err := c.registry.Unregister(name); err != nil {
			logging.Logger().Warn("effect unload failed", "effect", name, "err", err)
		}
	}
	c.unsubscribe()
	err := c.scene.Close()
	c.targets.Close()
	c.backend.Close()
	return err
}

// outputEvent keeps damage tracking and backend resources in step with
// hot-plug.
func (c *Compositor) outputEvent(ev output.Event, o *output.Output) {
	id := o.ID()
	switch ev {
	case output.EventAdded:
		c.tracker.Track(id, o.Geometry())
	case output.EventRemoved:
		c.tracker.Untrack(id)
		c.scheduler.Forget(id)
		c.backend.OutputRemoved(id)
	case output.EventChanged:
		if err := c.tracker.SetGeometry(id, o.Geometry()); err != nil {
			logging.Logger().Debug("output change ignored", "output", o.Name(), "err", err)
		}
		if o.IsEnabled() {
			c.scheduler.Schedule(id)
		}
	}
}

// prepareTick starts a scene frame and flushes full repaint requests
// before the scheduler checks outputs for damage.
func (c *Compositor) prepareTick() {
	c.scene.NextFrame()
	c.flushRepaints()
}

// flushRepaints turns a full repaint requested by effects into damage.
func (c *Compositor) flushRepaints() {
	if c.registry.TakeFullRepaint() {
		c.host.AddRepaintFull()
	}
}

// damageAll routes scene damage to every output it overlaps.
func (c *Compositor) damageAll(r region.Region) {
	c.tracker.AddDamageAll(r)
}

func outputInfo(o *output.Output) effect.OutputInfo {
	return effect.OutputInfo{
		ID:       uint32(o.ID()),
		Name:     o.Name(),
		Geometry: o.Geometry(),
		Scale:    o.Scale(),
	}
}

