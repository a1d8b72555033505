// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package schedule drives repaints.
//
// The scheduler is a cooperative loop on a single goroutine. Each tick
// runs the queued events, then paints every enabled output that has
// pending damage or an explicit request. An output is never painted
// twice at once: a request that arrives while its frame is in flight only
// marks it pending. After a failed frame an output waits for new damage
// or an explicit request before it is retried.
package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/compositor/damage"
	"github.com/gogpu/compositor/internal/logging"
	"github.com/gogpu/compositor/output"
)

// Painter paints one frame of an output.
type Painter interface {
	PaintOutput(ctx context.Context, id output.ID) error
}

// PainterFunc adapts a function to Painter.
type PainterFunc func(ctx context.Context, id output.ID) error

// PaintOutput calls f.
func (f PainterFunc) PaintOutput(ctx context.Context, id output.ID) error { return f(ctx, id) }

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval fixes the minimum time between ticks of Run. By default
// it follows the fastest enabled output.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithPrepare sets a function run at the start of every tick, after the
// posted events and before outputs are checked for damage. It turns
// requests kept elsewhere, such as full repaints, into damage.
func WithPrepare(fn func()) Option {
	return func(s *Scheduler) { s.prepare = fn }
}

// Scheduler decides when outputs are repainted.
//
// Post and Schedule may be called from any goroutine, including from
// inside a frame. Tick and Run must not run concurrently with each other.
type Scheduler struct {
	painter  Painter
	tracker  *damage.Tracker
	outputs  *output.Manager
	interval time.Duration
	prepare  func()

	mu        sync.Mutex
	events    []func()
	requested map[output.ID]bool
	inFlight  map[output.ID]bool
	failed    map[output.ID]uint64

	wake   chan struct{}
	frames atomic.Uint64
}

// New creates a scheduler painting the outputs of m through p.
func New(p Painter, tracker *damage.Tracker, m *output.Manager, opts ...Option) *Scheduler {
	s := &Scheduler{
		painter:   p,
		tracker:   tracker,
		outputs:   m,
		requested: make(map[output.ID]bool),
		inFlight:  make(map[output.ID]bool),
		failed:    make(map[output.ID]uint64),
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Post queues fn to run at the start of the next tick.
func (s *Scheduler) Post(fn func()) {
	s.mu.Lock()
	s.events = append(s.events, fn)
	s.mu.Unlock()
	s.signal()
}

// Schedule requests a repaint of an output even without damage. It also
// lifts the retry backoff of a failed output.
func (s *Scheduler) Schedule(id output.ID) {
	s.mu.Lock()
	s.requested[id] = true
	delete(s.failed, id)
	s.mu.Unlock()
	s.signal()
}

// InFlight reports whether a frame of id is being painted.
func (s *Scheduler) InFlight(id output.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[id]
}

// Frames returns the number of frames painted successfully.
func (s *Scheduler) Frames() uint64 { return s.frames.Load() }

// Forget drops the state kept for a removed output.
func (s *Scheduler) Forget(id output.ID) {
	s.mu.Lock()
	delete(s.requested, id)
	delete(s.failed, id)
	s.mu.Unlock()
}

// Tick runs queued events and paints every output that is due. It
// returns the number of frames painted successfully.
func (s *Scheduler) Tick(ctx context.Context) int {
	s.runEvents()
	if s.prepare != nil {
		s.prepare()
	}
	painted := 0
	for _, o := range s.outputs.Enabled() {
		if ctx.Err() != nil {
			break
		}
		id := o.ID()
		serial, due := s.begin(id)
		if !due {
			continue
		}
		err := s.painter.PaintOutput(ctx, id)
		s.finish(id, serial, err)
		if err != nil {
			logging.Logger().Warn("frame failed", "output", o.Name(), "err", err)
			continue
		}
		painted++
		s.frames.Add(1)
	}
	return painted
}

// Run ticks whenever damage or a request arrives, at most once per
// refresh interval, until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	armed := true
	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.tracker.Notify():
		case <-s.wake:
		case <-timer.C:
			armed = false
		}
		if wait := s.period() - time.Since(last); wait > 0 {
			if !armed {
				timer.Reset(wait)
				armed = true
			}
			continue
		}
		last = time.Now()
		s.Tick(ctx)
	}
}

// begin marks id in flight if it is due and returns the damage serial
// observed at that point.
func (s *Scheduler) begin(id output.ID) (uint64, bool) {
	serial := s.tracker.Serial(id)
	pending := s.tracker.Pending(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[id] {
		return 0, false
	}
	due := s.requested[id]
	if !due && pending {
		failedAt, backoff := s.failed[id]
		due = !backoff || failedAt != serial
	}
	if !due {
		return 0, false
	}
	delete(s.requested, id)
	s.inFlight[id] = true
	return serial, true
}

func (s *Scheduler) finish(id output.ID, serial uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
	if err != nil {
		s.failed[id] = serial
		return
	}
	delete(s.failed, id)
}

func (s *Scheduler) runEvents() {
	s.mu.Lock()
	events := s.events
	s.events = nil
	s.mu.Unlock()
	for _, fn := range events {
		fn()
	}
}

// period returns the tick interval of Run.
func (s *Scheduler) period() time.Duration {
	if s.interval > 0 {
		return s.interval
	}
	period := time.Second / 60
	for i, o := range s.outputs.Enabled() {
		if d := o.RefreshInterval(); i == 0 || d < period {
			period = d
		}
	}
	return period
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
