// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package output

import (
	"errors"
	"fmt"
	"image"
	"maps"
	"slices"
	"sync"

	"github.com/gogpu/compositor/internal/logging"
)

// Errors returned by the manager.
var (
	ErrUnknownOutput  = errors.New("output: unknown output")
	ErrConfigRejected = errors.New("output: configuration rejected")
)

// Event is a change notified to listeners.
type Event uint8

// Output events.
const (
	EventAdded Event = iota + 1
	EventRemoved
	EventChanged
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	case EventChanged:
		return "changed"
	default:
		return "unknown"
	}
}

// Listener receives output events. It is called without locks held.
type Listener func(ev Event, o *Output)

// Tester validates a proposed configuration for one output without
// applying it.
type Tester interface {
	TestConfig(o *Output, cfg Config) error
}

// TesterFunc adapts a function to Tester.
type TesterFunc func(o *Output, cfg Config) error

// TestConfig calls f.
func (f TesterFunc) TestConfig(o *Output, cfg Config) error { return f(o, cfg) }

// Proposal is a configuration change for several outputs at once.
type Proposal map[ID]Config

// Manager tracks the outputs of the system.
//
// Methods are safe for concurrent use. Methods that change configuration
// clear buffer-age histories and therefore run on the rendering goroutine.
type Manager struct {
	mu        sync.RWMutex
	outputs   map[ID]*Output
	order     []ID
	nextID    ID
	listeners map[int]Listener
	nextSub   int
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		outputs:   make(map[ID]*Output),
		listeners: make(map[int]Listener),
	}
}

// Add registers a hot-plugged output.
func (m *Manager) Add(cfg Config) *Output {
	m.mu.Lock()
	m.nextID++
	o := &Output{id: m.nextID, cfg: cfg.normalize()}
	m.outputs[o.id] = o
	m.order = append(m.order, o.id)
	m.mu.Unlock()

	logging.Logger().Info("output added", "output", o.String(), "enabled", cfg.Enabled)
	m.emit(EventAdded, o)
	return o
}

// Remove unregisters an unplugged output.
func (m *Manager) Remove(id ID) error {
	m.mu.Lock()
	o, ok := m.outputs[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownOutput, id)
	}
	delete(m.outputs, id)
	m.order = slices.DeleteFunc(m.order, func(v ID) bool { return v == id })
	m.mu.Unlock()

	o.history.Clear()
	logging.Logger().Info("output removed", "output", o.String())
	m.emit(EventRemoved, o)
	return nil
}

// Get returns an output by ID.
func (m *Manager) Get(id ID) (*Output, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.outputs[id]
	return o, ok
}

// All returns the outputs in plug order.
func (m *Manager) All() []*Output {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Output, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.outputs[id])
	}
	return out
}

// Enabled returns the enabled outputs in plug order.
func (m *Manager) Enabled() []*Output {
	all := m.All()
	return slices.DeleteFunc(all, func(o *Output) bool { return !o.IsEnabled() })
}

// Len returns the number of outputs.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.outputs)
}

// Enable turns an output on.
func (m *Manager) Enable(id ID) error {
	return m.update(id, func(c *Config) { c.Enabled = true })
}

// Disable turns an output off and discards its history.
func (m *Manager) Disable(id ID) error {
	return m.update(id, func(c *Config) { c.Enabled = false })
}

// SetGeometry moves or resizes an output. A new size discards the history.
func (m *Manager) SetGeometry(id ID, r image.Rectangle) error {
	return m.update(id, func(c *Config) { c.Geometry = r })
}

// Configure replaces the configuration of one output without testing it.
func (m *Manager) Configure(id ID, cfg Config) error {
	return m.update(id, func(c *Config) { *c = cfg })
}

func (m *Manager) update(id ID, fn func(*Config)) error {
	o, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownOutput, id)
	}
	cfg := o.Config()
	fn(&cfg)
	if cfg.Name == "" {
		cfg.Name = o.Name()
	}
	if cfg == o.Config() {
		return nil
	}
	if o.set(cfg.normalize()) {
		logging.Logger().Debug("output history discarded", "output", o.String())
	}
	m.emit(EventChanged, o)
	return nil
}

// Apply tests every output of a proposal and applies them together. If any
// output fails its test nothing changes and the returned error wraps
// ErrConfigRejected along with every test failure.
func (m *Manager) Apply(p Proposal, t Tester) error {
	type change struct {
		o   *Output
		cfg Config
	}
	changes := make([]change, 0, len(p))
	var errs []error
	for _, id := range slices.Sorted(maps.Keys(p)) {
		o, ok := m.Get(id)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %d", ErrUnknownOutput, id))
			continue
		}
		cfg := p[id]
		if cfg.Name == "" {
			cfg.Name = o.Name()
		}
		cfg = cfg.normalize()
		if t != nil {
			if err := t.TestConfig(o, cfg); err != nil {
				errs = append(errs, fmt.Errorf("output %s: %w", o.Name(), err))
				continue
			}
		}
		changes = append(changes, change{o: o, cfg: cfg})
	}
	if len(errs) > 0 {
		err := fmt.Errorf("%w: %w", ErrConfigRejected, errors.Join(errs...))
		logging.Logger().Warn("output configuration rejected", "outputs", len(p), "err", err)
		return err
	}

	for _, c := range changes {
		c.o.set(c.cfg)
	}
	for _, c := range changes {
		m.emit(EventChanged, c.o)
	}
	logging.Logger().Info("output configuration applied", "outputs", len(changes))
	return nil
}

// Subscribe registers a listener and returns a function removing it.
func (m *Manager) Subscribe(l Listener) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.listeners[id] = l
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) emit(ev Event, o *Output) {
	m.mu.RLock()
	keys := slices.Sorted(maps.Keys(m.listeners))
	ls := make([]Listener, 0, len(keys))
	for _, k := range keys {
		ls = append(ls, m.listeners[k])
	}
	m.mu.RUnlock()
	for _, l := range ls {
		l(ev, o)
	}
}
