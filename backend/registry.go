// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
)

// Factory creates a backend instance.
type Factory func(opts Options) (Backend, error)

type registration struct {
	name     string
	priority int
	factory  Factory
}

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]registration)
)

// Register registers a backend factory with the given name. Default picks
// the available backend with the highest priority. This is typically
// called from init() functions in backend packages. If a backend with the
// same name is already registered, it is replaced.
func Register(name string, priority int, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = registration{name: name, priority: priority, factory: factory}
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names, highest priority first.
func Available() []string {
	regs := sorted()
	names := make([]string, len(regs))
	for i, r := range regs {
		names[i] = r.name
	}
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// New creates and initializes the backend registered under name.
func New(name string, opts Options) (Backend, error) {
	registryMu.RLock()
	r, ok := backends[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackendNotAvailable, name)
	}
	return create(r, opts)
}

// Default creates the highest priority backend that initializes.
func Default(opts Options) (Backend, error) {
	var errs []error
	for _, r := range sorted() {
		b, err := create(r, opts)
		if err == nil {
			return b, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrBackendNotAvailable
	}
	return nil, fmt.Errorf("%w: %v", ErrBackendNotAvailable, errs)
}

func create(r registration, opts Options) (Backend, error) {
	b, err := r.factory(opts)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", r.name, err)
	}
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrBackendNotAvailable, r.name)
	}
	if err := b.Init(); err != nil {
		return nil, fmt.Errorf("backend %s: init: %w", r.name, err)
	}
	return b, nil
}

func sorted() []registration {
	registryMu.RLock()
	regs := make([]registration, 0, len(backends))
	for _, r := range backends {
		regs = append(regs, r)
	}
	registryMu.RUnlock()
	slices.SortFunc(regs, func(a, b registration) int {
		if c := cmp.Compare(b.priority, a.priority); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})
	return regs
}
