// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Memory management errors.
var (
	// ErrMemoryBudgetExceeded is returned when a texture does not fit the
	// budget even after eviction.
	ErrMemoryBudgetExceeded = errors.New("gpu: memory budget exceeded")

	// ErrMemoryManagerClosed is returned when operating on a closed manager.
	ErrMemoryManagerClosed = errors.New("gpu: memory manager closed")
)

// Default memory limits.
const (
	// DefaultMaxMemoryMB is the default texture budget (256 MB).
	DefaultMaxMemoryMB = 256

	// MinMemoryMB is the minimum allowed budget (16 MB).
	MinMemoryMB = 16
)

// MemoryStats contains texture memory usage statistics.
type MemoryStats struct {
	// TotalBytes is the memory budget in bytes.
	TotalBytes uint64

	// UsedBytes is the memory held by resident textures.
	UsedBytes uint64

	// AvailableBytes is the remaining budget.
	AvailableBytes uint64

	// TextureCount is the number of resident textures.
	TextureCount int

	// EvictionCount is the total number of textures evicted.
	EvictionCount uint64

	// Utilization is the fraction of the budget in use (0.0 to 1.0).
	Utilization float64
}

// String returns a human-readable summary.
func (s MemoryStats) String() string {
	return fmt.Sprintf("Memory[%.1f%% used, %d/%d MB, %d textures, %d evictions]",
		s.Utilization*100,
		s.UsedBytes/(1024*1024),
		s.TotalBytes/(1024*1024),
		s.TextureCount,
		s.EvictionCount)
}

// residency tracks a resident texture in the LRU list.
type residency struct {
	texture   *Texture
	sizeBytes uint64
	lastUsed  time.Time
	element   *list.Element
}

// MemoryManager keeps the device copies of window textures within a
// budget. When a texture does not fit, the least recently used textures
// are evicted: their device copy is dropped and recreated from the CPU
// shadow on their next upload, so window contents survive eviction.
//
// The manager lock is always taken before a texture lock.
//
// MemoryManager is safe for concurrent use.
type MemoryManager struct {
	mu sync.Mutex

	budgetBytes   uint64
	usedBytes     uint64
	textures      map[*Texture]*residency
	lru           *list.List
	evictionCount uint64
	closed        bool
}

// NewMemoryManager creates a manager with a budget in megabytes.
// Budgets below MinMemoryMB are raised; zero selects DefaultMaxMemoryMB.
func NewMemoryManager(megabytes int) *MemoryManager {
	if megabytes == 0 {
		megabytes = DefaultMaxMemoryMB
	}
	megabytes = max(megabytes, MinMemoryMB)
	return &MemoryManager{
		//nolint:gosec // G115: megabytes bounded by MinMemoryMB minimum
		budgetBytes: uint64(megabytes) * 1024 * 1024,
		textures:    make(map[*Texture]*residency),
		lru:         list.New(),
	}
}

// reserve makes tex resident, evicting other textures if needed.
func (m *MemoryManager) reserve(tex *Texture, sizeBytes uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrMemoryManagerClosed
	}
	if r, ok := m.textures[tex]; ok {
		m.usedBytes -= r.sizeBytes
		r.sizeBytes = sizeBytes
		m.usedBytes += sizeBytes
		r.lastUsed = time.Now()
		m.lru.MoveToFront(r.element)
		return m.evictLocked(0, tex)
	}
	if sizeBytes > m.budgetBytes {
		return fmt.Errorf("%w: texture size %d MB exceeds total budget %d MB",
			ErrMemoryBudgetExceeded, sizeBytes/(1024*1024), m.budgetBytes/(1024*1024))
	}
	if err := m.evictLocked(sizeBytes, nil); err != nil {
		return err
	}
	if err := tex.bind(); err != nil {
		return err
	}
	r := &residency{texture: tex, sizeBytes: sizeBytes, lastUsed: time.Now()}
	r.element = m.lru.PushFront(r)
	m.textures[tex] = r
	m.usedBytes += sizeBytes
	return nil
}

// touch marks tex as recently used.
func (m *MemoryManager) touch(tex *Texture) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.textures[tex]; ok {
		r.lastUsed = time.Now()
		m.lru.MoveToFront(r.element)
	}
}

// release forgets tex and returns its memory.
func (m *MemoryManager) release(tex *Texture) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.textures[tex]; ok {
		m.removeLocked(r)
	}
}

// Resident reports whether tex holds a device copy.
func (m *MemoryManager) Resident(tex *Texture) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.textures[tex]
	return ok
}

// Stats returns current memory usage statistics.
func (m *MemoryManager) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	var utilization float64
	if m.budgetBytes > 0 {
		utilization = float64(m.usedBytes) / float64(m.budgetBytes)
	}
	return MemoryStats{
		TotalBytes:     m.budgetBytes,
		UsedBytes:      m.usedBytes,
		AvailableBytes: m.budgetBytes - min(m.usedBytes, m.budgetBytes),
		TextureCount:   len(m.textures),
		EvictionCount:  m.evictionCount,
		Utilization:    utilization,
	}
}

// SetBudget updates the budget, evicting textures if usage now exceeds it.
func (m *MemoryManager) SetBudget(megabytes int) error {
	megabytes = max(megabytes, MinMemoryMB)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrMemoryManagerClosed
	}
	//nolint:gosec // G115: megabytes bounded by MinMemoryMB minimum
	m.budgetBytes = uint64(megabytes) * 1024 * 1024
	return m.evictLocked(0, nil)
}

// Close drops every device copy. The manager cannot be used afterwards.
func (m *MemoryManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	for _, r := range m.textures {
		r.texture.unbind()
	}
	m.textures = nil
	m.lru = nil
	m.usedBytes = 0
	m.closed = true
}

func (m *MemoryManager) removeLocked(r *residency) {
	m.lru.Remove(r.element)
	delete(m.textures, r.texture)
	m.usedBytes -= r.sizeBytes
}

// evictLocked evicts least recently used textures other than keep until
// requested bytes fit. Caller must hold mu.
func (m *MemoryManager) evictLocked(requested uint64, keep *Texture) error {
	for m.usedBytes+requested > m.budgetBytes {
		elem := m.lru.Back()
		for elem != nil && elem.Value.(*residency).texture == keep {
			elem = elem.Prev()
		}
		if elem == nil {
			break
		}
		r := elem.Value.(*residency)
		m.removeLocked(r)
		r.texture.unbind()
		m.evictionCount++
	}
	if m.usedBytes+requested > m.budgetBytes {
		return fmt.Errorf("%w: need %d bytes, have %d bytes available",
			ErrMemoryBudgetExceeded, requested, m.budgetBytes-min(m.usedBytes, m.budgetBytes))
	}
	return nil
}
