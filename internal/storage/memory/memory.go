// Package memory keeps the trail archive in process memory.
package memory

import (
	"sync"

	"github.com/OCAP2/trail/internal/storage"
)

// DefaultCapacity bounds the number of trails kept when Config leaves it unset.
const DefaultCapacity = 1000

// Config holds configuration for the memory backend.
type Config struct {
	Capacity int
}

// Backend stores the most recent trails and removals. The oldest records
// are dropped once Capacity is reached.
type Backend struct {
	cfg Config

	mu       sync.RWMutex
	trails   []storage.TrailRecord
	removals []storage.RemovalRecord
}

// New creates a new memory storage backend.
func New(cfg Config) *Backend {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	return &Backend{cfg: cfg}
}

// Init is a no-op.
func (b *Backend) Init() error { return nil }

// Close is a no-op.
func (b *Backend) Close() error { return nil }

// RecordTrail stores a trail.
func (b *Backend) RecordTrail(r storage.TrailRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r.Points = append(r.Points[:0:0], r.Points...)
	b.trails = appendBounded(b.trails, r, b.cfg.Capacity)
	return nil
}

// RecordRemoval stores a removal attempt.
func (b *Backend) RecordRemoval(r storage.RemovalRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removals = appendBounded(b.removals, r, b.cfg.Capacity)
	return nil
}

// RecentTrails returns up to limit trails, newest first.
func (b *Backend) RecentTrails(tokenID string, limit int) ([]storage.TrailRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []storage.TrailRecord
	for i := len(b.trails) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if tokenID != "" && b.trails[i].TokenID != tokenID {
			continue
		}
		out = append(out, b.trails[i])
	}
	return out, nil
}

// Removals returns all stored removal attempts, oldest first.
func (b *Backend) Removals() []storage.RemovalRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]storage.RemovalRecord(nil), b.removals...)
}

func appendBounded[T any](s []T, v T, capacity int) []T {
	s = append(s, v)
	if over := len(s) - capacity; over > 0 {
		s = append(s[:0], s[over:]...)
	}
	return s
}
