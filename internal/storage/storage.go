// Package storage archives the trails the companion draws.
package storage

import (
	"errors"
	"time"

	"github.com/OCAP2/trail/pkg/scene"
)

// ErrNotSupported is returned by backends that cannot serve a query.
var ErrNotSupported = errors.New("not supported by this storage backend")

// TrailRecord describes one trail curve created on the host.
type TrailRecord struct {
	TokenID   string
	TrailID   string
	SceneID   string
	Color     string
	Points    []scene.Vector2
	Length    float64
	Path      string // WKT LINESTRING
	CreatedAt time.Time
}

// RemovalRecord describes one attempt to remove a previous trail.
type RemovalRecord struct {
	TokenID   string
	TrailID   string
	SceneID   string
	Error     string // empty on success
	RemovedAt time.Time
}

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Recording
	RecordTrail(r TrailRecord) error
	RecordRemoval(r RemovalRecord) error

	// RecentTrails returns up to limit trails, newest first. An empty
	// tokenID matches every token.
	RecentTrails(tokenID string, limit int) ([]TrailRecord, error)
}
