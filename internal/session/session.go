package session

import (
	"log/slog"
	"sync"
	"time"
)

// NoScene is reported until the host announces a scene.
const NoScene = "No scene loaded"

// Context holds the current host session state
type Context struct {
	mu        sync.RWMutex
	sceneID   string
	connected bool
	readyAt   time.Time
	enabled   bool
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{sceneID: NoScene, enabled: true}
}

// SceneID returns the current scene
func (c *Context) SceneID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sceneID
}

// SetScene records the scene announced by the host
func (c *Context) SetScene(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == "" {
		id = NoScene
	}
	c.sceneID = id
	c.readyAt = time.Now()
}

// ReadyAt returns when the current scene was announced. Zero if never.
func (c *Context) ReadyAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.readyAt
}

// Connected reports whether the host connection is up
func (c *Context) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// SetConnected records the host connection state
func (c *Context) SetConnected(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = v
}

// TrailsEnabled reports the last known state of the trails preference.
func (c *Context) TrailsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetTrailsEnabled records the trails preference
func (c *Context) SetTrailsEnabled(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = v
}

// Attrs returns the session as log attributes, for logging.ContextHandler.
func (c *Context) Attrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return []slog.Attr{
		slog.String("scene", c.sceneID),
		slog.Bool("hostConnected", c.connected),
		slog.Bool("trailsEnabled", c.enabled),
	}
}
