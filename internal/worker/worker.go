// Package worker connects host events to the trail tracker and runs the
// tracker's outbound host calls.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/OCAP2/trail/internal/dispatcher"
	"github.com/OCAP2/trail/internal/session"
	"github.com/OCAP2/trail/pkg/scene"
	"github.com/OCAP2/trail/pkg/streaming"
)

// Tracker is the part of trail.Tracker the handlers drive.
type Tracker interface {
	Seed(items []scene.Item)
	Sync(items []scene.Item) int
}

// ItemSource fetches the full scene.
type ItemSource interface {
	GetItems(ctx context.Context) ([]scene.Item, error)
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Tracker        Tracker
	Items          ItemSource
	Session        *session.Context
	Logger         *slog.Logger
	RequestTimeout time.Duration
}

// Manager handles inbound host events
type Manager struct {
	deps Dependencies
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 10 * time.Second
	}
	return &Manager{deps: deps}
}

// RegisterHandlers registers the host event handlers with the dispatcher.
// Both run on buffered blocking queues: ready issues a request whose result
// arrives on the connection's read loop, so it must not run there, and
// snapshots must never be dropped.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(streaming.TypeReady, m.handleReady, dispatcher.Buffered(16), dispatcher.Blocking(), dispatcher.Logged())
	d.Register(streaming.TypeItemsChanged, m.handleItemsChanged, dispatcher.Buffered(1024), dispatcher.Blocking())
}

// handleReady records the scene and seeds baselines from a full fetch.
func (m *Manager) handleReady(e dispatcher.Event) (any, error) {
	p, ok := e.Payload.(streaming.ReadyPayload)
	if !ok {
		return nil, fmt.Errorf("ready: unexpected payload %T", e.Payload)
	}
	m.deps.Session.SetScene(p.SceneID)
	m.deps.Logger.Info("Scene ready", "scene", p.SceneID)

	if m.deps.Items == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.deps.RequestTimeout)
	defer cancel()

	items, err := m.deps.Items.GetItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scene items: %w", err)
	}
	m.deps.Tracker.Seed(items)
	m.deps.Logger.Debug("Seeded token baselines", "items", len(items))
	return len(items), nil
}

// handleItemsChanged feeds a full snapshot to the tracker.
func (m *Manager) handleItemsChanged(e dispatcher.Event) (any, error) {
	items, ok := e.Payload.([]scene.Item)
	if !ok {
		return nil, fmt.Errorf("items_changed: unexpected payload %T", e.Payload)
	}
	return m.deps.Tracker.Sync(items), nil
}
