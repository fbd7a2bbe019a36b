// Package memory is an in-process host. It keeps the scene in a map and
// reports every change to an EventSink the way the websocket host does.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/OCAP2/trail/internal/dispatcher"
	"github.com/OCAP2/trail/pkg/scene"
	"github.com/OCAP2/trail/pkg/streaming"
)

// EventSink receives scene events.
type EventSink interface {
	Dispatch(e dispatcher.Event) (any, error)
}

// Host is an in-memory scene.
type Host struct {
	mu     sync.Mutex
	items  map[scene.ItemID]scene.Item
	order  []scene.ItemID
	nextID int
	sink   EventSink

	// FailAdd and FailDelete, when set, make the next calls fail.
	FailAdd    error
	FailDelete error
}

// New creates an empty scene. sink may be nil.
func New(sink EventSink) *Host {
	return &Host{
		items: make(map[scene.ItemID]scene.Item),
		sink:  sink,
	}
}

// Ready announces the scene to the sink.
func (h *Host) Ready(sceneID string) {
	h.emit(streaming.TypeReady, streaming.ReadyPayload{SceneID: sceneID})
}

// Put inserts or replaces items without an event.
func (h *Host) Put(items ...scene.Item) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, it := range items {
		h.putLocked(it)
	}
}

// Move sets an item's position and reports the full scene.
func (h *Host) Move(id scene.ItemID, x, y float64) error {
	h.mu.Lock()
	it, ok := h.items[id]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("item not found: %s", id)
	}
	it.Position = &scene.Vector2{X: x, Y: y}
	h.items[id] = it
	snapshot := h.snapshotLocked()
	h.mu.Unlock()

	h.emit(streaming.TypeItemsChanged, snapshot)
	return nil
}

// Remove deletes an item and reports the full scene.
func (h *Host) Remove(id scene.ItemID) {
	h.mu.Lock()
	h.deleteLocked(id)
	snapshot := h.snapshotLocked()
	h.mu.Unlock()

	h.emit(streaming.TypeItemsChanged, snapshot)
}

// Items returns the scene in insertion order.
func (h *Host) Items() []scene.Item {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

// Curves returns the curve items sorted by ID.
func (h *Host) Curves() []scene.Item {
	var out []scene.Item
	for _, it := range h.Items() {
		if it.Type == scene.TypeCurve {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetItems returns the scene.
func (h *Host) GetItems(_ context.Context) ([]scene.Item, error) {
	return h.Items(), nil
}

// AddItems stores items under new IDs and returns them.
func (h *Host) AddItems(ctx context.Context, items []scene.Item) ([]scene.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	if h.FailAdd != nil {
		err := h.FailAdd
		h.mu.Unlock()
		return nil, err
	}
	out := make([]scene.Item, 0, len(items))
	for _, it := range items {
		h.nextID++
		it.ID = fmt.Sprintf("item-%d", h.nextID)
		h.putLocked(it)
		out = append(out, it)
	}
	snapshot := h.snapshotLocked()
	h.mu.Unlock()

	h.emit(streaming.TypeItemsChanged, snapshot)
	return out, nil
}

// DeleteItems removes items. Unknown IDs are an error.
func (h *Host) DeleteItems(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	if h.FailDelete != nil {
		err := h.FailDelete
		h.mu.Unlock()
		return err
	}
	for _, id := range ids {
		if _, ok := h.items[id]; !ok {
			h.mu.Unlock()
			return fmt.Errorf("item not found: %s", id)
		}
	}
	for _, id := range ids {
		h.deleteLocked(id)
	}
	snapshot := h.snapshotLocked()
	h.mu.Unlock()

	h.emit(streaming.TypeItemsChanged, snapshot)
	return nil
}

func (h *Host) putLocked(it scene.Item) {
	if _, ok := h.items[it.ID]; !ok {
		h.order = append(h.order, it.ID)
	}
	h.items[it.ID] = it
}

func (h *Host) deleteLocked(id scene.ItemID) {
	if _, ok := h.items[id]; !ok {
		return
	}
	delete(h.items, id)
	for i, o := range h.order {
		if o == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

func (h *Host) snapshotLocked() []scene.Item {
	out := make([]scene.Item, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.items[id])
	}
	return out
}

func (h *Host) emit(msgType string, payload any) {
	if h.sink == nil {
		return
	}
	_, _ = h.sink.Dispatch(dispatcher.Event{Type: msgType, Payload: payload, Timestamp: time.Now()})
}
