package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/trail/internal/dispatcher"
	"github.com/OCAP2/trail/pkg/scene"
	"github.com/OCAP2/trail/pkg/streaming"
)

type sink struct {
	mu     sync.Mutex
	events []dispatcher.Event
}

func (s *sink) Dispatch(e dispatcher.Event) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil, nil
}

func token(id string, x, y float64) scene.Item {
	return scene.Item{ID: id, Type: scene.TypeImage, Layer: scene.LayerCharacter, Position: &scene.Vector2{X: x, Y: y}}
}

func TestHost_AddAndDelete(t *testing.T) {
	s := &sink{}
	h := New(s)
	ctx := context.Background()

	created, err := h.AddItems(ctx, []scene.Item{scene.BuildCurve().Build()})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "item-1", created[0].ID)
	assert.Len(t, h.Curves(), 1)

	require.NoError(t, h.DeleteItems(ctx, []string{"item-1"}))
	assert.Empty(t, h.Curves())

	err = h.DeleteItems(ctx, []string{"item-1"})
	assert.ErrorContains(t, err, "item not found")

	require.Len(t, s.events, 2)
	for _, e := range s.events {
		assert.Equal(t, streaming.TypeItemsChanged, e.Type)
	}
}

func TestHost_MoveReportsFullScene(t *testing.T) {
	s := &sink{}
	h := New(s)
	h.Put(token("a", 0, 0), token("b", 1, 1))

	require.NoError(t, h.Move("a", 5, 5))
	assert.Error(t, h.Move("missing", 1, 1))

	require.Len(t, s.events, 1)
	items := s.events[0].Payload.([]scene.Item)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, scene.Vector2{X: 5, Y: 5}, *items[0].Position)
}

func TestHost_ReadyAndRemove(t *testing.T) {
	s := &sink{}
	h := New(s)
	h.Put(token("a", 0, 0))

	h.Ready("scene-1")
	h.Remove("a")

	require.Len(t, s.events, 2)
	assert.Equal(t, streaming.ReadyPayload{SceneID: "scene-1"}, s.events[0].Payload)
	assert.Empty(t, s.events[1].Payload.([]scene.Item))
}

func TestHost_Failures(t *testing.T) {
	h := New(nil)
	h.FailAdd = errors.New("add down")
	h.FailDelete = errors.New("delete down")

	_, err := h.AddItems(context.Background(), []scene.Item{scene.BuildCurve().Build()})
	assert.EqualError(t, err, "add down")
	assert.EqualError(t, h.DeleteItems(context.Background(), []string{"x"}), "delete down")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.FailAdd = nil
	_, err = h.AddItems(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
