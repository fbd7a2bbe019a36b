package streaming

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/trail/pkg/scene"
)

func TestEnvelope_ItemsChangedDecodes(t *testing.T) {
	raw := `{"type":"items_changed","payload":{"items":[
		{"id":"a","type":"IMAGE","layer":"CHARACTER","position":{"x":5,"y":0}},
		{"id":"b","type":"IMAGE","layer":"MAP"}
	]}}`

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Equal(t, TypeItemsChanged, env.Type)
	assert.Empty(t, env.ID)

	var p ItemsPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	require.Len(t, p.Items, 2)
	assert.Equal(t, &scene.Vector2{X: 5, Y: 0}, p.Items[0].Position)
	assert.Nil(t, p.Items[1].Position, "missing position stays nil")
}

func TestEnvelope_ResultWithError(t *testing.T) {
	raw := `{"type":"result","id":"req-1","payload":{"for":"delete_items","error":"not found"}}`

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Equal(t, "req-1", env.ID)

	var p ResultPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, TypeDeleteItems, p.For)
	assert.Equal(t, "not found", p.Error)
}
