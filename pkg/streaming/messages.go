package streaming

import (
	"encoding/json"

	"github.com/OCAP2/trail/pkg/scene"
)

// Message type constants matching the host protocol.
const (
	// companion -> host
	TypeHello       = "hello"
	TypeGetItems    = "get_items"
	TypeAddItems    = "add_items"
	TypeDeleteItems = "delete_items"

	// host -> companion
	TypeReady        = "ready"
	TypeItemsChanged = "items_changed"
	TypeResult       = "result"
)

// Envelope wraps all messages sent over the WebSocket.
// ID is set on requests and echoed by the matching result.
type Envelope struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// HelloPayload identifies the companion to the host.
type HelloPayload struct {
	ExtensionID string `json:"extensionId"`
	Version     string `json:"version"`
}

// ReadyPayload is sent by the host once a scene is available.
type ReadyPayload struct {
	SceneID string `json:"sceneId"`
}

// ItemsPayload carries a full item set (items_changed, add_items).
type ItemsPayload struct {
	Items []scene.Item `json:"items"`
}

// DeleteItemsPayload lists item IDs to remove.
type DeleteItemsPayload struct {
	IDs []string `json:"ids"`
}

// ResultPayload answers a request. Error is non-empty when the host refused it.
type ResultPayload struct {
	For   string       `json:"for"`
	Items []scene.Item `json:"items,omitempty"`
	Error string       `json:"error,omitempty"`
}
