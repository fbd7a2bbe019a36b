package scene

// ItemID is the host-assigned identifier of a scene item.
type ItemID = string

// Item types reported by the host.
const (
	TypeImage = "IMAGE"
	TypeCurve = "CURVE"
)

// Layers used by the companion.
const (
	LayerCharacter = "CHARACTER"
	LayerDrawing   = "DRAWING"
)

// Vector2 is a point on the board in scene units.
type Vector2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Style holds the stroke attributes of a drawn shape.
type Style struct {
	StrokeColor   string  `json:"strokeColor"`
	StrokeWidth   float64 `json:"strokeWidth"`
	StrokeOpacity float64 `json:"strokeOpacity"`
}

// Item is a snapshot of a single scene item.
// Position is nil when the host did not report one.
type Item struct {
	ID       ItemID         `json:"id"`
	Type     string         `json:"type"`
	Layer    string         `json:"layer"`
	Position *Vector2       `json:"position,omitempty"`
	Points   []Vector2      `json:"points,omitempty"`
	Style    *Style         `json:"style,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IsImage reports whether the item is an image (tokens are images).
func IsImage(it Item) bool {
	return it.Type == TypeImage
}
