// pkg/scene/curve.go
package scene

// CurveBuilder assembles a curve item descriptor for submission to the host.
// The host assigns the ID on creation.
type CurveBuilder struct {
	item Item
}

// BuildCurve starts a new curve descriptor on the drawing layer.
func BuildCurve() *CurveBuilder {
	return &CurveBuilder{item: Item{
		Type:  TypeCurve,
		Layer: LayerDrawing,
		Style: &Style{},
	}}
}

func (b *CurveBuilder) Layer(layer string) *CurveBuilder {
	b.item.Layer = layer
	return b
}

// Points copies pts into the curve.
func (b *CurveBuilder) Points(pts []Vector2) *CurveBuilder {
	b.item.Points = append([]Vector2(nil), pts...)
	return b
}

func (b *CurveBuilder) StrokeColor(color string) *CurveBuilder {
	b.item.Style.StrokeColor = color
	return b
}

func (b *CurveBuilder) StrokeWidth(w float64) *CurveBuilder {
	b.item.Style.StrokeWidth = w
	return b
}

func (b *CurveBuilder) StrokeOpacity(o float64) *CurveBuilder {
	b.item.Style.StrokeOpacity = o
	return b
}

// Metadata sets a namespaced metadata entry.
func (b *CurveBuilder) Metadata(key string, value any) *CurveBuilder {
	if b.item.Metadata == nil {
		b.item.Metadata = make(map[string]any)
	}
	b.item.Metadata[key] = value
	return b
}

// Build returns the assembled item. The builder may be reused.
func (b *CurveBuilder) Build() Item {
	out := b.item
	out.Points = append([]Vector2(nil), b.item.Points...)
	style := *b.item.Style
	out.Style = &style
	if b.item.Metadata != nil {
		out.Metadata = make(map[string]any, len(b.item.Metadata))
		for k, v := range b.item.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
