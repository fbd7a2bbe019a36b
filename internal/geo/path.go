package geo

import (
	"errors"
	"fmt"

	"github.com/OCAP2/trail/pkg/scene"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ErrTooFewPoints is returned for paths with fewer than two points.
var ErrTooFewPoints = errors.New("path must have at least 2 points")

// LineString builds a 2D line string through points, in order.
func LineString(points []scene.Vector2) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, fmt.Errorf("%w, got %d", ErrTooFewPoints, len(points))
	}

	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	seq := geom.NewSequence(flat, geom.DimXY)
	return geom.NewLineString(seq), nil
}

// Length returns the travelled distance along points in scene units.
// Paths with fewer than two points have length 0.
func Length(points []scene.Vector2) float64 {
	ls, err := LineString(points)
	if err != nil {
		return 0
	}
	return ls.Length()
}

// WKT returns the path as well-known text, e.g. "LINESTRING(0 0,5 0)".
func WKT(points []scene.Vector2) (string, error) {
	ls, err := LineString(points)
	if err != nil {
		return "", err
	}
	return ls.AsText(), nil
}
