package preprocess

import (
	"encoding/json"
	"fmt"

	apperrors "go-vr-vision/internal/errors"
)

const (
	// DefaultCanvasSize is the side of the virtual drawing canvas.
	DefaultCanvasSize = 256

	// SegmentSamples is the number of interpolation steps per segment. Each segment is
	// marked at SegmentSamples+1 evenly spaced points, so segments much longer than
	// this many pixels leave gaps.
	SegmentSamples = 10
)

// Point is a canvas coordinate. Its JSON form is [x, y].
type Point struct {
	X, Y float64
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var xy []float64
	if err := json.Unmarshal(data, &xy); err != nil {
		return fmt.Errorf("point must be [x, y]: %w", err)
	}
	if len(xy) != 2 {
		return fmt.Errorf("point must have 2 coordinates, got %d", len(xy))
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// Stroke is one continuous pen movement.
type Stroke []Point

// Drawing is a full sketch.
type Drawing []Stroke

// Rasterize marks every stroke of d on a canvasSize x canvasSize canvas. Stroke pixels
// get MaxSample and the background stays 0. Strokes with fewer than two points are
// skipped, and points outside the canvas are clipped.
//
// Lines are approximated by sampling each segment, not by a connected line algorithm.
func Rasterize(d Drawing, canvasSize int) (*Raster, error) {
	if canvasSize < 1 {
		return nil, apperrors.NewValidationError(apperrors.StageRasterize,
			fmt.Sprintf("canvas size must be >= 1, got %d", canvasSize), nil)
	}

	canvas := NewRaster(canvasSize, canvasSize, 1)
	size := float64(canvasSize)

	for _, stroke := range d {
		if len(stroke) < 2 {
			continue
		}
		for i := 0; i < len(stroke)-1; i++ {
			for _, p := range InterpolatePoints(stroke[i], stroke[i+1], SegmentSamples) {
				if p.X >= 0 && p.X < size && p.Y >= 0 && p.Y < size {
					canvas.Pix[int(p.Y)*canvasSize+int(p.X)] = MaxSample
				}
			}
		}
	}
	return canvas, nil
}

// InterpolatePoints returns n+1 points p(t) = a + t(b-a) for t = 0, 1/n, ..., 1.
func InterpolatePoints(a, b Point, n int) []Point {
	if n < 1 {
		return []Point{a, b}
	}
	points := make([]Point, 0, n+1)
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		points = append(points, Point{
			X: a.X + t*(b.X-a.X),
			Y: a.Y + t*(b.Y-a.Y),
		})
	}
	return points
}
