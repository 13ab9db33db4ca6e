// Package preprocess turns client payloads (image bytes, base64 text, numeric arrays
// and stroke drawings) into the fixed-shape unit-range tensors the classifier expects.
//
// Everything here is pure: no function keeps state between calls, so the pipeline can
// be shared by concurrent requests.
package preprocess

import "fmt"

// MaxSample is the largest intensity of an 8-bit sample.
const MaxSample = 255.0

// Raster is a row-major grid of samples with interleaved channels.
type Raster struct {
	Width    int
	Height   int
	Channels int
	Pix      []float32
}

// NewRaster allocates a zeroed raster.
func NewRaster(width, height, channels int) *Raster {
	return &Raster{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]float32, width*height*channels),
	}
}

// At returns the sample at (x, y) in channel c.
func (r *Raster) At(x, y, c int) float32 {
	return r.Pix[(y*r.Width+x)*r.Channels+c]
}

// Set writes the sample at (x, y) in channel c.
func (r *Raster) Set(x, y, c int, v float32) {
	r.Pix[(y*r.Width+x)*r.Channels+c] = v
}

// Max returns the largest sample, or 0 for an empty raster.
func (r *Raster) Max() float32 {
	var m float32
	for i, v := range r.Pix {
		if i == 0 || v > m {
			m = v
		}
	}
	return m
}

// CountNonZero returns the number of samples different from zero.
func (r *Raster) CountNonZero() int {
	n := 0
	for _, v := range r.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

func (r *Raster) String() string {
	return fmt.Sprintf("raster(%dx%dx%d)", r.Width, r.Height, r.Channels)
}

// Tensor is the model-facing form of a normalized raster.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// ShapeEquals reports whether the tensor has exactly the given shape.
func (t *Tensor) ShapeEquals(shape []int64) bool {
	return ShapeEquals(t.Shape, shape)
}

// ShapeEquals reports whether two tensor shapes are identical.
func ShapeEquals(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (t *Tensor) String() string {
	return fmt.Sprintf("tensor%v", t.Shape)
}
