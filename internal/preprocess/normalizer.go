package preprocess

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nfnt/resize"

	apperrors "go-vr-vision/internal/errors"
)

// DefaultSize is the classifier input resolution.
const DefaultSize = 28

// Normalize reduces r to one channel, scales it to [0,1] and resizes it to
// width x height. The result has shape (1, height, width, 1).
//
// Samples are divided by MaxSample only when the raster holds values above 1, so
// normalizing an already normalized raster of the target size is a no-op.
func Normalize(r *Raster, width, height int) (*Tensor, error) {
	if width < 1 || height < 1 {
		return nil, apperrors.NewValidationError(apperrors.StageNormalize,
			fmt.Sprintf("invalid target size %dx%d", width, height), nil)
	}

	gray, err := ToGray(r)
	if err != nil {
		return nil, err
	}

	scale := float32(1)
	if gray.Max() > 1.0 {
		scale = MaxSample
	}
	unit := NewRaster(gray.Width, gray.Height, 1)
	for i, v := range gray.Pix {
		unit.Pix[i] = clampUnit(v / scale)
	}

	if unit.Width != width || unit.Height != height {
		unit = resizeUnit(unit, width, height)
	}

	return &Tensor{
		Shape: []int64{1, int64(height), int64(width), 1},
		Data:  unit.Pix,
	}, nil
}

// ToGray reduces a raster to a single channel. One channel passes through, three
// channels are combined with luma weights, any other layout is a shape error.
func ToGray(r *Raster) (*Raster, error) {
	if r == nil || r.Width < 1 || r.Height < 1 {
		return nil, apperrors.NewShapeError(apperrors.StageNormalize, "empty raster", nil)
	}
	if len(r.Pix) != r.Width*r.Height*r.Channels {
		return nil, apperrors.NewShapeError(apperrors.StageNormalize,
			fmt.Sprintf("%s holds %d samples", r, len(r.Pix)), nil)
	}

	switch r.Channels {
	case 1:
		out := NewRaster(r.Width, r.Height, 1)
		copy(out.Pix, r.Pix)
		return out, nil
	case 3:
		out := NewRaster(r.Width, r.Height, 1)
		for i := range out.Pix {
			p := r.Pix[i*3 : i*3+3]
			out.Pix[i] = luma(p[0], p[1], p[2])
		}
		return out, nil
	default:
		return nil, apperrors.NewShapeError(apperrors.StageNormalize,
			fmt.Sprintf("cannot reduce %d channels to 2 dimensions", r.Channels), nil)
	}
}

// resizeUnit resamples a unit-range single-channel raster with Lanczos3. Nearest
// neighbour would drop thin sketch strokes.
func resizeUnit(r *Raster, width, height int) *Raster {
	src := image.NewGray16(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			src.SetGray16(x, y, color.Gray16{Y: uint16(r.Pix[y*r.Width+x]*0xffff + 0.5)})
		}
	}

	resized := resize.Resize(uint(width), uint(height), src, resize.Lanczos3)

	out := NewRaster(width, height, 1)
	b := resized.Bounds()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := color.Gray16Model.Convert(resized.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			out.Pix[y*width+x] = float32(g.Y) / 0xffff
		}
	}
	return out
}

func clampUnit(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
