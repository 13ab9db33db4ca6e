package inference

import (
	"fmt"
	"image"
	"math"
	"sort"

	"go-vr-vision/pkg/models"

	"github.com/nfnt/resize"
)

// Detector defaults, matching the thresholds the VR client was tuned against.
const (
	DefaultDetectorInputSize = 640
	DefaultConfidence        = 0.4
	DefaultIOU               = 0.45
)

// YOLOInput resizes img to size x size and lays it out as NCHW float32 in [0,1].
func YOLOInput(img image.Image, size int) []float32 {
	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)
	b := resized.Bounds()
	plane := size * size
	data := make([]float32, 3*plane)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, bl, _ := resized.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*size + x
			data[i] = float32(r) / 65535.0
			data[plane+i] = float32(g) / 65535.0
			data[2*plane+i] = float32(bl) / 65535.0
		}
	}
	return data
}

// Box is a scored candidate in source image pixels.
type Box struct {
	X1, Y1, X2, Y2 float64
	Score          float64
	ClassID        int
}

func (b Box) area() float64 {
	return math.Max(0, b.X2-b.X1) * math.Max(0, b.Y2-b.Y1)
}

// IoU returns the intersection over union of two boxes.
func IoU(a, b Box) float64 {
	ix := math.Min(a.X2, b.X2) - math.Max(a.X1, b.X1)
	iy := math.Min(a.Y2, b.Y2) - math.Max(a.Y1, b.Y1)
	if ix <= 0 || iy <= 0 {
		return 0
	}
	inter := ix * iy
	union := a.area() + b.area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// YOLOLayout describes a raw YOLOv8 output tensor: 4 box values followed by one score
// per class, for each of Anchors candidates.
type YOLOLayout struct {
	NumClasses int
	Anchors    int
	// AnchorMajor is true for [1, anchors, 4+classes] outputs; the default export is
	// [1, 4+classes, anchors].
	AnchorMajor bool
}

// LayoutFromShape derives the layout from an output shape of rank 3.
func LayoutFromShape(shape []int64, numClasses int) (YOLOLayout, error) {
	if len(shape) != 3 {
		return YOLOLayout{}, fmt.Errorf("expected rank-3 output shape, got %v", shape)
	}
	attrs := int64(4 + numClasses)
	switch {
	case shape[1] == attrs:
		return YOLOLayout{NumClasses: numClasses, Anchors: int(shape[2])}, nil
	case shape[2] == attrs:
		return YOLOLayout{NumClasses: numClasses, Anchors: int(shape[1]), AnchorMajor: true}, nil
	default:
		return YOLOLayout{}, fmt.Errorf("output shape %v does not match %d classes", shape, numClasses)
	}
}

func (l YOLOLayout) at(out []float32, attr, anchor int) float32 {
	if l.AnchorMajor {
		return out[anchor*(4+l.NumClasses)+attr]
	}
	return out[attr*l.Anchors+anchor]
}

// DecodeYOLO turns raw output into boxes scaled from inputSize to srcW x srcH,
// keeping the best class of each anchor when it reaches confThreshold.
func DecodeYOLO(out []float32, layout YOLOLayout, inputSize, srcW, srcH int, confThreshold float64) ([]Box, error) {
	if want := layout.Anchors * (4 + layout.NumClasses); len(out) != want {
		return nil, fmt.Errorf("output has %d values, layout needs %d", len(out), want)
	}

	sx := float64(srcW) / float64(inputSize)
	sy := float64(srcH) / float64(inputSize)
	var boxes []Box

	for j := 0; j < layout.Anchors; j++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < layout.NumClasses; c++ {
			if s := layout.at(out, 4+c, j); best < 0 || s > bestScore {
				best, bestScore = c, s
			}
		}
		if float64(bestScore) < confThreshold {
			continue
		}

		cx, cy := float64(layout.at(out, 0, j)), float64(layout.at(out, 1, j))
		w, h := float64(layout.at(out, 2, j)), float64(layout.at(out, 3, j))
		boxes = append(boxes, Box{
			X1:      clamp((cx-w/2)*sx, 0, float64(srcW)),
			Y1:      clamp((cy-h/2)*sy, 0, float64(srcH)),
			X2:      clamp((cx+w/2)*sx, 0, float64(srcW)),
			Y2:      clamp((cy+h/2)*sy, 0, float64(srcH)),
			Score:   float64(bestScore),
			ClassID: best,
		})
	}
	return boxes, nil
}

// NonMaxSuppression keeps, per class, the highest scoring boxes that overlap each
// other by at most iouThreshold. The result is sorted by score, highest first.
func NonMaxSuppression(boxes []Box, iouThreshold float64) []Box {
	sorted := append([]Box(nil), boxes...)
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].Score > sorted[b].Score })

	kept := make([]Box, 0, len(sorted))
	for _, cand := range sorted {
		suppressed := false
		for _, k := range kept {
			if k.ClassID == cand.ClassID && IoU(k, cand) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, cand)
		}
	}
	return kept
}

// ToDetections labels boxes with names and rounds them to integer pixels.
func ToDetections(boxes []Box, names []string) []Detection {
	out := make([]Detection, 0, len(boxes))
	for _, b := range boxes {
		label := fmt.Sprintf("class_%d", b.ClassID)
		if b.ClassID < len(names) {
			label = names[b.ClassID]
		}
		out = append(out, Detection{
			Class:      label,
			Confidence: models.RoundConfidence(b.Score),
			X1:         int(b.X1),
			Y1:         int(b.Y1),
			X2:         int(b.X2),
			Y2:         int(b.Y2),
		})
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
