// Package inference is the boundary to the pretrained models. The rest of the
// application only sees the Classifier and Detector interfaces, and only checks the
// shape of what goes in and what comes out.
package inference

import (
	"context"
	"image"

	"go-vr-vision/internal/preprocess"
	"go-vr-vision/pkg/models"
)

// Prediction and Detection are shared with the transport layer.
type (
	Prediction = models.Prediction
	Detection  = models.Detection
)

// Classifier maps a normalized tensor to a probability vector over Labels.
type Classifier interface {
	// InputShape is the exact tensor shape Classify accepts, e.g. (1, 28, 28, 1).
	InputShape() []int64
	Labels() []string
	Classify(ctx context.Context, input *preprocess.Tensor) ([]float32, error)
	Close() error
}

// Detector finds labelled bounding boxes in an RGB image.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
	Name() string
	Close() error
}
