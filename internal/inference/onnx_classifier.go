package inference

import (
	"context"
	"fmt"
	"math"

	apperrors "go-vr-vision/internal/errors"
	"go-vr-vision/internal/logger"
	"go-vr-vision/internal/preprocess"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXClassifier runs the sketch CNN through ONNX Runtime.
type ONNXClassifier struct {
	session     *ort.DynamicAdvancedSession
	metadata    *Metadata
	outputShape []int64
}

// NewONNXClassifier loads the model and its metadata. The runtime must already be
// initialized with InitRuntime.
func NewONNXClassifier(modelPath, metadataPath string) (*ONNXClassifier, error) {
	md, err := LoadMetadata(metadataPath, SketchClasses)
	if err != nil {
		return nil, err
	}

	outputShape := md.OutputShape
	if len(outputShape) == 0 {
		outputShape = []int64{1, int64(len(md.Classes))}
	}

	session, err := newSession(modelPath, md)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"model":        modelPath,
		"input_shape":  md.InputShape,
		"output_shape": outputShape,
		"classes":      len(md.Classes),
	}).Info("Classifier model loaded")

	return &ONNXClassifier{
		session:     session,
		metadata:    md,
		outputShape: outputShape,
	}, nil
}

func (c *ONNXClassifier) InputShape() []int64 {
	return c.metadata.InputShape
}

func (c *ONNXClassifier) Labels() []string {
	return c.metadata.Classes
}

// Classify returns one score per label. The caller is expected to have checked the
// tensor shape; a mismatch here is still rejected.
func (c *ONNXClassifier) Classify(ctx context.Context, input *preprocess.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !input.ShapeEquals(c.metadata.InputShape) {
		return nil, apperrors.NewValidationError(apperrors.StageInference,
			fmt.Sprintf("expected input shape %v, got %v", c.metadata.InputShape, input.Shape), nil)
	}

	scores, err := runSession(c.session, c.metadata.InputShape, input.Data, c.outputShape)
	if err != nil {
		return nil, apperrors.NewInferenceError("classifier failed", err)
	}
	if c.metadata.ApplySoftmax {
		softmax(scores)
	}
	return scores, nil
}

func (c *ONNXClassifier) Close() error {
	if c.session != nil {
		err := c.session.Destroy()
		c.session = nil
		return err
	}
	return nil
}

// softmax converts logits to probabilities in place.
func softmax(v []float32) {
	if len(v) == 0 {
		return
	}
	maxV := v[0]
	for _, x := range v[1:] {
		if x > maxV {
			maxV = x
		}
	}
	var sum float64
	for i, x := range v {
		e := math.Exp(float64(x - maxV))
		v[i] = float32(e)
		sum += e
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / sum)
	}
}
