package inference

import (
	"context"
	"fmt"
	"image"

	apperrors "go-vr-vision/internal/errors"
	"go-vr-vision/internal/logger"
	"go-vr-vision/internal/preprocess"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

// YOLODetector runs a YOLOv8 ONNX export.
type YOLODetector struct {
	name          string
	session       *ort.DynamicAdvancedSession
	metadata      *Metadata
	layout        YOLOLayout
	inputSize     int
	confThreshold float64
	iouThreshold  float64
}

// DetectorOptions tune post-processing.
type DetectorOptions struct {
	Name                string
	ConfidenceThreshold float64
	IOUThreshold        float64
}

// NewYOLODetector loads a detector model. Class names default to COCO.
func NewYOLODetector(modelPath, metadataPath string, opts DetectorOptions) (*YOLODetector, error) {
	md, err := LoadMetadata(metadataPath, COCOClasses)
	if err != nil {
		return nil, err
	}

	inputSize := md.ImageSize
	if inputSize == 0 && len(md.InputShape) == 4 {
		inputSize = int(md.InputShape[2])
	}
	if inputSize == 0 {
		inputSize = DefaultDetectorInputSize
	}
	if !preprocess.ShapeEquals(md.InputShape, []int64{1, 3, int64(inputSize), int64(inputSize)}) {
		return nil, fmt.Errorf("detector %s: input shape %v is not (1, 3, %d, %d)",
			modelPath, md.InputShape, inputSize, inputSize)
	}

	layout, err := LayoutFromShape(md.OutputShape, len(md.Classes))
	if err != nil {
		return nil, fmt.Errorf("detector %s: %w", modelPath, err)
	}

	session, err := newSession(modelPath, md)
	if err != nil {
		return nil, err
	}

	if opts.Name == "" {
		opts.Name = modelPath
	}
	logger.WithFields(logrus.Fields{
		"model":      modelPath,
		"name":       opts.Name,
		"classes":    len(md.Classes),
		"input_size": inputSize,
		"confidence": opts.ConfidenceThreshold,
	}).Info("Detector model loaded")

	return &YOLODetector{
		name:          opts.Name,
		session:       session,
		metadata:      md,
		layout:        layout,
		inputSize:     inputSize,
		confThreshold: opts.ConfidenceThreshold,
		iouThreshold:  opts.IOUThreshold,
	}, nil
}

func (d *YOLODetector) Name() string {
	return d.name
}

// Detect runs the model on img and returns detections in img's pixel space.
func (d *YOLODetector) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input := YOLOInput(img, d.inputSize)
	out, err := runSession(d.session, d.metadata.InputShape, input, d.metadata.OutputShape)
	if err != nil {
		return nil, apperrors.NewInferenceError(fmt.Sprintf("detector %s failed", d.name), err)
	}

	b := img.Bounds()
	boxes, err := DecodeYOLO(out, d.layout, d.inputSize, b.Dx(), b.Dy(), d.confThreshold)
	if err != nil {
		return nil, apperrors.NewInferenceError(fmt.Sprintf("detector %s output", d.name), err)
	}
	return ToDetections(NonMaxSuppression(boxes, d.iouThreshold), d.metadata.Classes), nil
}

func (d *YOLODetector) Close() error {
	if d.session != nil {
		err := d.session.Destroy()
		d.session = nil
		return err
	}
	return nil
}
