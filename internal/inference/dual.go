package inference

import (
	"context"
	"errors"
	"image"

	"go-vr-vision/internal/logger"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DualDetector runs a base (COCO) detector and a custom detector on the same image
// and concatenates their detections, base model first.
type DualDetector struct {
	base   Detector
	custom Detector
}

// NewDualDetector takes ownership of both detectors.
func NewDualDetector(base, custom Detector) *DualDetector {
	return &DualDetector{base: base, custom: custom}
}

func (d *DualDetector) Name() string {
	return d.base.Name() + "+" + d.custom.Name()
}

// Detect runs both models concurrently. The first failure cancels the other call.
func (d *DualDetector) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	var baseDets, customDets []Detection
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		baseDets, err = d.base.Detect(gctx, img)
		return err
	})
	g.Go(func() error {
		var err error
		customDets, err = d.custom.Detect(gctx, img)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"base":   len(baseDets),
		"custom": len(customDets),
	}).Debug("Merged dual detector results")

	out := make([]Detection, 0, len(baseDets)+len(customDets))
	out = append(out, baseDets...)
	return append(out, customDets...), nil
}

func (d *DualDetector) Close() error {
	return errors.Join(d.base.Close(), d.custom.Close())
}
