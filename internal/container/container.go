package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go-vr-vision/internal/config"
	"go-vr-vision/internal/factory"
	"go-vr-vision/internal/inference"
	"go-vr-vision/internal/logger"
	"go-vr-vision/internal/observer"
	"go-vr-vision/internal/repository"
	"go-vr-vision/internal/service"
	"go-vr-vision/internal/strategy"
	"go-vr-vision/internal/transport"
	"go-vr-vision/pkg/validation"

	"github.com/sirupsen/logrus"
)

// Container holds all application dependencies
type Container struct {
	config  *config.Config
	events  *observer.EventPublisher
	metrics *observer.MetricsObserver
	handler http.Handler
	closers []func() error
}

func newContainer(cfg *config.Config) *Container {
	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	return &Container{config: cfg, events: events, metrics: metrics}
}

// NewSketchContainer wires the sketch classifier API. A model that fails to load is
// logged and the API starts without it, reporting itself unhealthy.
func NewSketchContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := newContainer(cfg)
	components := factory.NewComponentFactory(cfg)

	repo, err := repository.NewFileRequestRepository(cfg.LogDir)
	if err != nil {
		return nil, err
	}
	artifacts, err := components.StorageFactory.CreateStorage(ctx, factory.StorageType(cfg.StorageBackend))
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact storage: %w", err)
	}

	deps := service.ClassificationDeps{
		Strategies: strategy.DefaultRegistry(cfg.CanvasSize, cfg.MaxImagePixels),
		Repository: repo,
		Artifacts:  artifacts,
		Events:     c.events,
	}
	c.closers = append(c.closers, inference.ShutdownRuntime)
	if classifier, err := loadClassifier(cfg); err != nil {
		logger.WithError(err).WithField("model", cfg.ModelPath).Error("Failed to load model")
	} else {
		deps.Classifier = classifier
		c.closers = append(c.closers, classifier.Close)
	}

	svc, err := service.NewClassificationService(deps)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.handler = transport.NewSketchHandler(transport.SketchDeps{
		Service:   svc,
		Validator: validation.NewRequestValidator(cfg.DefaultTopK, cfg.MaxTopK, cfg.MaxCanvasSize),
		Metrics:   c.metrics,
		Config:    cfg,
	})

	logger.WithFields(logrus.Fields{
		"model_loaded": svc.ModelLoaded(),
		"classes":      len(svc.Labels()),
		"log_dir":      cfg.LogDir,
		"storage":      artifacts.Backend(),
	}).Info("Sketch classifier ready")

	return c, nil
}

// NewDetectorContainer wires the object detector API. A detector that fails to load
// leaves the API running and unhealthy.
func NewDetectorContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := newContainer(cfg)
	detectors := factory.NewComponentFactory(cfg).DetectorFactory

	var detector inference.Detector
	if err := inference.InitRuntime(cfg.ONNXRuntimeLib); err != nil {
		logger.WithError(err).Error("Failed to initialize ONNX Runtime")
	} else if d, err := detectors.CreateDetector(); err != nil {
		logger.WithError(err).WithField("model", cfg.ModelPath).Error("Failed to load detector")
	} else {
		detector = d
		c.closers = append(c.closers, d.Close)
	}
	c.closers = append(c.closers, inference.ShutdownRuntime)

	svc := service.NewDetectionService(detector, c.events, cfg.MaxImagePixels)
	c.handler = transport.NewDetectorHandler(transport.DetectorDeps{
		Service:   svc,
		Validator: validation.NewRequestValidator(cfg.DefaultTopK, cfg.MaxTopK, cfg.MaxCanvasSize),
		Metrics:   c.metrics,
		Config:    cfg,
		Mode:      string(detectors.Mode()),
	})

	logger.WithFields(logrus.Fields{
		"ready": svc.Ready(),
		"mode":  detectors.Mode(),
		"model": svc.ModelName(),
	}).Info("Object detector ready")

	return c, nil
}

func loadClassifier(cfg *config.Config) (inference.Classifier, error) {
	if err := inference.InitRuntime(cfg.ONNXRuntimeLib); err != nil {
		return nil, err
	}
	return inference.NewONNXClassifier(cfg.ModelPath, cfg.ModelMetadataPath)
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close waits for pending events and releases models in reverse load order.
func (c *Container) Close() error {
	c.events.Wait()
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
