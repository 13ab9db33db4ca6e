package factory

import (
	"context"
	"fmt"
	"path/filepath"

	"go-vr-vision/internal/config"
	"go-vr-vision/internal/inference"
	"go-vr-vision/internal/logger"
	"go-vr-vision/internal/storage"

	"github.com/sirupsen/logrus"
)

// StorageType represents different types of artifact storage backends
type StorageType string

const (
	// LocalStorage for the local file system
	LocalStorage StorageType = config.StorageLocal
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = config.StorageAzure
)

// DetectorMode represents how many detector models run per request
type DetectorMode string

const (
	// SingleDetector runs the base model only
	SingleDetector DetectorMode = "single"
	// DualDetector runs the base model and a custom model
	DualDetector DetectorMode = "dual"
)

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(ctx context.Context, storageType StorageType) (storage.ArtifactStore, error)
}

// DetectorFactory creates detectors
type DetectorFactory interface {
	Mode() DetectorMode
	CreateDetector() (inference.Detector, error)
}

// DetectorLoader loads one detector model
type DetectorLoader func(modelPath, metadataPath string, opts inference.DetectorOptions) (inference.Detector, error)

func loadONNXDetector(modelPath, metadataPath string, opts inference.DetectorOptions) (inference.Detector, error) {
	return inference.NewYOLODetector(modelPath, metadataPath, opts)
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(ctx context.Context, storageType StorageType) (storage.ArtifactStore, error) {
	switch storageType {
	case LocalStorage:
		return storage.NewLocalStorage(f.cfg.LogDir)
	case AzureStorage:
		return storage.NewAzureStorage(ctx, f.cfg.AzureStorageAccount, f.cfg.AzureStorageKey, f.cfg.AzureStorageContainer)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// detectorFactory implements DetectorFactory
type detectorFactory struct {
	cfg  *config.Config
	load DetectorLoader
}

// NewDetectorFactory creates a detector factory backed by ONNX Runtime
func NewDetectorFactory(cfg *config.Config) DetectorFactory {
	return NewDetectorFactoryWithLoader(cfg, loadONNXDetector)
}

// NewDetectorFactoryWithLoader creates a detector factory with a custom model loader
func NewDetectorFactoryWithLoader(cfg *config.Config, load DetectorLoader) DetectorFactory {
	return &detectorFactory{cfg: cfg, load: load}
}

// Mode is dual when a custom model is configured
func (f *detectorFactory) Mode() DetectorMode {
	if f.cfg.DualDetection() {
		return DualDetector
	}
	return SingleDetector
}

// CreateDetector loads the configured model or models
func (f *detectorFactory) CreateDetector() (inference.Detector, error) {
	opts := inference.DetectorOptions{
		ConfidenceThreshold: f.cfg.ConfidenceThreshold,
		IOUThreshold:        f.cfg.IOUThreshold,
	}

	logger.WithFields(logrus.Fields{
		"mode":         f.Mode(),
		"model":        f.cfg.ModelPath,
		"custom_model": f.cfg.CustomModelPath,
		"confidence":   f.cfg.ConfidenceThreshold,
	}).Info("Loading detector")

	opts.Name = filepath.Base(f.cfg.ModelPath)
	base, err := f.load(f.cfg.ModelPath, f.cfg.ModelMetadataPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load base detector: %w", err)
	}
	if f.Mode() == SingleDetector {
		return base, nil
	}

	opts.Name = filepath.Base(f.cfg.CustomModelPath)
	custom, err := f.load(f.cfg.CustomModelPath, f.cfg.CustomModelMetadataPath, opts)
	if err != nil {
		base.Close()
		return nil, fmt.Errorf("failed to load custom detector: %w", err)
	}
	return inference.NewDualDetector(base, custom), nil
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	StorageFactory  StorageFactory
	DetectorFactory DetectorFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		StorageFactory:  NewStorageFactory(cfg),
		DetectorFactory: NewDetectorFactory(cfg),
	}
}
