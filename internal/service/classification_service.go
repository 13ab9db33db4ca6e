package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"path"
	"strings"
	"time"

	apperrors "go-vr-vision/internal/errors"
	"go-vr-vision/internal/inference"
	"go-vr-vision/internal/logger"
	"go-vr-vision/internal/observer"
	"go-vr-vision/internal/preprocess"
	"go-vr-vision/internal/repository"
	"go-vr-vision/internal/storage"
	"go-vr-vision/internal/strategy"
	"go-vr-vision/pkg/models"

	"github.com/sirupsen/logrus"
)

// ClientInfo identifies the caller in the request log
type ClientInfo struct {
	IP        string
	Port      string
	UserAgent string
}

// PredictRequest is one classifier call
type PredictRequest struct {
	RequestID string
	Source    string
	Payload   strategy.Payload
	TopK      int
	Client    ClientInfo
}

// PredictResult carries the ranked predictions of a successful call
type PredictResult struct {
	RequestID   string
	Predictions []models.Prediction
}

// ClassificationService defines the sketch classification operations
type ClassificationService interface {
	// Predict decodes, normalizes and classifies one payload
	Predict(ctx context.Context, req PredictRequest) (*PredictResult, error)

	// Labels returns the class labels in model output order
	Labels() []string

	// ModelLoaded reports whether a classifier is available
	ModelLoaded() bool
}

// ClassificationDeps are the collaborators of the classification service. Repository,
// Artifacts and Events are optional.
type ClassificationDeps struct {
	Classifier inference.Classifier
	Strategies *strategy.Registry
	Repository repository.RequestRepository
	Artifacts  storage.ArtifactStore
	Events     observer.Subject
}

type classificationService struct {
	classifier inference.Classifier
	strategies *strategy.Registry
	repo       repository.RequestRepository
	artifacts  storage.ArtifactStore
	events     observer.Subject
	width      int
	height     int
}

// NewClassificationService derives the target image size from the classifier's
// (1, H, W, 1) input shape.
func NewClassificationService(deps ClassificationDeps) (ClassificationService, error) {
	s := &classificationService{
		classifier: deps.Classifier,
		strategies: deps.Strategies,
		repo:       deps.Repository,
		artifacts:  deps.Artifacts,
		events:     deps.Events,
	}
	if s.strategies == nil {
		s.strategies = strategy.DefaultRegistry(preprocess.DefaultCanvasSize, 0)
	}

	if s.classifier != nil {
		shape := s.classifier.InputShape()
		if len(shape) != 4 || shape[0] != 1 || shape[3] != 1 {
			return nil, fmt.Errorf("classifier input shape %v is not (1, H, W, 1)", shape)
		}
		s.height, s.width = int(shape[1]), int(shape[2])
	}
	return s, nil
}

func (s *classificationService) Labels() []string {
	if s.classifier == nil {
		return nil
	}
	return s.classifier.Labels()
}

func (s *classificationService) ModelLoaded() bool {
	return s.classifier != nil
}

func (s *classificationService) Predict(ctx context.Context, req PredictRequest) (*PredictResult, error) {
	start := time.Now()
	rec := &models.RequestRecord{
		RequestID:  req.RequestID,
		Timestamp:  start,
		Source:     req.Source,
		ClientIP:   req.Client.IP,
		ClientPort: req.Client.Port,
		UserAgent:  req.Client.UserAgent,
		Filename:   req.Payload.Filename,
		TopK:       req.TopK,
	}
	if req.Source == strategy.SourceBase64 {
		rec.Base64Length = len(req.Payload.Base64)
	}
	s.notify(ctx, observer.Event{EventType: observer.PredictionStarted, RequestID: req.RequestID, Source: req.Source})

	preds, err := s.predict(ctx, req, rec)
	rec.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		s.fail(ctx, rec, err, time.Since(start))
		return nil, err
	}

	rec.Success = true
	rec.Predictions = preds
	s.saveRecord(ctx, rec)

	meta := map[string]interface{}{"top_k": req.TopK}
	if top, ok := rec.TopPrediction(); ok {
		meta["top_label"] = top.Label
		meta["top_confidence"] = top.Confidence
	}
	s.notify(ctx, observer.Event{
		EventType:      observer.PredictionCompleted,
		RequestID:      req.RequestID,
		Source:         req.Source,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata:       meta,
	})

	return &PredictResult{RequestID: req.RequestID, Predictions: preds}, nil
}

func (s *classificationService) predict(ctx context.Context, req PredictRequest, rec *models.RequestRecord) ([]models.Prediction, error) {
	if s.classifier == nil {
		return nil, apperrors.NewUnavailableError("model not loaded")
	}
	if req.TopK < 1 {
		return nil, apperrors.NewValidationError(apperrors.StageRequest,
			fmt.Sprintf("top_k must be >= 1, got %d", req.TopK), nil)
	}

	strat, err := s.strategies.Get(req.Source)
	if err != nil {
		return nil, err
	}
	if req.Source == strategy.SourceBase64 {
		s.saveBase64(ctx, req.RequestID, req.Payload.Base64)
	}

	decoded, err := strat.Decode(req.Payload)
	if err != nil {
		return nil, err
	}
	rec.ImageFile = s.saveArtifact(ctx, req, decoded)

	tensor, err := preprocess.Normalize(decoded.Raster, s.width, s.height)
	if err != nil {
		return nil, err
	}
	if want := s.classifier.InputShape(); !tensor.ShapeEquals(want) {
		return nil, apperrors.NewValidationError(apperrors.StageInference,
			fmt.Sprintf("expected input shape %v, got %v", want, tensor.Shape), nil)
	}

	stats := preprocess.Stats(tensor)
	logger.WithFields(logrus.Fields{
		"request_id": req.RequestID,
		"source":     req.Source,
		"mean":       stats.Mean,
		"stddev":     stats.StdDev,
		"ink_ratio":  stats.InkRatio,
	}).Debug("Normalized input")

	probs, err := s.classifier.Classify(ctx, tensor)
	if err != nil {
		return nil, modelError("model call failed", err)
	}

	return inference.TopK(probs, s.classifier.Labels(), req.TopK)
}

func (s *classificationService) fail(ctx context.Context, rec *models.RequestRecord, err error, elapsed time.Duration) {
	rec.Success = false
	rec.Error = err.Error()
	rec.ErrorType = string(apperrors.TypeOf(err))
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		rec.ErrorStage = string(appErr.Stage)
	}
	s.saveRecord(ctx, rec)

	s.notify(ctx, observer.Event{
		EventType:      observer.PredictionFailed,
		RequestID:      rec.RequestID,
		Source:         rec.Source,
		ProcessingTime: elapsed,
		ErrorMessage:   err.Error(),
		Metadata: map[string]interface{}{
			"error_type":  rec.ErrorType,
			"error_stage": rec.ErrorStage,
		},
	})
}

// saveArtifact stores the received image and returns its location, or "" when
// there is nothing to store or storing failed.
func (s *classificationService) saveArtifact(ctx context.Context, req PredictRequest, decoded *strategy.Decoded) string {
	if s.artifacts == nil || decoded.Image == nil {
		return ""
	}

	var name string
	var data []byte
	switch req.Source {
	case strategy.SourceFile:
		name = fmt.Sprintf("received_images/uploaded_%s_%s", req.RequestID, safeFilename(req.Payload.Filename))
		data = decoded.Raw
	default:
		var buf bytes.Buffer
		if err := png.Encode(&buf, decoded.Image); err != nil {
			s.warn(err, req.RequestID, "Failed to encode received image")
			return ""
		}
		name = fmt.Sprintf("received_images/request_%s.png", req.RequestID)
		data = buf.Bytes()
	}

	location, err := s.artifacts.Save(ctx, name, data)
	if err != nil {
		s.warn(err, req.RequestID, "Failed to store received image")
		return ""
	}
	return location
}

func (s *classificationService) saveBase64(ctx context.Context, requestID, payload string) {
	if s.repo == nil {
		return
	}
	if err := s.repo.SaveBase64(ctx, requestID, payload); err != nil {
		s.warn(err, requestID, "Failed to save base64 payload")
	}
}

func (s *classificationService) saveRecord(ctx context.Context, rec *models.RequestRecord) {
	if s.repo == nil {
		return
	}
	// The record is written even when the request deadline has passed
	if err := s.repo.Save(context.WithoutCancel(ctx), rec); err != nil {
		s.warn(err, rec.RequestID, "Failed to save request record")
	}
}

func (s *classificationService) warn(err error, requestID, msg string) {
	logger.WithError(err).WithFields(logrus.Fields{
		"request_id": requestID,
	}).Warn(msg)
}

func (s *classificationService) notify(ctx context.Context, event observer.Event) {
	if s.events != nil {
		s.events.NotifyObservers(ctx, event)
	}
}

// modelError passes typed errors and request cancellation through unchanged so the
// handler maps them to their own status; any other model failure is an inference error.
func modelError(message string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return apperrors.NewInferenceError(message, err)
}

func safeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" || base == ".." {
		return "upload"
	}
	return strings.ReplaceAll(base, " ", "_")
}
