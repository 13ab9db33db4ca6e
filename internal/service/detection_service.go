package service

import (
	"context"
	"time"

	apperrors "go-vr-vision/internal/errors"
	"go-vr-vision/internal/inference"
	"go-vr-vision/internal/observer"
	"go-vr-vision/internal/preprocess"
	"go-vr-vision/pkg/models"
)

// DetectRequest is one detector call
type DetectRequest struct {
	RequestID   string
	ImageBase64 string
	Client      ClientInfo
}

// DetectionService defines the object detection operations
type DetectionService interface {
	// Detect decodes a base64 screenshot and returns its detections
	Detect(ctx context.Context, req DetectRequest) (*models.DetectionResponse, error)

	// Ready reports whether a detector is loaded
	Ready() bool

	// ModelName names the loaded detector
	ModelName() string
}

type detectionService struct {
	detector  inference.Detector
	events    observer.Subject
	maxPixels int
}

// NewDetectionService creates a detection service. detector may be nil, in which
// case every call reports the service as unavailable. Screenshots above maxPixels are
// refused; 0 uses the decoder default.
func NewDetectionService(detector inference.Detector, events observer.Subject, maxPixels int) DetectionService {
	return &detectionService{detector: detector, events: events, maxPixels: maxPixels}
}

func (s *detectionService) Ready() bool {
	return s.detector != nil
}

func (s *detectionService) ModelName() string {
	if s.detector == nil {
		return ""
	}
	return s.detector.Name()
}

func (s *detectionService) Detect(ctx context.Context, req DetectRequest) (*models.DetectionResponse, error) {
	start := time.Now()
	s.notify(ctx, observer.Event{EventType: observer.DetectionStarted, RequestID: req.RequestID, Source: "detect"})

	resp, err := s.detect(ctx, req)
	if err != nil {
		s.notify(ctx, observer.Event{
			EventType:      observer.DetectionFailed,
			RequestID:      req.RequestID,
			Source:         "detect",
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
			Metadata:       map[string]interface{}{"error_type": string(apperrors.TypeOf(err))},
		})
		return nil, err
	}

	s.notify(ctx, observer.Event{
		EventType:      observer.DetectionCompleted,
		RequestID:      req.RequestID,
		Source:         "detect",
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata: map[string]interface{}{
			"detections":   len(resp.Detections),
			"image_width":  resp.ImageWidth,
			"image_height": resp.ImageHeight,
			"client_ip":    req.Client.IP,
		},
	})
	return resp, nil
}

func (s *detectionService) detect(ctx context.Context, req DetectRequest) (*models.DetectionResponse, error) {
	if s.detector == nil {
		return nil, apperrors.NewUnavailableError("detector not initialized")
	}

	data, err := preprocess.DecodeBase64Payload(req.ImageBase64)
	if err != nil {
		return nil, err
	}
	img, _, err := preprocess.DecodeImageLimited(data, s.maxPixels)
	if err != nil {
		return nil, err
	}

	dets, err := s.detector.Detect(ctx, img)
	if err != nil {
		return nil, modelError("detection failed", err)
	}
	if dets == nil {
		dets = []models.Detection{}
	}

	b := img.Bounds()
	return &models.DetectionResponse{
		Detections:  dets,
		ImageWidth:  b.Dx(),
		ImageHeight: b.Dy(),
	}, nil
}

func (s *detectionService) notify(ctx context.Context, event observer.Event) {
	if s.events != nil {
		s.events.NotifyObservers(ctx, event)
	}
}
