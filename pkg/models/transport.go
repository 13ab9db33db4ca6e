package models

import (
	"encoding/json"

	"go-vr-vision/internal/preprocess"
)

// Base64PredictionRequest carries an encoded image, optionally as a data URI
type Base64PredictionRequest struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
	TopK        *int   `json:"top_k,omitempty"`
}

// StrokePredictionRequest carries raw drawing coordinates from the VR client
type StrokePredictionRequest struct {
	Strokes    preprocess.Drawing `json:"strokes" binding:"required"`
	CanvasSize int                `json:"canvas_size,omitempty"`
	TopK       *int               `json:"top_k,omitempty"`
}

// ArrayPredictionRequest carries a nested numeric array of rank 2 to 4
type ArrayPredictionRequest struct {
	Image json.RawMessage `json:"image" binding:"required"`
	TopK  *int            `json:"top_k,omitempty"`
}

// PredictionResponse is returned by every classifier endpoint
type PredictionResponse struct {
	Predictions []Prediction `json:"predictions"`
	Success     bool         `json:"success"`
	Message     string       `json:"message,omitempty"`
	RequestID   string       `json:"request_id,omitempty"`
}

// DetectionRequest carries a base64 screenshot
type DetectionRequest struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
}

// DetectionResponse lists detections with the source image size
type DetectionResponse struct {
	Detections  []Detection `json:"detections"`
	ImageWidth  int         `json:"image_width"`
	ImageHeight int         `json:"image_height"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Stage   string `json:"stage,omitempty"`
}
