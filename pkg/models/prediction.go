package models

import (
	"fmt"
	"math"
	"time"
)

// Prediction is one ranked classifier label
type Prediction struct {
	Label             string  `json:"label"`
	Confidence        float64 `json:"confidence"`
	ConfidencePercent string  `json:"confidence_percent"`
}

// NewPrediction fills ConfidencePercent from confidence.
func NewPrediction(label string, confidence float64) Prediction {
	return Prediction{
		Label:             label,
		Confidence:        confidence,
		ConfidencePercent: fmt.Sprintf("%.2f%%", confidence*100),
	}
}

// Detection is one bounding box in source image pixels
type Detection struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
}

// RoundConfidence rounds to two decimals, the precision detections are reported with.
func RoundConfidence(c float64) float64 {
	return math.Round(c*100) / 100
}

// RequestRecord is the persisted trace of one classifier request
type RequestRecord struct {
	RequestID    string       `json:"request_id"`
	Timestamp    time.Time    `json:"timestamp"`
	Source       string       `json:"source"`
	ClientIP     string       `json:"client_ip,omitempty"`
	ClientPort   string       `json:"client_port,omitempty"`
	UserAgent    string       `json:"user_agent,omitempty"`
	Filename     string       `json:"filename,omitempty"`
	Base64Length int          `json:"base64_length,omitempty"`
	ImageFile    string       `json:"image_file,omitempty"`
	TopK         int          `json:"top_k"`
	Predictions  []Prediction `json:"predictions,omitempty"`
	Success      bool         `json:"success"`
	Error        string       `json:"error,omitempty"`
	ErrorType    string       `json:"error_type,omitempty"`
	ErrorStage   string       `json:"error_stage,omitempty"`
	DurationMs   int64        `json:"duration_ms"`
}

// TopPrediction returns the first prediction and whether there is one.
func (r *RequestRecord) TopPrediction() (Prediction, bool) {
	if len(r.Predictions) == 0 {
		return Prediction{}, false
	}
	return r.Predictions[0], true
}
