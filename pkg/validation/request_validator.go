package validation

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "go-vr-vision/internal/errors"
)

// DefaultMaxCanvasSize bounds the stroke canvas when no limit is configured. A
// 1024x1024 canvas keeps one stroke request to a few tens of MB across the
// rasterize and normalize copies.
const DefaultMaxCanvasSize = 1024

// RequestValidator handles request parameter validation
type RequestValidator struct {
	defaultTopK int
	maxTopK     int
	maxCanvas   int
}

// NewRequestValidator creates a validator with the given top_k default and bound.
// maxCanvas <= 0 uses DefaultMaxCanvasSize.
func NewRequestValidator(defaultTopK, maxTopK, maxCanvas int) *RequestValidator {
	if maxCanvas <= 0 {
		maxCanvas = DefaultMaxCanvasSize
	}
	return &RequestValidator{
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
		maxCanvas:   maxCanvas,
	}
}

// MaxCanvasSize returns the largest accepted canvas_size
func (v *RequestValidator) MaxCanvasSize() int {
	return v.maxCanvas
}

// DefaultTopK returns the top_k used when a request does not set one
func (v *RequestValidator) DefaultTopK() int {
	return v.defaultTopK
}

// ResolveTopK applies the default to a missing top_k and checks the range
func (v *RequestValidator) ResolveTopK(topK *int) (int, error) {
	if topK == nil {
		return v.defaultTopK, nil
	}
	return v.checkTopK(*topK)
}

// ParseTopKQuery reads top_k from a query string value
func (v *RequestValidator) ParseTopKQuery(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return v.defaultTopK, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(apperrors.StageRequest, "top_k must be an integer", err)
	}
	return v.checkTopK(k)
}

func (v *RequestValidator) checkTopK(k int) (int, error) {
	if k < 1 {
		return 0, apperrors.NewValidationError(apperrors.StageRequest,
			fmt.Sprintf("top_k must be >= 1, got %d", k), nil)
	}
	if v.maxTopK > 0 && k > v.maxTopK {
		return 0, apperrors.NewValidationError(apperrors.StageRequest,
			fmt.Sprintf("top_k must be <= %d, got %d", v.maxTopK, k), nil)
	}
	return k, nil
}

// ValidateCanvasSize accepts 0 (use the default) or a size in [1, MaxCanvasSize()]
func (v *RequestValidator) ValidateCanvasSize(size int) error {
	if size < 0 || size > v.maxCanvas {
		return apperrors.NewValidationError(apperrors.StageRasterize,
			fmt.Sprintf("canvas_size must be between 1 and %d, got %d", v.maxCanvas, size), nil)
	}
	return nil
}

// ValidateBase64 rejects an empty image payload
func (v *RequestValidator) ValidateBase64(payload string) error {
	if strings.TrimSpace(payload) == "" {
		return apperrors.NewValidationError(apperrors.StageRequest, "image_base64 cannot be empty", nil)
	}
	return nil
}

// ValidateUpload rejects an empty uploaded file
func (v *RequestValidator) ValidateUpload(filename string, data []byte) error {
	if len(data) == 0 {
		return apperrors.NewValidationError(apperrors.StageRequest,
			fmt.Sprintf("uploaded file %q is empty", filename), nil)
	}
	return nil
}
