package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeDecode      ErrorType = "decode"
	ErrorTypeShape       ErrorType = "shape"
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeInference   ErrorType = "inference"
	ErrorTypeUnavailable ErrorType = "unavailable"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeInternal    ErrorType = "internal"
)

// Stage names the pipeline step an error was raised in.
type Stage string

const (
	StageRequest   Stage = "request"
	StageDecode    Stage = "decode"
	StageNormalize Stage = "normalize"
	StageRasterize Stage = "rasterize"
	StageInference Stage = "inference"
	StageRank      Stage = "rank"
	StageDetect    Stage = "detect"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Stage      Stage     `json:"stage,omitempty"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	prefix := string(e.Type)
	if e.Stage != "" {
		prefix = fmt.Sprintf("%s [%s]", e.Type, e.Stage)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newError(t ErrorType, stage Stage, status int, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Stage:      stage,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
	}
}

// NewDecodeError reports bytes or base64 text that is not a readable image.
func NewDecodeError(message string, cause error) *AppError {
	return newError(ErrorTypeDecode, StageDecode, http.StatusBadRequest, message, cause)
}

// NewShapeError reports a raster or tensor layout that cannot be reduced to two dimensions.
func NewShapeError(stage Stage, message string, cause error) *AppError {
	return newError(ErrorTypeShape, stage, http.StatusUnprocessableEntity, message, cause)
}

// NewValidationError creates a new validation error
func NewValidationError(stage Stage, message string, cause error) *AppError {
	return newError(ErrorTypeValidation, stage, http.StatusBadRequest, message, cause)
}

// NewInferenceError wraps a failure reported by the model runtime.
func NewInferenceError(message string, cause error) *AppError {
	return newError(ErrorTypeInference, StageInference, http.StatusInternalServerError, message, cause)
}

// NewUnavailableError creates a new unavailable error
func NewUnavailableError(message string) *AppError {
	return newError(ErrorTypeUnavailable, "", http.StatusServiceUnavailable, message, nil)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return newError(ErrorTypeNotFound, "", http.StatusNotFound, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(stage Stage, message string, cause error) *AppError {
	return newError(ErrorTypeInternal, stage, http.StatusInternalServerError, message, cause)
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// TypeOf returns the error category, or ErrorTypeInternal for foreign errors.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}
