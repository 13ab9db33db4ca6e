package repository

import "errors"

var (
	// ErrInvalidRequestID indicates a request ID that cannot name a log file
	ErrInvalidRequestID = errors.New("invalid request ID")

	// ErrRecordNotFound indicates no record exists for the request ID
	ErrRecordNotFound = errors.New("request record not found")

	// ErrPayloadNotFound indicates no base64 payload was saved for the request ID
	ErrPayloadNotFound = errors.New("base64 payload not found")
)
