package repository

import (
	"context"

	"go-vr-vision/pkg/models"
)

// RequestRepository defines the request log operations
type RequestRepository interface {
	// Save writes the record, as an error record when rec.Success is false
	Save(ctx context.Context, rec *models.RequestRecord) error

	// SaveBase64 keeps the raw base64 text a client sent
	SaveBase64(ctx context.Context, requestID, payload string) error

	// Get returns the record for a request ID
	Get(ctx context.Context, requestID string) (*models.RequestRecord, error)

	// LoadBase64 returns the saved base64 text for a request ID
	LoadBase64(ctx context.Context, requestID string) (string, error)

	// List returns up to limit records, newest first; limit < 1 returns all
	List(ctx context.Context, limit int) ([]*models.RequestRecord, error)

	// IDs returns every logged request ID, newest first
	IDs(ctx context.Context) ([]string, error)
}
