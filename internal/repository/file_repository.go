package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go-vr-vision/internal/logger"
	"go-vr-vision/pkg/models"

	"github.com/sirupsen/logrus"
)

const (
	recordPrefix = "request_"
	errorSuffix  = "_ERROR"
)

// FileRequestRepository keeps one JSON file per request in a directory
type FileRequestRepository struct {
	dir string
}

// NewFileRequestRepository creates dir if needed
func NewFileRequestRepository(dir string) (*FileRequestRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir %s: %w", dir, err)
	}
	return &FileRequestRepository{dir: dir}, nil
}

// OpenFileRequestRepository opens an existing log directory without creating it
func OpenFileRequestRepository(dir string) (*FileRequestRepository, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("log dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("log dir %s is not a directory", dir)
	}
	return &FileRequestRepository{dir: dir}, nil
}

// Dir returns the log directory
func (r *FileRequestRepository) Dir() string {
	return r.dir
}

func (r *FileRequestRepository) recordPath(id string, failed bool) string {
	name := recordPrefix + id
	if failed {
		name += errorSuffix
	}
	return filepath.Join(r.dir, name+".json")
}

func (r *FileRequestRepository) base64Path(id string) string {
	return filepath.Join(r.dir, recordPrefix+id+"_base64.txt")
}

func (r *FileRequestRepository) Save(ctx context.Context, rec *models.RequestRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ValidRequestID(rec.RequestID) {
		return fmt.Errorf("%w: %q", ErrInvalidRequestID, rec.RequestID)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return os.WriteFile(r.recordPath(rec.RequestID, !rec.Success), data, 0o644)
}

func (r *FileRequestRepository) SaveBase64(ctx context.Context, requestID, payload string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ValidRequestID(requestID) {
		return fmt.Errorf("%w: %q", ErrInvalidRequestID, requestID)
	}
	return os.WriteFile(r.base64Path(requestID), []byte(payload), 0o644)
}

func (r *FileRequestRepository) Get(ctx context.Context, requestID string) (*models.RequestRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ValidRequestID(requestID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRequestID, requestID)
	}

	for _, failed := range []bool{false, true} {
		rec, err := readRecord(r.recordPath(requestID, failed))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return rec, err
	}
	return nil, fmt.Errorf("%s: %w", requestID, ErrRecordNotFound)
}

func (r *FileRequestRepository) LoadBase64(ctx context.Context, requestID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !ValidRequestID(requestID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRequestID, requestID)
	}

	data, err := os.ReadFile(r.base64Path(requestID))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", requestID, ErrPayloadNotFound)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// List returns up to limit records, newest first. limit <= 0 returns every record.
// Records that cannot be read are logged and skipped.
func (r *FileRequestRepository) List(ctx context.Context, limit int) ([]*models.RequestRecord, error) {
	ids, err := r.IDs(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}

	records := make([]*models.RequestRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := r.Get(ctx, id)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			// One unreadable file must not hide the rest of the log
			logger.WithError(err).WithFields(logrus.Fields{
				"request_id": id,
				"dir":        r.dir,
			}).Warn("Skipping unreadable request record")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *FileRequestRepository) IDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read log dir: %w", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, e := range entries {
		id, ok := idFromFilename(e.Name())
		if e.IsDir() || !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// idFromFilename accepts request_<id>.json and request_<id>_ERROR.json.
func idFromFilename(name string) (string, bool) {
	if !strings.HasPrefix(name, recordPrefix) || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(name, recordPrefix), ".json")
	id = strings.TrimSuffix(id, errorSuffix)
	return id, ValidRequestID(id)
}

func readRecord(path string) (*models.RequestRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec models.RequestRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}
