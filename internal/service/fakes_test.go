package service

import (
	"context"
	"image"

	"go-vr-vision/internal/preprocess"
	"go-vr-vision/pkg/models"
)

type fakeClassifier struct {
	shape  []int64
	labels []string
	probs  []float32
	err    error
	inputs []*preprocess.Tensor
}

func newFakeClassifier(probs []float32, labels ...string) *fakeClassifier {
	return &fakeClassifier{shape: []int64{1, 28, 28, 1}, labels: labels, probs: probs}
}

func (f *fakeClassifier) InputShape() []int64 { return f.shape }
func (f *fakeClassifier) Labels() []string    { return f.labels }
func (f *fakeClassifier) Close() error        { return nil }

func (f *fakeClassifier) Classify(ctx context.Context, input *preprocess.Tensor) ([]float32, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return f.probs, nil
}

type fakeDetector struct {
	dets []models.Detection
	err  error
}

func (f *fakeDetector) Detect(ctx context.Context, img image.Image) ([]models.Detection, error) {
	return f.dets, f.err
}

func (f *fakeDetector) Name() string { return "fake" }
func (f *fakeDetector) Close() error { return nil }

type memoryRepo struct {
	records map[string]*models.RequestRecord
	base64  map[string]string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: map[string]*models.RequestRecord{}, base64: map[string]string{}}
}

func (m *memoryRepo) Save(ctx context.Context, rec *models.RequestRecord) error {
	m.records[rec.RequestID] = rec
	return nil
}

func (m *memoryRepo) SaveBase64(ctx context.Context, requestID, payload string) error {
	m.base64[requestID] = payload
	return nil
}

func (m *memoryRepo) Get(ctx context.Context, requestID string) (*models.RequestRecord, error) {
	return m.records[requestID], nil
}

func (m *memoryRepo) LoadBase64(ctx context.Context, requestID string) (string, error) {
	return m.base64[requestID], nil
}

func (m *memoryRepo) List(ctx context.Context, limit int) ([]*models.RequestRecord, error) {
	return nil, nil
}

func (m *memoryRepo) IDs(ctx context.Context) ([]string, error) { return nil, nil }

type memoryStore struct {
	saved map[string][]byte
	err   error
}

func (m *memoryStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[name] = data
	return "mem://" + name, nil
}

func (m *memoryStore) Load(ctx context.Context, name string) ([]byte, error) {
	return m.saved[name], nil
}

func (m *memoryStore) Backend() string { return "memory" }
