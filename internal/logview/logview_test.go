package logview

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-vr-vision/internal/repository"
	"go-vr-vision/pkg/models"
)

func seedRepo(t *testing.T) *repository.FileRequestRepository {
	t.Helper()
	repo, err := repository.NewFileRequestRepository(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	ctx := context.Background()
	records := []*models.RequestRecord{
		{RequestID: "20251201_100000_000001", Source: "base64", TopK: 2, Success: true,
			Predictions: []models.Prediction{models.NewPrediction("cat", 0.9), models.NewPrediction("dog", 0.1)}},
		{RequestID: "20251201_100000_000002", Source: "strokes", TopK: 1, Success: true,
			Predictions: []models.Prediction{models.NewPrediction("cat", 0.7)}},
		{RequestID: "20251201_100000_000003", Source: "file_upload", TopK: 1, Success: true,
			Predictions: []models.Prediction{models.NewPrediction("house", 0.5)}},
		{RequestID: "20251201_100000_000004", Source: "base64", Success: false,
			Error: "bad payload", ErrorType: "DECODE_ERROR", ErrorStage: "decode"},
	}
	for _, rec := range records {
		if err := repo.Save(ctx, rec); err != nil {
			t.Fatalf("Failed to save record: %v", err)
		}
	}
	return repo
}

func TestViewer_List(t *testing.T) {
	repo := seedRepo(t)
	var buf bytes.Buffer

	if err := NewViewer(repo, &buf).List(context.Background(), 2); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "20251201_100000_000004") || !strings.Contains(out, "20251201_100000_000003") {
		t.Errorf("Expected newest two records, got:\n%s", out)
	}
	if strings.Contains(out, "20251201_100000_000001") {
		t.Errorf("Expected limit to drop oldest record, got:\n%s", out)
	}
	if !strings.Contains(out, "error: DECODE_ERROR") {
		t.Errorf("Expected error status, got:\n%s", out)
	}
}

func TestViewer_ListEmpty(t *testing.T) {
	repo, err := repository.NewFileRequestRepository(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := NewViewer(repo, &buf).List(context.Background(), DefaultListLimit); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No requests") {
		t.Errorf("Expected empty notice, got %q", buf.String())
	}
}

func TestViewer_View(t *testing.T) {
	repo := seedRepo(t)
	var buf bytes.Buffer

	if err := NewViewer(repo, &buf).View(context.Background(), "20251201_100000_000001"); err != nil {
		t.Fatalf("View failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"cat", "90.00%", "dog", "base64"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestViewer_ViewUnknownSuggests(t *testing.T) {
	repo := seedRepo(t)
	var buf bytes.Buffer

	err := NewViewer(repo, &buf).View(context.Background(), "20251201_100000_000009")
	if !errors.Is(err, repository.ErrRecordNotFound) {
		t.Fatalf("Expected ErrRecordNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "did you mean") {
		t.Errorf("Expected suggestions in error, got %v", err)
	}
}

func TestViewer_Decode(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()

	img := image.NewGray(image.Rect(0, 0, 4, 3))
	img.SetGray(1, 1, color.Gray{Y: 255})
	var raw bytes.Buffer
	if err := png.Encode(&raw, img); err != nil {
		t.Fatal(err)
	}
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw.Bytes())
	if err := repo.SaveBase64(ctx, "20251201_100000_000001", payload); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "out.png")
	var buf bytes.Buffer
	path, err := NewViewer(repo, &buf).Decode(ctx, "20251201_100000_000001", out)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if path != out {
		t.Errorf("Expected %s, got %s", out, path)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Output is not a PNG: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Errorf("Expected 4x3 image, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestViewer_DecodeMissingPayload(t *testing.T) {
	repo := seedRepo(t)
	var buf bytes.Buffer
	_, err := NewViewer(repo, &buf).Decode(context.Background(), "20251201_100000_000002", "")
	if !errors.Is(err, repository.ErrPayloadNotFound) {
		t.Errorf("Expected ErrPayloadNotFound, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	repo := seedRepo(t)
	records, err := repo.List(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}

	s := Summarize(records)
	if s.Total != 4 || s.Succeeded != 3 || s.Failed != 1 {
		t.Errorf("Unexpected counts: %+v", s)
	}
	if s.BySource["base64"] != 2 {
		t.Errorf("Expected 2 base64 requests, got %d", s.BySource["base64"])
	}
	if len(s.TopLabels) != 2 || s.TopLabels[0] != (LabelCount{"cat", 2}) {
		t.Errorf("Unexpected top labels: %+v", s.TopLabels)
	}
	if math.Abs(s.MeanConfidence-0.7) > 1e-9 {
		t.Errorf("Expected mean 0.7, got %f", s.MeanConfidence)
	}
	if math.Abs(s.StdConfidence-0.2) > 1e-9 {
		t.Errorf("Expected sample stddev 0.2, got %f", s.StdConfidence)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.Total != 0 || s.MeanConfidence != 0 || len(s.TopLabels) != 0 {
		t.Errorf("Expected zero summary, got %+v", s)
	}
}

func TestViewer_Stats(t *testing.T) {
	repo := seedRepo(t)
	var buf bytes.Buffer
	if err := NewViewer(repo, &buf).Stats(context.Background()); err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Total Requests: 4") {
		t.Errorf("Expected total line, got:\n%s", out)
	}
	if !strings.Contains(out, "50.0%") {
		t.Errorf("Expected cat share of 50.0%%, got:\n%s", out)
	}
}

func TestSuggest(t *testing.T) {
	known := []string{"20251201_100000_000001", "20251201_100000_000002", "20240101_000000_999999"}

	got := Suggest("20251201_100000_000003", known, 2)
	if len(got) != 2 || got[0] != "20251201_100000_000001" || got[1] != "20251201_100000_000002" {
		t.Errorf("Unexpected suggestions: %v", got)
	}
	if got := Suggest("zzz", known, 3); len(got) != 0 {
		t.Errorf("Expected no suggestions for unrelated input, got %v", got)
	}
}
