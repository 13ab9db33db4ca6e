package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"go-vr-vision/internal/config"
	apperrors "go-vr-vision/internal/errors"
	"go-vr-vision/internal/service"
	"go-vr-vision/pkg/models"
	"go-vr-vision/pkg/validation"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		RequestTimeout:      5 * time.Second,
		MaxRequestBodySize:  1024,
		CORSOrigins:         []string{"*"},
		ConfidenceThreshold: 0.4,
	}
}

type fakeClassification struct {
	loaded bool
	err    error
	last   service.PredictRequest
}

func (f *fakeClassification) Predict(ctx context.Context, req service.PredictRequest) (*service.PredictResult, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &service.PredictResult{
		RequestID:   req.RequestID,
		Predictions: []models.Prediction{models.NewPrediction("cat", 0.75)},
	}, nil
}

func (f *fakeClassification) Labels() []string  { return []string{"cat", "dog"} }
func (f *fakeClassification) ModelLoaded() bool { return f.loaded }

type staticMetrics map[string]interface{}

func (m staticMetrics) GetMetrics() map[string]interface{} { return m }

func newSketchRouter(svc *fakeClassification) http.Handler {
	return NewSketchHandler(SketchDeps{
		Service:   svc,
		Validator: validation.NewRequestValidator(3, 10, 0),
		Metrics:   staticMetrics{"total_requests": 1},
		Config:    testConfig(),
	})
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

func TestSketchHealth(t *testing.T) {
	tests := []struct {
		name       string
		loaded     bool
		wantStatus string
	}{
		{"loaded", true, "healthy"},
		{"not loaded", false, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, newSketchRouter(&fakeClassification{loaded: tt.loaded}), http.MethodGet, "/health", "")
			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", w.Code)
			}
			var body map[string]interface{}
			decodeBody(t, w, &body)
			if body["status"] != tt.wantStatus || body["model_loaded"] != tt.loaded {
				t.Errorf("Unexpected body %v", body)
			}
			if _, ok := body["stats"]; !ok {
				t.Error("Expected stats in health response")
			}
		})
	}
}

func TestSketchClasses(t *testing.T) {
	w := doJSON(t, newSketchRouter(&fakeClassification{loaded: true}), http.MethodGet, "/classes", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var body struct {
		Classes    []string `json:"classes"`
		NumClasses int      `json:"num_classes"`
	}
	decodeBody(t, w, &body)
	if body.NumClasses != 2 || body.Classes[0] != "cat" {
		t.Errorf("Unexpected body %+v", body)
	}

	w = doJSON(t, newSketchRouter(&fakeClassification{}), http.MethodGet, "/classes", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without model, got %d", w.Code)
	}
}

func TestPredictBase64(t *testing.T) {
	svc := &fakeClassification{loaded: true}
	w := doJSON(t, newSketchRouter(svc), http.MethodPost, "/predict/base64", `{"image_base64": "aGVsbG8=", "top_k": 5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.PredictionResponse
	decodeBody(t, w, &resp)
	if !resp.Success || len(resp.Predictions) != 1 || resp.Predictions[0].ConfidencePercent != "75.00%" {
		t.Errorf("Unexpected response %+v", resp)
	}
	id := w.Header().Get(requestIDHeader)
	if id == "" || !strings.Contains(resp.Message, id) {
		t.Errorf("Expected message to carry request ID %q, got %q", id, resp.Message)
	}
	if svc.last.TopK != 5 || svc.last.Source != "base64" || svc.last.RequestID != id {
		t.Errorf("Unexpected service request %+v", svc.last)
	}
}

func TestPredictBase64_DefaultTopK(t *testing.T) {
	svc := &fakeClassification{loaded: true}
	w := doJSON(t, newSketchRouter(svc), http.MethodPost, "/predict/base64", `{"image_base64": "aGVsbG8="}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if svc.last.TopK != 3 {
		t.Errorf("Expected default top_k 3, got %d", svc.last.TopK)
	}
}

func TestPredictStrokes(t *testing.T) {
	svc := &fakeClassification{loaded: true}
	body := `{"strokes": [[[10, 10], [20, 20]], [[5, 5]]], "canvas_size": 128}`
	w := doJSON(t, newSketchRouter(svc), http.MethodPost, "/predict/strokes", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.last.Payload.CanvasSize != 128 || len(svc.last.Payload.Drawing) != 2 {
		t.Errorf("Unexpected payload %+v", svc.last.Payload)
	}
	if svc.last.Payload.Drawing[0][1].X != 20 {
		t.Errorf("Expected second point x=20, got %+v", svc.last.Payload.Drawing[0][1])
	}
}

func TestPredictArray(t *testing.T) {
	svc := &fakeClassification{loaded: true}
	w := doJSON(t, newSketchRouter(svc), http.MethodPost, "/predict/array", `{"image": [[0, 1], [1, 0]], "top_k": 1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if string(svc.last.Payload.Array) != "[[0, 1], [1, 0]]" {
		t.Errorf("Expected raw array, got %s", svc.last.Payload.Array)
	}
}

func TestPredictFile(t *testing.T) {
	svc := &fakeClassification{loaded: true}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "sketch.png")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write([]byte("fake png bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/predict?top_k=2", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	newSketchRouter(svc).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.last.Source != "file_upload" || svc.last.Payload.Filename != "sketch.png" || svc.last.TopK != 2 {
		t.Errorf("Unexpected service request %+v", svc.last)
	}
	if string(svc.last.Payload.Data) != "fake png bytes" {
		t.Errorf("Unexpected file data %q", svc.last.Payload.Data)
	}
}

func TestPredict_RequestErrors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
	}{
		{"malformed json", "/predict/base64", `{`, http.StatusBadRequest},
		{"missing image", "/predict/base64", `{}`, http.StatusBadRequest},
		{"blank image", "/predict/base64", `{"image_base64": "  "}`, http.StatusBadRequest},
		{"zero top_k", "/predict/base64", `{"image_base64": "eA==", "top_k": 0}`, http.StatusBadRequest},
		{"top_k above max", "/predict/array", `{"image": [[1]], "top_k": 11}`, http.StatusBadRequest},
		{"negative canvas", "/predict/strokes", `{"strokes": [], "canvas_size": -5}`, http.StatusBadRequest},
		{"canvas above bound", "/predict/strokes", `{"strokes": [], "canvas_size": 4096}`, http.StatusBadRequest},
		{"bad top_k query", "/predict?top_k=abc", ``, http.StatusBadRequest},
		{"body too large", "/predict/base64", `{"image_base64": "` + strings.Repeat("A", 2048) + `"}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, newSketchRouter(&fakeClassification{loaded: true}), http.MethodPost, tt.path, tt.body)
			if w.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
		})
	}
}

func TestPredict_ServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantType  string
		wantStage string
	}{
		{"decode", apperrors.NewDecodeError("invalid base64 payload", nil), http.StatusBadRequest, "decode", "decode"},
		{"shape", apperrors.NewShapeError(apperrors.StageNormalize, "4 channels", nil), http.StatusUnprocessableEntity, "shape", "normalize"},
		{"unavailable", apperrors.NewUnavailableError("model not loaded"), http.StatusServiceUnavailable, "unavailable", ""},
		{"inference", apperrors.NewInferenceError("boom", nil), http.StatusInternalServerError, "inference", "inference"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeClassification{loaded: true, err: tt.err}
			w := doJSON(t, newSketchRouter(svc), http.MethodPost, "/predict/base64", `{"image_base64": "eA=="}`)
			if w.Code != tt.wantCode {
				t.Fatalf("Expected %d, got %d", tt.wantCode, w.Code)
			}
			var resp models.ErrorResponse
			decodeBody(t, w, &resp)
			if resp.Type != tt.wantType || resp.Stage != tt.wantStage {
				t.Errorf("Expected %s/%s, got %s/%s", tt.wantType, tt.wantStage, resp.Type, resp.Stage)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/predict/base64", nil)
	req.Header.Set("Origin", "https://unity.example")
	w := httptest.NewRecorder()
	newSketchRouter(&fakeClassification{}).ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Expected wildcard origin, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	handler := cors([]string{"https://allowed.example"})
	tests := []struct {
		origin string
		want   string
	}{
		{"https://allowed.example", "https://allowed.example"},
		{"https://other.example", ""},
	}

	for _, tt := range tests {
		r := gin.New()
		r.Use(handler)
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", tt.origin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("Origin %s: expected %q, got %q", tt.origin, tt.want, got)
		}
	}
}
