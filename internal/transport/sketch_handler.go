package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"go-vr-vision/internal/config"
	apperrors "go-vr-vision/internal/errors"
	"go-vr-vision/internal/service"
	"go-vr-vision/internal/strategy"
	"go-vr-vision/pkg/models"
	"go-vr-vision/pkg/validation"

	"github.com/gin-gonic/gin"
)

// SketchDeps are the collaborators of the sketch classifier API. Metrics is optional.
type SketchDeps struct {
	Service   service.ClassificationService
	Validator *validation.RequestValidator
	Metrics   MetricsProvider
	Config    *config.Config
}

// NewSketchHandler builds the sketch classifier router
func NewSketchHandler(deps SketchDeps) http.Handler {
	r := newEngine(deps.Config.CORSOrigins, deps.Config.MaxRequestBodySize)
	h := &sketchHandler{deps: deps}

	// Configure routes
	r.GET("/", h.root)
	r.GET("/health", h.health)
	r.GET("/classes", h.classes)
	r.POST("/predict", h.predictFile)
	r.POST("/predict/base64", h.predictBase64)
	r.POST("/predict/strokes", h.predictStrokes)
	r.POST("/predict/array", h.predictArray)

	return r
}

type sketchHandler struct {
	deps SketchDeps
}

func (h *sketchHandler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "QuickDraw Sketch Recognition API",
		"version": "1.0.0",
		"endpoints": gin.H{
			"/health":          "Health check",
			"/classes":         "Get list of supported classes (GET)",
			"/predict":         "Predict from uploaded image file (POST)",
			"/predict/base64":  "Predict from base64 encoded image (POST)",
			"/predict/strokes": "Predict from raw stroke coordinates (POST)",
			"/predict/array":   "Predict from a numeric image array (POST)",
		},
	})
}

func (h *sketchHandler) health(c *gin.Context) {
	loaded := h.deps.Service.ModelLoaded()
	status := "healthy"
	if !loaded {
		status = "unhealthy"
	}

	resp := gin.H{
		"status":       status,
		"model_loaded": loaded,
		"time":         time.Now().UTC().Format(time.RFC3339),
	}
	if h.deps.Metrics != nil {
		resp["stats"] = h.deps.Metrics.GetMetrics()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *sketchHandler) classes(c *gin.Context) {
	if !h.deps.Service.ModelLoaded() {
		respondError(c, apperrors.NewUnavailableError("model not loaded"))
		return
	}
	labels := h.deps.Service.Labels()
	c.JSON(http.StatusOK, gin.H{
		"classes":     labels,
		"num_classes": len(labels),
	})
}

func (h *sketchHandler) predictFile(c *gin.Context) {
	topK, err := h.deps.Validator.ParseTopKQuery(c.Query("top_k"))
	if err != nil {
		respondError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, bindError(err))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, apperrors.NewInternalError(apperrors.StageRequest, "failed to open upload", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, bindError(err))
		return
	}
	if err := h.deps.Validator.ValidateUpload(fileHeader.Filename, data); err != nil {
		respondError(c, err)
		return
	}

	h.predict(c, strategy.SourceFile, strategy.Payload{Filename: fileHeader.Filename, Data: data}, topK)
}

func (h *sketchHandler) predictBase64(c *gin.Context) {
	var req models.Base64PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	if err := h.deps.Validator.ValidateBase64(req.ImageBase64); err != nil {
		respondError(c, err)
		return
	}
	topK, err := h.deps.Validator.ResolveTopK(req.TopK)
	if err != nil {
		respondError(c, err)
		return
	}

	h.predict(c, strategy.SourceBase64, strategy.Payload{Base64: req.ImageBase64}, topK)
}

func (h *sketchHandler) predictStrokes(c *gin.Context) {
	var req models.StrokePredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	if err := h.deps.Validator.ValidateCanvasSize(req.CanvasSize); err != nil {
		respondError(c, err)
		return
	}
	topK, err := h.deps.Validator.ResolveTopK(req.TopK)
	if err != nil {
		respondError(c, err)
		return
	}

	h.predict(c, strategy.SourceStrokes, strategy.Payload{Drawing: req.Strokes, CanvasSize: req.CanvasSize}, topK)
}

func (h *sketchHandler) predictArray(c *gin.Context) {
	var req models.ArrayPredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	topK, err := h.deps.Validator.ResolveTopK(req.TopK)
	if err != nil {
		respondError(c, err)
		return
	}

	h.predict(c, strategy.SourceArray, strategy.Payload{Array: req.Image}, topK)
}

func (h *sketchHandler) predict(c *gin.Context, source string, payload strategy.Payload, topK int) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.deps.Config.RequestTimeout)
	defer cancel()

	id := getRequestID(c)
	res, err := h.deps.Service.Predict(ctx, service.PredictRequest{
		RequestID: id,
		Source:    source,
		Payload:   payload,
		TopK:      topK,
		Client:    clientInfo(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.PredictionResponse{
		Predictions: res.Predictions,
		Success:     true,
		Message:     successMessage(id),
		RequestID:   id,
	})
}
