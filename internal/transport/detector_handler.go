package transport

import (
	"context"
	"net/http"

	"go-vr-vision/internal/config"
	apperrors "go-vr-vision/internal/errors"
	"go-vr-vision/internal/service"
	"go-vr-vision/pkg/models"
	"go-vr-vision/pkg/validation"

	"github.com/gin-gonic/gin"
)

// DetectorDeps are the collaborators of the object detector API. Metrics is optional.
type DetectorDeps struct {
	Service   service.DetectionService
	Validator *validation.RequestValidator
	Metrics   MetricsProvider
	Config    *config.Config
	Mode      string
}

// NewDetectorHandler builds the object detector router
func NewDetectorHandler(deps DetectorDeps) http.Handler {
	r := newEngine(deps.Config.CORSOrigins, deps.Config.MaxRequestBodySize)
	h := &detectorHandler{deps: deps}

	r.GET("/", h.root)
	r.GET("/health", h.health)
	r.POST("/detect", h.detect)

	return r
}

type detectorHandler struct {
	deps DetectorDeps
}

func (h *detectorHandler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":              "VR 3D Object Detector API",
		"status":               "running",
		"model":                h.deps.Service.ModelName(),
		"mode":                 h.deps.Mode,
		"confidence_threshold": h.deps.Config.ConfidenceThreshold,
		"endpoints": gin.H{
			"health": "/health",
			"detect": "/detect (POST)",
		},
	})
}

func (h *detectorHandler) health(c *gin.Context) {
	if !h.deps.Service.Ready() {
		respondError(c, apperrors.NewUnavailableError("YOLO model not loaded"))
		return
	}

	resp := gin.H{
		"status":       "healthy",
		"model_loaded": true,
		"model":        h.deps.Service.ModelName(),
	}
	if h.deps.Metrics != nil {
		resp["stats"] = h.deps.Metrics.GetMetrics()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *detectorHandler) detect(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.deps.Config.RequestTimeout)
	defer cancel()

	var req models.DetectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	if err := h.deps.Validator.ValidateBase64(req.ImageBase64); err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.deps.Service.Detect(ctx, service.DetectRequest{
		RequestID:   getRequestID(c),
		ImageBase64: req.ImageBase64,
		Client:      clientInfo(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
