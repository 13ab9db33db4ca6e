package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends for received-image artifacts.
const (
	StorageLocal = "local"
	StorageAzure = "azure"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	CORSOrigins        []string

	// Model
	ModelPath         string
	ModelMetadataPath string
	ONNXRuntimeLib    string

	// Classifier preprocessing and ranking
	ImageSize     int
	DefaultTopK   int
	MaxTopK       int
	CanvasSize    int
	MaxCanvasSize int

	// MaxImagePixels bounds width*height of any decoded image container
	MaxImagePixels int

	// Detector
	CustomModelPath         string
	CustomModelMetadataPath string
	ConfidenceThreshold     float64
	IOUThreshold            float64

	// Logging and request archive
	LogLevel              string
	LogDir                string
	StorageBackend        string
	AzureStorageAccount   string
	AzureStorageKey       string
	AzureStorageContainer string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// DualDetection reports whether a custom detector model runs next to the base model.
func (c *Config) DualDetection() bool {
	return strings.TrimSpace(c.CustomModelPath) != ""
}

// LoadFromEnv reads the configuration. defaultPort and defaultModel differ per binary.
func LoadFromEnv(defaultPort, defaultModel string) (*Config, error) {
	modelPath := getEnvOrDefault("MODEL_PATH", defaultModel)
	customModel := os.Getenv("CUSTOM_MODEL_PATH")

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", defaultPort),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		CORSOrigins:        parseListOrDefault("CORS_ORIGINS", []string{"*"}),

		ModelPath:         modelPath,
		ModelMetadataPath: getEnvOrDefault("MODEL_METADATA_PATH", metadataPathFor(modelPath)),
		ONNXRuntimeLib:    os.Getenv("ONNXRUNTIME_LIB"),

		ImageSize:     int(parseIntOrDefault("IMAGE_SIZE", 28)),
		DefaultTopK:   int(parseIntOrDefault("DEFAULT_TOP_K", 3)),
		MaxTopK:       int(parseIntOrDefault("MAX_TOP_K", 100)),
		CanvasSize:    int(parseIntOrDefault("CANVAS_SIZE", 256)),
		MaxCanvasSize: int(parseIntOrDefault("MAX_CANVAS_SIZE", 1024)),

		MaxImagePixels: int(parseIntOrDefault("MAX_IMAGE_PIXELS", 1<<23)), // a 4K screenshot fits

		CustomModelPath:         customModel,
		CustomModelMetadataPath: getEnvOrDefault("CUSTOM_MODEL_METADATA_PATH", metadataPathFor(customModel)),
		ConfidenceThreshold:     parseFloatOrDefault("CONFIDENCE_THRESHOLD", 0.4),
		IOUThreshold:            parseFloatOrDefault("IOU_THRESHOLD", 0.45),

		LogLevel:              getEnvOrDefault("LOG_LEVEL", "info"),
		LogDir:                getEnvOrDefault("LOG_DIR", "api_logs"),
		StorageBackend:        strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", StorageLocal)),
		AzureStorageAccount:   os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureStorageKey:       os.Getenv("AZURE_STORAGE_KEY"),
		AzureStorageContainer: getEnvOrDefault("AZURE_STORAGE_CONTAINER", "received-images"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field requirements.
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be > 0 (got %s)", c.RequestTimeout)
	}
	if c.ImageSize < 1 || c.CanvasSize < 1 {
		return fmt.Errorf("IMAGE_SIZE and CANVAS_SIZE must be >= 1 (got %d, %d)", c.ImageSize, c.CanvasSize)
	}
	if c.MaxCanvasSize < c.CanvasSize {
		return fmt.Errorf("CANVAS_SIZE must be <= MAX_CANVAS_SIZE (got %d, %d)", c.CanvasSize, c.MaxCanvasSize)
	}
	if c.MaxImagePixels < 1 {
		return fmt.Errorf("MAX_IMAGE_PIXELS must be >= 1 (got %d)", c.MaxImagePixels)
	}
	if c.DefaultTopK < 1 || c.MaxTopK < c.DefaultTopK {
		return fmt.Errorf("need 1 <= DEFAULT_TOP_K <= MAX_TOP_K (got %d, %d)", c.DefaultTopK, c.MaxTopK)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 || c.IOUThreshold < 0 || c.IOUThreshold > 1 {
		return fmt.Errorf("thresholds must be within [0,1] (got confidence=%g, iou=%g)",
			c.ConfidenceThreshold, c.IOUThreshold)
	}
	switch c.StorageBackend {
	case StorageLocal:
	case StorageAzure:
		if c.AzureStorageAccount == "" || c.AzureStorageKey == "" {
			return fmt.Errorf("STORAGE_BACKEND=azure requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND: %q", c.StorageBackend)
	}
	return nil
}

// metadataPathFor maps models/sketch.onnx to models/sketch.json.
func metadataPathFor(modelPath string) string {
	if modelPath == "" {
		return ""
	}
	if i := strings.LastIndex(modelPath, "."); i > strings.LastIndexAny(modelPath, `/\`) {
		return modelPath[:i] + ".json"
	}
	return modelPath + ".json"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
