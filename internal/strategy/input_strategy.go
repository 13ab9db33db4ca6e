package strategy

import (
	"encoding/json"
	"fmt"
	"image"
	"strings"

	apperrors "go-vr-vision/internal/errors"
	"go-vr-vision/internal/preprocess"
)

// Source names, also recorded in the request log.
const (
	SourceFile    = "file_upload"
	SourceBase64  = "base64"
	SourceStrokes = "strokes"
	SourceArray   = "array"
)

// Payload is one classifier request body after binding. Only the fields of its
// source are set.
type Payload struct {
	Filename   string
	Data       []byte
	Base64     string
	Drawing    preprocess.Drawing
	CanvasSize int
	Array      json.RawMessage
}

// Decoded is a payload reduced to a raster, with the decoded image and raw bytes kept
// for sources that carry an image container.
type Decoded struct {
	Raster *preprocess.Raster
	Image  image.Image
	Format string
	Raw    []byte
}

// InputStrategy turns one kind of payload into a raster
type InputStrategy interface {
	Decode(p Payload) (*Decoded, error)
	GetStrategyName() string
}

// FileStrategy decodes uploaded image files
type FileStrategy struct {
	maxPixels int
}

// NewFileStrategy creates a new file upload strategy refusing images above maxPixels
// (0 for the decoder default)
func NewFileStrategy(maxPixels int) InputStrategy {
	return &FileStrategy{maxPixels: maxPixels}
}

// Decode reads the image container
func (s *FileStrategy) Decode(p Payload) (*Decoded, error) {
	return decodeContainer(p.Data, s.maxPixels)
}

// GetStrategyName returns the strategy name
func (s *FileStrategy) GetStrategyName() string {
	return SourceFile
}

// Base64Strategy decodes base64 images, with or without a data URI prefix
type Base64Strategy struct {
	maxPixels int
}

// NewBase64Strategy creates a new base64 strategy refusing images above maxPixels
// (0 for the decoder default)
func NewBase64Strategy(maxPixels int) InputStrategy {
	return &Base64Strategy{maxPixels: maxPixels}
}

// Decode unwraps the base64 text and reads the image container
func (s *Base64Strategy) Decode(p Payload) (*Decoded, error) {
	data, err := preprocess.DecodeBase64Payload(p.Base64)
	if err != nil {
		return nil, err
	}
	return decodeContainer(data, s.maxPixels)
}

// GetStrategyName returns the strategy name
func (s *Base64Strategy) GetStrategyName() string {
	return SourceBase64
}

// StrokeStrategy rasterizes raw drawings
type StrokeStrategy struct {
	defaultCanvas int
}

// NewStrokeStrategy creates a stroke strategy; payloads without a canvas size use
// defaultCanvas.
func NewStrokeStrategy(defaultCanvas int) InputStrategy {
	if defaultCanvas < 1 {
		defaultCanvas = preprocess.DefaultCanvasSize
	}
	return &StrokeStrategy{defaultCanvas: defaultCanvas}
}

// Decode draws the strokes on a square canvas
func (s *StrokeStrategy) Decode(p Payload) (*Decoded, error) {
	canvas := p.CanvasSize
	if canvas == 0 {
		canvas = s.defaultCanvas
	}
	r, err := preprocess.Rasterize(p.Drawing, canvas)
	if err != nil {
		return nil, err
	}
	return &Decoded{Raster: r}, nil
}

// GetStrategyName returns the strategy name
func (s *StrokeStrategy) GetStrategyName() string {
	return SourceStrokes
}

// ArrayStrategy reads nested numeric arrays
type ArrayStrategy struct{}

// NewArrayStrategy creates a new array strategy
func NewArrayStrategy() InputStrategy {
	return &ArrayStrategy{}
}

// Decode parses the array into a raster
func (s *ArrayStrategy) Decode(p Payload) (*Decoded, error) {
	r, err := preprocess.ParseArray(p.Array)
	if err != nil {
		return nil, err
	}
	return &Decoded{Raster: r}, nil
}

// GetStrategyName returns the strategy name
func (s *ArrayStrategy) GetStrategyName() string {
	return SourceArray
}

func decodeContainer(data []byte, maxPixels int) (*Decoded, error) {
	img, format, err := preprocess.DecodeImageLimited(data, maxPixels)
	if err != nil {
		return nil, err
	}
	return &Decoded{
		Raster: preprocess.GrayRaster(img),
		Image:  img,
		Format: format,
		Raw:    data,
	}, nil
}

// Registry resolves strategies by source name
type Registry struct {
	strategies map[string]InputStrategy
}

// NewRegistry registers the given strategies under their names
func NewRegistry(strategies ...InputStrategy) *Registry {
	r := &Registry{strategies: make(map[string]InputStrategy, len(strategies))}
	for _, s := range strategies {
		r.strategies[s.GetStrategyName()] = s
	}
	return r
}

// DefaultRegistry registers every built-in strategy. maxPixels bounds decoded image
// containers; 0 uses the decoder default.
func DefaultRegistry(canvasSize, maxPixels int) *Registry {
	return NewRegistry(
		NewFileStrategy(maxPixels),
		NewBase64Strategy(maxPixels),
		NewStrokeStrategy(canvasSize),
		NewArrayStrategy(),
	)
}

// Get returns the strategy for source
func (r *Registry) Get(source string) (InputStrategy, error) {
	s, ok := r.strategies[strings.ToLower(source)]
	if !ok {
		return nil, apperrors.NewValidationError(apperrors.StageRequest,
			fmt.Sprintf("unsupported input source: %s", source), nil)
	}
	return s, nil
}
