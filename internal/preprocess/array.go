package preprocess

import (
	"bytes"
	"encoding/json"
	"fmt"

	apperrors "go-vr-vision/internal/errors"
)

// ParseArray decodes a nested JSON numeric array into a raster. See RasterFromArray.
func ParseArray(data []byte) (*Raster, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, apperrors.NewDecodeError("invalid numeric array", err)
	}
	return RasterFromArray(v)
}

// RasterFromArray converts a nested array into a raster. Accepted layouts are
// (H, W), (H, W, C) and (N, H, W, C); for a batch only the first item is used.
// Ragged or non-numeric input is a shape error.
func RasterFromArray(v any) (*Raster, error) {
	shape, err := arrayShape(v)
	if err != nil {
		return nil, err
	}

	switch len(shape) {
	case 4:
		if shape[0] == 0 {
			return nil, apperrors.NewShapeError(apperrors.StageDecode, "empty batch", nil)
		}
		v = v.([]any)[0]
		shape = shape[1:]
	case 2:
		shape = append(shape, 1)
	case 3:
	default:
		return nil, apperrors.NewShapeError(apperrors.StageDecode,
			fmt.Sprintf("expected 2 to 4 dimensions, got %d", len(shape)), nil)
	}

	h, w, c := shape[0], shape[1], shape[2]
	if h == 0 || w == 0 || c == 0 {
		return nil, apperrors.NewShapeError(apperrors.StageDecode,
			fmt.Sprintf("zero-sized array %dx%dx%d", h, w, c), nil)
	}

	r := NewRaster(w, h, c)
	pix := r.Pix[:0]
	if pix, err = flatten(v, shape, pix); err != nil {
		return nil, err
	}
	r.Pix = pix
	return r, nil
}

// arrayShape follows the first element at each level.
func arrayShape(v any) ([]int, error) {
	var shape []int
	for {
		list, ok := v.([]any)
		if !ok {
			if _, err := toFloat(v); err != nil {
				return nil, err
			}
			if len(shape) == 0 {
				return nil, apperrors.NewShapeError(apperrors.StageDecode, "expected an array, got a scalar", nil)
			}
			return shape, nil
		}
		shape = append(shape, len(list))
		if len(list) == 0 {
			return shape, nil
		}
		v = list[0]
	}
}

func flatten(v any, shape []int, out []float32) ([]float32, error) {
	if len(shape) == 0 {
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		return append(out, f), nil
	}

	list, ok := v.([]any)
	if !ok || len(list) != shape[0] {
		return nil, apperrors.NewShapeError(apperrors.StageDecode, "ragged array", nil)
	}
	var err error
	for _, item := range list {
		if out, err = flatten(item, shape[1:], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func toFloat(v any) (float32, error) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, apperrors.NewShapeError(apperrors.StageDecode, "non-numeric sample", err)
		}
		return float32(f), nil
	case float64:
		return float32(n), nil
	default:
		return 0, apperrors.NewShapeError(apperrors.StageDecode,
			fmt.Sprintf("non-numeric sample of type %T", v), nil)
	}
}
