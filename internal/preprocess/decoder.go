package preprocess

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	apperrors "go-vr-vision/internal/errors"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DefaultMaxImagePixels bounds decoded images when no limit is configured. A 4K
// screenshot fits.
const DefaultMaxImagePixels = 1 << 23

// Luma weights (ITU-R BT.601), the same reduction PIL applies for mode "L".
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

func luma(r, g, b float32) float32 {
	return lumaR*r + lumaG*g + lumaB*b
}

// StripDataURI removes a "data:<mime>;base64," prefix, everything up to and including
// the first comma. Plain base64 text is returned unchanged apart from surrounding space.
func StripDataURI(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.IndexByte(s, ','); i >= 0 {
			return s[i+1:]
		}
	}
	return s
}

// DecodeBase64Payload strips an optional data-URI prefix and decodes the base64 text.
// Unpadded input is accepted.
func DecodeBase64Payload(s string) ([]byte, error) {
	payload := StripDataURI(s)
	if payload == "" {
		return nil, apperrors.NewDecodeError("empty base64 payload", nil)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil && !strings.HasSuffix(payload, "=") {
		if raw, rawErr := base64.RawStdEncoding.DecodeString(payload); rawErr == nil {
			return raw, nil
		}
	}
	if err != nil {
		return nil, apperrors.NewDecodeError("invalid base64 payload", err)
	}
	return data, nil
}

// DecodeImage decodes an image container keeping its colour channels. Images above
// DefaultMaxImagePixels are refused.
func DecodeImage(data []byte) (image.Image, string, error) {
	return DecodeImageLimited(data, DefaultMaxImagePixels)
}

// DecodeImageLimited is DecodeImage with an explicit pixel bound; maxPixels <= 0 uses
// DefaultMaxImagePixels. The header is checked before any pixel is allocated, so a
// small payload declaring huge dimensions is rejected cheaply.
func DecodeImageLimited(data []byte, maxPixels int) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", apperrors.NewDecodeError("empty image data", nil)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxImagePixels
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperrors.NewDecodeError("unrecognized image format", err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > int64(maxPixels) {
		return nil, "", apperrors.NewDecodeError(
			fmt.Sprintf("image is %dx%d, above the limit of %d pixels", cfg.Width, cfg.Height, maxPixels), nil)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperrors.NewDecodeError("unrecognized image format", err)
	}
	return img, format, nil
}

// DecodeBytes decodes an image container into a single-channel raster with samples in
// [0, 255].
func DecodeBytes(data []byte) (*Raster, error) {
	img, _, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return GrayRaster(img), nil
}

// DecodeBase64 decodes base64 text (with or without a data-URI prefix) into a
// single-channel raster.
func DecodeBase64(s string) (*Raster, error) {
	data, err := DecodeBase64Payload(s)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(data)
}

// GrayRaster reduces any image to luma. Alpha is ignored: colours are read
// non-premultiplied, so a transparent red pixel still counts as red.
func GrayRaster(img image.Image) *Raster {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	r := NewRaster(w, h, 1)

	if gray, ok := img.(*image.Gray); ok {
		for y := 0; y < h; y++ {
			row := gray.Pix[y*gray.Stride : y*gray.Stride+w]
			for x, v := range row {
				r.Pix[y*w+x] = float32(v)
			}
		}
		return r
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			r.Pix[y*w+x] = luma(float32(c.R), float32(c.G), float32(c.B))
		}
	}
	return r
}
