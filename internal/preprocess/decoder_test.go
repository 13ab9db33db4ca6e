package preprocess

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"strings"
	"testing"

	apperrors "go-vr-vision/internal/errors"
)

// encodePNG renders a solid image of the given colour as PNG bytes.
func encodePNG(t *testing.T, width, height int, fill color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

func TestStripDataURI(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"data:image/png;base64,iVBORw0KG", "iVBORw0KG"},
		{"  data:image/jpeg;base64,/9j/4AAQ  ", "/9j/4AAQ"},
		{"iVBORw0KG", "iVBORw0KG"},
		{"data:text/plain,a,b", "a,b"},
		{"abc,def", "abc,def"},
	}
	for _, tt := range tests {
		if got := StripDataURI(tt.in); got != tt.want {
			t.Errorf("StripDataURI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeBase64_DataURIToTensor(t *testing.T) {
	pngData := encodePNG(t, 64, 48, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)

	raster, err := DecodeBase64(payload)
	if err != nil {
		t.Fatalf("Expected decode to succeed, got %v", err)
	}
	if raster.Width != 64 || raster.Height != 48 || raster.Channels != 1 {
		t.Fatalf("Unexpected raster geometry: %s", raster)
	}

	tensor, err := Normalize(raster, DefaultSize, DefaultSize)
	if err != nil {
		t.Fatalf("Expected normalize to succeed, got %v", err)
	}
	if !tensor.ShapeEquals([]int64{1, 28, 28, 1}) {
		t.Errorf("Expected shape (1,28,28,1), got %v", tensor.Shape)
	}
	for i, v := range tensor.Data {
		if v < 0 || v > 1 {
			t.Fatalf("Sample %d out of unit range: %f", i, v)
		}
	}
}

func TestDecodeBase64_Unpadded(t *testing.T) {
	pngData := encodePNG(t, 3, 3, color.Black)
	payload := base64.RawStdEncoding.EncodeToString(pngData)

	if _, err := DecodeBase64(payload); err != nil {
		t.Errorf("Expected unpadded base64 to decode, got %v", err)
	}
}

func TestDecodeBase64_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty", ""},
		{"only prefix", "data:image/png;base64,"},
		{"not base64", "data:image/png;base64,***not base64***"},
		{"base64 of text", base64.StdEncoding.EncodeToString([]byte("hello, sketch"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBase64(tt.payload)
			if err == nil {
				t.Fatal("Expected error, got none")
			}
			if !apperrors.IsType(err, apperrors.ErrorTypeDecode) {
				t.Errorf("Expected decode error, got %v", err)
			}
		})
	}
}

func TestDecodeBytes_LumaConversion(t *testing.T) {
	pngData := encodePNG(t, 2, 2, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	raster, err := DecodeBytes(pngData)
	if err != nil {
		t.Fatalf("Expected decode to succeed, got %v", err)
	}
	want := 0.299*200 + 0.587*100 + 0.114*50
	if got := float64(raster.At(1, 1, 0)); math.Abs(got-want) > 1e-3 {
		t.Errorf("Expected luma %f, got %f", want, got)
	}
}

func TestDecodeBytes_TransparentPixelsKeepColour(t *testing.T) {
	pngData := encodePNG(t, 1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 0})

	raster, err := DecodeBytes(pngData)
	if err != nil {
		t.Fatalf("Expected decode to succeed, got %v", err)
	}
	if got := raster.At(0, 0, 0); math.Abs(float64(got)-255) > 1e-3 {
		t.Errorf("Expected alpha to be ignored (255), got %f", got)
	}
}

func TestDecodeBytes_JPEG(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("Failed to encode JPEG: %v", err)
	}

	raster, err := DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("Expected JPEG to decode, got %v", err)
	}
	if raster.Width != 16 || raster.Height != 16 {
		t.Errorf("Unexpected raster geometry: %s", raster)
	}
}

func TestDecodeBytes_Garbage(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("GIF89a but not really"), {0x89, 0x50, 0x4E, 0x47}} {
		_, err := DecodeBytes(data)
		if !apperrors.IsType(err, apperrors.ErrorTypeDecode) {
			t.Errorf("Expected decode error for %q, got %v", data, err)
		}
	}
}

func TestDecodeImage_KeepsColour(t *testing.T) {
	pngData := encodePNG(t, 5, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	img, format, err := DecodeImage(pngData)
	if err != nil {
		t.Fatalf("Expected decode to succeed, got %v", err)
	}
	if format != "png" {
		t.Errorf("Expected png format, got %s", format)
	}
	r, g, b, _ := img.At(0, 0).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 {
		t.Errorf("Expected colour to be preserved, got %d %d %d", r>>8, g>>8, b>>8)
	}
}

// pngHeader returns a PNG signature and IHDR chunk declaring width x height 8-bit
// grayscale, with no pixel data behind it.
func pngHeader(width, height uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], width)
	binary.BigEndian.PutUint32(ihdr[4:8], height)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 0 // grayscale

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecodeImage_RejectsOversizedHeader(t *testing.T) {
	data := pngHeader(20000, 20000)

	_, _, err := DecodeImage(data)
	if !apperrors.IsType(err, apperrors.ErrorTypeDecode) {
		t.Fatalf("Expected decode error, got %v", err)
	}
	if !strings.Contains(err.Error(), "20000x20000") {
		t.Errorf("Expected dimensions in error, got %v", err)
	}

	if _, err := DecodeBase64(base64.StdEncoding.EncodeToString(data)); !apperrors.IsType(err, apperrors.ErrorTypeDecode) {
		t.Errorf("Expected base64 path to refuse the image too, got %v", err)
	}
}

func TestDecodeImageLimited(t *testing.T) {
	data := encodePNG(t, 100, 50, color.White)

	tests := []struct {
		name      string
		maxPixels int
		wantErr   bool
	}{
		{"exactly at limit", 5000, false},
		{"one pixel over", 4999, true},
		{"default limit", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, _, err := DecodeImageLimited(data, tt.maxPixels)
			if tt.wantErr {
				if !apperrors.IsType(err, apperrors.ErrorTypeDecode) {
					t.Errorf("Expected decode error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected decode to succeed, got %v", err)
			}
			if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
				t.Errorf("Expected 100x50, got %dx%d", b.Dx(), b.Dy())
			}
		})
	}
}
