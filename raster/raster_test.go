package raster

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecodePNG(t *testing.T) {
	img, raw, err := DecodePNG(pngDataURI(t, 8, 6))
	if err != nil {
		t.Fatalf("DecodePNG failed: %v", err)
	}
	if got := img.Bounds(); got.Dx() != 8 || got.Dy() != 6 {
		t.Errorf("bounds = %v, want 8x6", got)
	}
	if len(raw) == 0 {
		t.Error("expected raw PNG bytes")
	}
}

func TestDecodePNGRejectsBadInput(t *testing.T) {
	var jpegBuf bytes.Buffer
	if err := jpeg.Encode(&jpegBuf, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}

	cases := map[string]string{
		"empty":          "",
		"no data prefix": "hello world",
		"jpeg mime":      "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegBuf.Bytes()),
		"bad base64":     "data:image/png;base64,%%%not-base64%%%",
		"mislabeled":     "data:image/png;base64," + base64.StdEncoding.EncodeToString(jpegBuf.Bytes()),
	}
	for name, uri := range cases {
		if _, _, err := DecodePNG(uri); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestValidateExportReturnsOriginalBytes(t *testing.T) {
	uri := pngDataURI(t, 16, 16)
	raw, err := ValidateExport(uri)
	if err != nil {
		t.Fatalf("ValidateExport failed: %v", err)
	}
	want, _ := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	if !bytes.Equal(raw, want) {
		t.Error("export bytes differ from the submitted payload")
	}
}

func TestThumbnailDownscales(t *testing.T) {
	out, err := Thumbnail(pngDataURI(t, 800, 600), ThumbnailMaxDim)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	img, _, err := DecodePNG(out)
	if err != nil {
		t.Fatalf("thumbnail is not a PNG data URI: %v", err)
	}
	if got := img.Bounds(); got.Dx() != ThumbnailMaxDim || got.Dy() != 240 {
		t.Errorf("bounds = %v, want 320x240", got)
	}
}

func TestThumbnailPortraitUsesLongSide(t *testing.T) {
	out, err := Thumbnail(pngDataURI(t, 300, 600), 300)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	img, _, err := DecodePNG(out)
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if got := img.Bounds(); got.Dy() != 300 || got.Dx() != 150 {
		t.Errorf("bounds = %v, want 150x300", got)
	}
}

func TestThumbnailSmallImagePassesThrough(t *testing.T) {
	uri := pngDataURI(t, 100, 80)
	out, err := Thumbnail(uri, ThumbnailMaxDim)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	if out != uri {
		t.Error("image within bounds should pass through unchanged")
	}
}
