package raster

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// ExportFilename is the fixed name under which every export downloads,
// whatever the artwork is called in the gallery.
const ExportFilename = "artwork.png"

// ThumbnailMaxDim caps the longer side of gallery thumbnails. Clients send
// whatever their canvas produced; rescaling here keeps gallery blobs small.
const ThumbnailMaxDim = 320

const pngDataURIPrefix = "data:image/png;base64,"

// DecodePNG decodes a PNG data URI, rejecting anything that is not a
// well-formed PNG. Returns the decoded image together with the raw PNG
// bytes.
func DecodePNG(uri string) (image.Image, []byte, error) {
	payload, ok := strings.CutPrefix(uri, pngDataURIPrefix)
	if !ok {
		return nil, nil, fmt.Errorf("not a PNG data URI")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid PNG data: %w", err)
	}
	return img, raw, nil
}

// ValidateExport checks an export payload and returns the PNG bytes to
// serve as the download.
func ValidateExport(uri string) ([]byte, error) {
	_, raw, err := DecodePNG(uri)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Thumbnail rescales a PNG data URI so its longer side is at most maxDim,
// preserving aspect ratio. URIs already within bounds pass through
// unchanged.
func Thumbnail(uri string, maxDim int) (string, error) {
	img, _, err := DecodePNG(uri)
	if err != nil {
		return "", err
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return uri, nil
	}

	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}
	return pngDataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
