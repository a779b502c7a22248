package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"

	"github.com/autocompanion/autocompanion/internal/apperr"
)

// DefaultMaxPixels caps the pixel count of a decoded document. Normalize
// upscales by Scale in both directions, so the working image is larger still.
const DefaultMaxPixels = 16_000_000

// pdfDPI is the resolution PDF pages are rendered at.
const pdfDPI = 300

// Decoder turns downloaded document bytes into an image, refusing documents
// whose declared dimensions exceed MaxPixels before any pixels are decoded.
type Decoder struct {
	MaxPixels int
}

// NewDecoder creates a Decoder. Zero selects DefaultMaxPixels.
func NewDecoder(maxPixels int) *Decoder {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Decoder{MaxPixels: maxPixels}
}

// Decode decodes data with the default pixel cap.
func Decode(data []byte, contentType string) (image.Image, error) {
	return NewDecoder(0).Decode(data, contentType)
}

// Decode turns downloaded document bytes into an image.
// PDFs are rendered from their first page; HEIC/HEIF is decoded in pure Go.
func (d *Decoder) Decode(data []byte, contentType string) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", apperr.ErrDecode)
	}
	mimeType := normalizeMimeType(contentType)

	switch {
	case mimeType == "application/pdf" || isPDF(data):
		img, err := d.pdfFirstPage(data)
		if errors.Is(err, apperr.ErrDecode) {
			return nil, err
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrDecode, err)
		}
		return img, nil
	case isHEICFormat(data) || isHEICMimeType(mimeType):
		cfg, err := heic.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: decoding HEIC/HEIF image: %v", apperr.ErrDecode, err)
		}
		if err := d.checkSize(cfg.Width, cfg.Height); err != nil {
			return nil, err
		}
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: decoding HEIC/HEIF image: %v", apperr.ErrDecode, err)
		}
		return img, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: unsupported image format (supported: JPEG, PNG, GIF, HEIC, HEIF, PDF): %v", apperr.ErrDecode, err)
		}
		return nil, fmt.Errorf("%w: decoding image: %v", apperr.ErrDecode, err)
	}
	if err := d.checkSize(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image: %v", apperr.ErrDecode, err)
	}
	return img, nil
}

// checkSize rejects dimensions over the pixel cap
func (d *Decoder) checkSize(w, h int) error {
	limit := d.MaxPixels
	if limit <= 0 {
		limit = DefaultMaxPixels
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: invalid image dimensions %dx%d", apperr.ErrDecode, w, h)
	}
	if int64(w)*int64(h) > int64(limit) {
		return fmt.Errorf("%w: image is %dx%d, over the %d pixel limit", apperr.ErrDecode, w, h, limit)
	}
	return nil
}

// EncodePNG encodes img for engines that take image bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// pdfFirstPage renders page one; scanned permits are single page.
func (d *Decoder) pdfFirstPage(data []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	// page bounds are in points, 72 to the inch
	bound, err := doc.Bound(0)
	if err != nil {
		return nil, fmt.Errorf("reading PDF page size: %w", err)
	}
	w := int(float64(bound.Dx()) * pdfDPI / 72)
	h := int(float64(bound.Dy()) * pdfDPI / 72)
	if err := d.checkSize(w, h); err != nil {
		return nil, err
	}

	img, err := doc.ImageDPI(0, pdfDPI)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

func normalizeMimeType(contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}

func isPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// isHEICFormat checks for an ftyp box with a HEIC-family brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
