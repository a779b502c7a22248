package ocr

import (
	"context"
	"fmt"
	"image"
	"strconv"

	"github.com/otiai10/gosseract/v2"

	"github.com/autocompanion/autocompanion/internal/apperr"
)

// Tesseract implements the Recognizer interface with libtesseract.
type Tesseract struct {
	settings Settings
}

// NewTesseract creates a Tesseract recognizer.
func NewTesseract(settings Settings) *Tesseract {
	def := DefaultSettings()
	if settings.Language == "" {
		settings.Language = def.Language
	}
	if settings.PageSegMode <= 0 {
		settings.PageSegMode = def.PageSegMode
	}
	if settings.DPI <= 0 {
		settings.DPI = def.DPI
	}
	return &Tesseract{settings: settings}
}

// Recognize runs Tesseract over img. A gosseract client is not safe for
// concurrent use, so each call gets its own.
func (t *Tesseract) Recognize(ctx context.Context, img *image.Gray) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := EncodePNG(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrRecognition, err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.settings.Language); err != nil {
		return "", fmt.Errorf("%w: setting language: %v", apperr.ErrRecognition, err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(t.settings.PageSegMode)); err != nil {
		return "", fmt.Errorf("%w: setting page segmentation: %v", apperr.ErrRecognition, err)
	}
	if err := client.SetVariable("user_defined_dpi", strconv.Itoa(t.settings.DPI)); err != nil {
		return "", fmt.Errorf("%w: setting dpi: %v", apperr.ErrRecognition, err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("%w: loading image: %v", apperr.ErrRecognition, err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrRecognition, err)
	}
	return text, nil
}

// Close is a no-op; clients are released per call.
func (t *Tesseract) Close() error {
	return nil
}
