// Package ocr turns a document image into raw text: download, decode,
// normalize, then hand the image to a recognition engine.
package ocr

import (
	"context"
	"image"
)

// Recognizer defines the interface for text recognition engines
type Recognizer interface {
	// Recognize returns the text found in img
	Recognize(ctx context.Context, img *image.Gray) (string, error)
	// Close releases engine resources
	Close() error
}

// Settings configures the Tesseract engine.
type Settings struct {
	Language    string
	PageSegMode int
	DPI         int
}

// DefaultSettings reads sparse text in English at 300 DPI.
func DefaultSettings() Settings {
	return Settings{Language: "eng", PageSegMode: 11, DPI: 300}
}
