// Package document reads the expiry date off a photographed permit or
// licence given its URL.
package document

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/autocompanion/autocompanion/internal/apperr"
	"github.com/autocompanion/autocompanion/internal/expiry"
	"github.com/autocompanion/autocompanion/internal/ocr"
)

// Fetcher downloads a document image
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// IDGenerator names debug artifacts
type IDGenerator interface {
	Generate() string
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

// Document is the outcome of one extraction.
type Document struct {
	RawText    string `json:"extracted_text"`
	ExpiryDate string `json:"expiry_date"`
}

// Service runs the download, normalize, recognize and match pipeline.
type Service struct {
	fetcher     Fetcher
	decoder     *ocr.Decoder
	normalizer  *ocr.Normalizer
	recognizer  ocr.Recognizer
	matcher     *expiry.Matcher
	artifacts   Storage
	idGenerator IDGenerator
}

// NewService creates a Service. artifacts may be nil to skip debug output;
// a nil decoder, normalizer or matcher selects the defaults.
func NewService(fetcher Fetcher, decoder *ocr.Decoder, normalizer *ocr.Normalizer, recognizer ocr.Recognizer, matcher *expiry.Matcher, artifacts Storage) *Service {
	return NewServiceWithDeps(fetcher, decoder, normalizer, recognizer, matcher, artifacts, uuidGenerator{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(fetcher Fetcher, decoder *ocr.Decoder, normalizer *ocr.Normalizer, recognizer ocr.Recognizer, matcher *expiry.Matcher, artifacts Storage, idGen IDGenerator) *Service {
	if decoder == nil {
		decoder = ocr.NewDecoder(0)
	}
	if normalizer == nil {
		normalizer = ocr.NewNormalizer()
	}
	if matcher == nil {
		matcher = expiry.NewMatcher()
	}
	return &Service{
		fetcher:     fetcher,
		decoder:     decoder,
		normalizer:  normalizer,
		recognizer:  recognizer,
		matcher:     matcher,
		artifacts:   artifacts,
		idGenerator: idGen,
	}
}

// ExtractFromURL recognizes the text of the image at url and picks its
// expiry date. A document without a recognizable date is not an error;
// its ExpiryDate is expiry.NotDetected.
func (s *Service) ExtractFromURL(ctx context.Context, url string) (*Document, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, apperr.Validation("file_url missing")
	}

	start := time.Now()
	data, contentType, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	img, err := s.decoder.Decode(data, contentType)
	if err != nil {
		slog.Error("Failed to decode document",
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return nil, err
	}

	id := s.idGenerator.Generate()
	s.saveArtifact(id+"_raw.png", img)

	gray, err := s.normalizer.Normalize(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("normalizing image: %w", err)
	}
	s.saveArtifact(id+"_processed.png", gray)

	text, err := s.recognizer.Recognize(ctx, gray)
	if err != nil {
		return nil, fmt.Errorf("recognizing text: %w", err)
	}

	raw := strings.TrimSpace(text)
	match, found := s.matcher.Find(raw)
	date := expiry.NotDetected
	if found {
		date = match.Date
	}

	slog.Info("Document processed",
		"artifact_id", id,
		"chars", len(raw),
		"expiry_date", date,
		"rule", match.Rule,
		"duration", time.Since(start),
	)

	return &Document{RawText: raw, ExpiryDate: date}, nil
}

// saveArtifact writes a debug image when artifact storage is configured.
// Failures are logged and never fail the request.
func (s *Service) saveArtifact(name string, img image.Image) {
	if s.artifacts == nil {
		return
	}
	data, err := ocr.EncodePNG(img)
	if err == nil {
		_, err = s.artifacts.Save(name, data)
	}
	if err != nil {
		slog.Warn("Failed to save debug artifact", "name", name, "error", err)
	}
}
