package ocr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/autocompanion/autocompanion/internal/apperr"
)

const (
	// DefaultFetchTimeout bounds a single image download.
	DefaultFetchTimeout = 15 * time.Second
	// DefaultMaxBytes caps the size of a downloaded image.
	DefaultMaxBytes = 20 << 20
)

// Fetcher downloads document images over HTTP.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher creates a Fetcher. Zero values select the defaults.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Fetch returns the body and content type at url. Any non-2xx status is an
// upstream failure carrying a truncated copy of the body.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", apperr.Validation("invalid file_url %q: %v", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: fetching image: %v", apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	// one extra byte tells an exact-size body apart from an oversized one
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading image: %v", apperr.ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", apperr.Upstream(fmt.Sprintf("fetching image: status %d", resp.StatusCode), body)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, "", fmt.Errorf("%w: image exceeds %d bytes", apperr.ErrUpstream, f.maxBytes)
	}

	return body, resp.Header.Get("Content-Type"), nil
}
