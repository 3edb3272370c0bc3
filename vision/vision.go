// Package vision talks to the cloud providers that label inspection photos.
// Providers return a finite, possibly-empty tag list plus a free-text
// caption; any transport or auth failure is surfaced to the caller, which
// skips the photo and continues with the rest of the batch.
package vision

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/trever9122/Inspection-app/condition"
	"github.com/trever9122/Inspection-app/config"
)

// Analysis is the provider output for one photo.
type Analysis struct {
	Tags    []condition.Tag `json:"tags"`
	Caption string          `json:"caption"`
}

// Source produces raw tags for a photo.
type Source interface {
	Name() string
	Analyze(ctx context.Context, image []byte, mime string) (Analysis, error)
}

// NewSource builds the configured provider.
func NewSource(cfg config.Config, client *http.Client) (Source, error) {
	if client == nil {
		client = &http.Client{Timeout: time.Duration(cfg.Vision.TimeoutSec) * time.Second}
	}
	switch cfg.Provider {
	case "azure":
		return NewAzure(cfg.Vision, client), nil
	case "openai":
		return NewOpenAI(cfg.Vision, client), nil
	default:
		return nil, fmt.Errorf("unknown vision provider %q", cfg.Provider)
	}
}

// WithRetries wraps a source with bounded linear-backoff retries.
func WithRetries(src Source, attempts int) Source {
	if attempts < 1 {
		attempts = 1
	}
	return &retrySource{src: src, attempts: attempts}
}

type retrySource struct {
	src      Source
	attempts int
}

func (r *retrySource) Name() string { return r.src.Name() }

func (r *retrySource) Analyze(ctx context.Context, image []byte, mime string) (Analysis, error) {
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Analysis{}, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		analysis, err := r.src.Analyze(ctx, image, mime)
		if err == nil {
			return analysis, nil
		}
		lastErr = err
	}
	return Analysis{}, lastErr
}
