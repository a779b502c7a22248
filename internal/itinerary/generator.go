package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Generator defines the interface for text generation backends
type Generator interface {
	// Generate returns the model's answer to prompt
	Generate(ctx context.Context, prompt string) (string, error)
	// Close releases backend resources
	Close() error
}

// DefaultTimeout bounds one generation call.
const DefaultTimeout = 40 * time.Second

// Planner builds a prompt and makes exactly one generation call for it.
type Planner struct {
	generator Generator
	timeout   time.Duration
}

// NewPlanner creates a Planner. A zero timeout selects DefaultTimeout.
func NewPlanner(generator Generator, timeout time.Duration) *Planner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Planner{generator: generator, timeout: timeout}
}

// Plan returns the raw generated itinerary text for req.
func (p *Planner) Plan(ctx context.Context, req TripRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	text, err := p.generator.Generate(ctx, BuildPrompt(req))
	if err != nil {
		return "", fmt.Errorf("generating itinerary: %w", err)
	}

	slog.Debug("itinerary generated",
		"destination", req.Destination,
		"chars", len(text),
		"duration", time.Since(start))
	return text, nil
}
