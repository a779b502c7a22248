package itinerary

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/autocompanion/autocompanion/internal/apperr"
)

// Gemini implements the Generator interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Generator instance
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// Generate sends prompt to Gemini.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %v", apperr.ErrUpstream, err)
	}
	return geminiText(resp)
}

// geminiText reads the first candidate's first part, which must be text.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp != nil && len(resp.Candidates) > 0 {
		if content := resp.Candidates[0].Content; content != nil && len(content.Parts) > 0 {
			if text, ok := content.Parts[0].(genai.Text); ok {
				return string(text), nil
			}
		}
	}
	payload, _ := json.Marshal(resp)
	return "", apperr.Upstream("unexpected gemini response", payload)
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
