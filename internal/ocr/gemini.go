package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/autocompanion/autocompanion/internal/apperr"
)

const transcribePrompt = `Transcribe every piece of printed or handwritten text in this document image.
Keep the original line breaks. Do not summarize, translate or add commentary.
Respond with the transcription only.`

// Gemini implements the Recognizer interface with a Gemini vision model.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a Gemini recognizer.
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

// Recognize sends img to Gemini and returns the transcription.
func (g *Gemini) Recognize(ctx context.Context, img *image.Gray) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrRecognition, err)
	}

	// genai.ImageData takes the format suffix, not the MIME type
	resp, err := g.model.GenerateContent(ctx, genai.ImageData("png", data), genai.Text(transcribePrompt))
	if err != nil {
		return "", fmt.Errorf("%w: generating content: %v", apperr.ErrRecognition, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		payload, _ := json.Marshal(resp)
		return "", apperr.Upstream("no transcription from gemini", payload)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String(), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
