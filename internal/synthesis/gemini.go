package synthesis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash-image"

// GeminiSynthesizer edits rooms via Gemini inline-image outputs. All request
// images are forwarded as inline parts alongside the prompt.
type GeminiSynthesizer struct {
	apiKey  string
	model   string
	timeout time.Duration
}

// NewGeminiSynthesizer constructs a synthesizer able to request inline images.
func NewGeminiSynthesizer(apiKey, model string, timeout time.Duration) *GeminiSynthesizer {
	if strings.TrimSpace(model) == "" {
		model = defaultGeminiModel
	}
	model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &GeminiSynthesizer{
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
	}
}

// Edit requests a composited image for the prompt and reference imagery.
func (g *GeminiSynthesizer) Edit(ctx context.Context, req Request) ([]byte, error) {
	if g == nil || strings.TrimSpace(g.apiKey) == "" {
		return nil, fmt.Errorf("gemini: synthesizer unavailable")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("gemini: prompt is required")
	}

	childCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	client, err := genai.NewClient(childCtx, &genai.ClientConfig{
		APIKey: g.apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, img := range req.Images {
		mime := img.ContentType
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts, genai.NewPartFromBytes(img.Data, mime))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := client.Models.GenerateContent(childCtx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini: response has no candidates")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		return part.InlineData.Data, nil
	}
	return nil, fmt.Errorf("gemini: response contained no image data")
}
