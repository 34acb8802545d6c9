// Package gemini provides an image Engine using Google's Gemini API via
// the official Go SDK (https://github.com/googleapis/go-genai).
//
// Unlike the local backends, Gemini is a remote, metered service: pair it
// with a studio rate limiter. The API is single-shot, so progress is
// reported once, at completion.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/mhpenta/genstudio"
)

// Factory acquires image engines against the Gemini API.
type Factory struct {
	// APIKey for the Gemini API. When empty the SDK falls back to the
	// GOOGLE_API_KEY / GEMINI_API_KEY environment variables.
	APIKey string
}

var _ genstudio.EngineFactory = (*Factory)(nil)

// NewFactory creates a factory for the Gemini API backend.
func NewFactory(apiKey string) *Factory {
	return &Factory{APIKey: apiKey}
}

// Acquire creates a client and returns an engine bound to modelID. The
// modelID is the API model name, e.g. "gemini-2.5-flash-image".
func (f *Factory) Acquire(ctx context.Context, modelID string, cfg genstudio.AcquireConfig) (genstudio.Engine, error) {
	clientCfg := &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
	}
	if f.APIKey != "" {
		clientCfg.APIKey = f.APIKey
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	return &ImageEngine{client: client, model: modelID}, nil
}

// ImageEngine generates images through GenerateContent with image output
// enabled.
type ImageEngine struct {
	client *genai.Client
	model  string
}

var _ genstudio.Engine = (*ImageEngine)(nil)

func (e *ImageEngine) Generate(ctx context.Context, req *genstudio.Request, onProgress genstudio.ProgressFunc) (*genstudio.Result, error) {
	prompt := req.Prompt
	if req.NegativePrompt != "" {
		// The API has no negative-prompt field; fold it into the prompt.
		prompt = fmt.Sprintf("%s. Avoid: %s", prompt, req.NegativePrompt)
	}

	contents := []*genai.Content{
		{Parts: []*genai.Part{{Text: prompt}}},
	}

	genConfig := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
		ImageConfig: &genai.ImageConfig{
			AspectRatio: aspectRatioFor(req.Width, req.Height),
		},
	}

	result, err := e.client.Models.GenerateContent(ctx, e.model, contents, genConfig)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	out, err := parseResult(result, req.Width, req.Height)
	if err != nil {
		return nil, err
	}

	if onProgress != nil {
		onProgress(1.0)
	}
	return out, nil
}

func (e *ImageEngine) Close() error {
	// The genai.Client doesn't require explicit closing in the current SDK.
	return nil
}

// aspectRatioFor maps requested dimensions onto the closest aspect ratio
// the API accepts.
func aspectRatioFor(width, height int) string {
	if width <= 0 || height <= 0 {
		return "1:1"
	}
	ratio := float64(width) / float64(height)
	switch {
	case ratio > 1.5:
		return "16:9"
	case ratio > 1.1:
		return "4:3"
	case ratio > 0.9:
		return "1:1"
	case ratio > 0.65:
		return "3:4"
	default:
		return "9:16"
	}
}

// parseResult extracts the first generated image from the response.
func parseResult(result *genai.GenerateContentResponse, width, height int) (*genstudio.Result, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, errors.New("empty response from model")
	}

	out := &genstudio.Result{}
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != nil && out.Image == nil {
				out.Image = &genstudio.GeneratedImage{
					Data:     part.InlineData.Data,
					MIMEType: part.InlineData.MIMEType,
					Width:    width,
					Height:   height,
				}
			}
		}
	}

	if out.Image == nil {
		return nil, errors.New("response contained no image data")
	}

	if result.UsageMetadata != nil {
		out.Usage = &genstudio.Usage{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
		}
	}

	return out, nil
}
