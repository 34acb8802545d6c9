// Package openai provides a text Engine backed by any OpenAI-compatible
// completion server. The intended targets are locally hosted runtimes such
// as llama.cpp, Ollama and vLLM, which all expose this API surface.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/mhpenta/genstudio"
)

// Factory acquires text engines bound to a concrete model on one backend
// server.
type Factory struct {
	// BaseURL of the OpenAI-compatible server, e.g.
	// "http://localhost:11434/v1".
	BaseURL string

	// APIKey for the backend. Local servers usually accept any value.
	APIKey string
}

var _ genstudio.EngineFactory = (*Factory)(nil)

// NewFactory creates a factory for the given backend server.
func NewFactory(baseURL, apiKey string) *Factory {
	return &Factory{BaseURL: baseURL, APIKey: apiKey}
}

// Acquire probes the backend and returns an engine bound to modelID. A
// dead backend fails the load here rather than on the first job.
func (f *Factory) Acquire(ctx context.Context, modelID string, cfg genstudio.AcquireConfig) (genstudio.Engine, error) {
	config := goopenai.DefaultConfig(f.APIKey)
	if f.BaseURL != "" {
		config.BaseURL = f.BaseURL
	}
	client := goopenai.NewClientWithConfig(config)

	if _, err := client.ListModels(ctx); err != nil {
		return nil, fmt.Errorf("text backend unreachable: %w", err)
	}

	return &TextEngine{client: client, model: modelID}, nil
}

// TextEngine generates text through a streaming chat completion. Progress
// is the ratio of received completion tokens to the request's MaxLength,
// so a shell gets meaningful feedback during long generations.
type TextEngine struct {
	client *goopenai.Client
	model  string
}

var _ genstudio.Engine = (*TextEngine)(nil)

func (e *TextEngine) Generate(ctx context.Context, req *genstudio.Request, onProgress genstudio.ProgressFunc) (*genstudio.Result, error) {
	chatReq := goopenai.ChatCompletionRequest{
		Model: e.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxLength,
		Temperature: float32(req.Temperature),
		Stream:      true,
	}

	stream, err := e.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("starting completion stream: %w", err)
	}
	defer stream.Close()

	var sb strings.Builder
	tokens := 0
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("receiving completion chunk: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		sb.WriteString(chunk.Choices[0].Delta.Content)
		tokens++
		if onProgress != nil && req.MaxLength > 0 {
			fraction := float64(tokens) / float64(req.MaxLength)
			if fraction > 1 {
				fraction = 1
			}
			onProgress(fraction)
		}
	}

	if onProgress != nil {
		onProgress(1.0)
	}

	return &genstudio.Result{
		Text:  sb.String(),
		Usage: &genstudio.Usage{CompletionTokens: tokens, TotalTokens: tokens},
	}, nil
}

func (e *TextEngine) Close() error {
	return nil
}
