// Package sdwebui provides an image Engine backed by a locally hosted
// Stable Diffusion WebUI (AUTOMATIC1111-compatible) server.
//
// Generation posts to /sdapi/v1/txt2img; while the call is in flight a
// poller reads /sdapi/v1/progress so the shell gets real fractional
// progress per diffusion step.
package sdwebui

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/mhpenta/genstudio"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultTimeout      = 10 * time.Minute
)

// Factory acquires image engines against one WebUI server.
type Factory struct {
	// BaseURL of the WebUI server, e.g. "http://localhost:7860".
	BaseURL string

	// PollInterval between progress reads. Zero means the default.
	PollInterval time.Duration

	// Timeout for the generation call. Zero means the default.
	Timeout time.Duration
}

var _ genstudio.EngineFactory = (*Factory)(nil)

// NewFactory creates a factory for the given WebUI server.
func NewFactory(baseURL string) *Factory {
	return &Factory{BaseURL: baseURL}
}

// Acquire selects the checkpoint on the server and returns an engine bound
// to it. Checkpoint selection is the WebUI's model load; failure here
// leaves nothing resident.
func (f *Factory) Acquire(ctx context.Context, modelID string, cfg genstudio.AcquireConfig) (genstudio.Engine, error) {
	timeout := f.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	client := resty.New()
	client.SetTimeout(timeout)

	engine := &ImageEngine{
		client:       client,
		baseURL:      strings.TrimRight(f.BaseURL, "/"),
		model:        modelID,
		pollInterval: f.PollInterval,
	}
	if engine.pollInterval == 0 {
		engine.pollInterval = defaultPollInterval
	}

	resp, err := client.R().
		SetContext(ctx).
		SetBody(map[string]string{"sd_model_checkpoint": modelID}).
		Post(engine.endpoint("/sdapi/v1/options"))
	if err != nil {
		return nil, fmt.Errorf("selecting checkpoint %q: %w", modelID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("selecting checkpoint %q: %s", modelID, resp.Status())
	}

	return engine, nil
}

// ImageEngine drives txt2img generation on a WebUI server.
type ImageEngine struct {
	client       *resty.Client
	baseURL      string
	model        string
	pollInterval time.Duration
}

var _ genstudio.Engine = (*ImageEngine)(nil)

type txt2imgRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	CfgScale       float64 `json:"cfg_scale"`
}

type txt2imgResponse struct {
	Images []string `json:"images"`
}

type progressResponse struct {
	Progress float64 `json:"progress"`
}

func (e *ImageEngine) Generate(ctx context.Context, req *genstudio.Request, onProgress genstudio.ProgressFunc) (*genstudio.Result, error) {
	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	if onProgress != nil {
		go e.pollProgress(pollCtx, onProgress)
	}

	var out txt2imgResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(&txt2imgRequest{
			Prompt:         req.Prompt,
			NegativePrompt: req.NegativePrompt,
			Width:          req.Width,
			Height:         req.Height,
			Steps:          req.Steps,
			CfgScale:       req.GuidanceScale,
		}).
		SetResult(&out).
		Post(e.endpoint("/sdapi/v1/txt2img"))
	stopPolling()
	if err != nil {
		return nil, fmt.Errorf("txt2img: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("txt2img: %s", resp.Status())
	}
	if len(out.Images) == 0 {
		return nil, errors.New("backend returned no images")
	}

	data, err := base64.StdEncoding.DecodeString(out.Images[0])
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	if onProgress != nil {
		onProgress(1.0)
	}

	return &genstudio.Result{
		Image: &genstudio.GeneratedImage{
			Data:     data,
			MIMEType: "image/png",
			Width:    req.Width,
			Height:   req.Height,
		},
	}, nil
}

// pollProgress reads the server's progress endpoint until the context is
// cancelled. Read failures are skipped; the next tick tries again.
func (e *ImageEngine) pollProgress(ctx context.Context, onProgress genstudio.ProgressFunc) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var pr progressResponse
			resp, err := e.client.R().
				SetContext(ctx).
				SetResult(&pr).
				Get(e.endpoint("/sdapi/v1/progress"))
			if err != nil || resp.IsError() {
				continue
			}
			if pr.Progress > 0 {
				onProgress(pr.Progress)
			}
		}
	}
}

func (e *ImageEngine) Close() error {
	return nil
}

func (e *ImageEngine) endpoint(path string) string {
	return e.baseURL + path
}
