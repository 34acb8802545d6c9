// Package genstudio coordinates long-running, cancellable generation jobs
// against locally hosted text and image models.
//
// The package is built around three pieces:
//
//   - Session owns at most one resident model per kind and drives the
//     underlying inference engine synchronously.
//   - Runner executes one job at a time on a worker goroutine, relaying
//     clamped, monotonic progress and exactly one terminal event per job.
//   - Studio is the per-tab orchestration layer: it validates input, builds
//     requests, starts and stops jobs, and republishes job events to a
//     desktop shell through a narrow callback surface.
//
// Inference backends implement the Engine interface. Implementations for
// local OpenAI-compatible servers (llama.cpp, Ollama, vLLM), Stable
// Diffusion WebUI, and the Gemini API live under engine/.
package genstudio

import "context"

// Kind identifies a generation domain.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// ProgressFunc receives fractional progress in [0.0, 1.0]. Engines may call
// it zero or more times during generation, from any goroutine.
type ProgressFunc func(fraction float64)

// Engine is the opaque inference capability for one concrete model.
// Implementations must honor context cancellation where their backend
// allows it; generation is otherwise synchronous and blocking.
//
// On success an engine reports progress 1.0 at least once before returning.
type Engine interface {
	// Generate produces a result for the request, reporting fractional
	// progress through onProgress (which may be nil).
	Generate(ctx context.Context, req *Request, onProgress ProgressFunc) (*Result, error)

	// Close releases any resources held by the engine.
	Close() error
}

// AcquireConfig carries session-level settings into engine acquisition.
type AcquireConfig struct {
	// Device is the compute device resolved at session creation
	// ("cuda" or "cpu").
	Device string

	// CacheDir is the directory for downloaded model weights.
	CacheDir string
}

// EngineFactory acquires an Engine bound to a canonical model identifier.
// Acquisition failure (missing weights, unreachable backend, incompatible
// runtime) is reported as an error; the factory must not retain partial
// state for a failed acquisition.
type EngineFactory interface {
	Acquire(ctx context.Context, modelID string, cfg AcquireConfig) (Engine, error)
}

// Generator is the narrow slice of Session that the Runner needs.
type Generator interface {
	Generate(ctx context.Context, req *Request, onProgress ProgressFunc) (*Result, error)
}

// TokenEstimator approximates the token cost of a prompt for rate limiting.
type TokenEstimator interface {
	EstimateTokens(text string) int
}
