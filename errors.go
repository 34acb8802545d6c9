package genstudio

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrModelNotLoaded is returned when generation is requested with no
	// resident model.
	ErrModelNotLoaded = errors.New("model is not loaded")

	// ErrBusy is returned when a submission or model load is attempted
	// while a job is already running. The attempt is never queued.
	ErrBusy = errors.New("a generation job is already running")

	// ErrLoadFailed is returned by Studio.LoadModel when the session could
	// not acquire the requested model. The session is left unloaded.
	ErrLoadFailed = errors.New("model load failed")
)

// ValidationError reports a caller-supplied parameter that violates a
// precondition. It is surfaced synchronously, before any job is created.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// GenerationError wraps a failure reported by the inference engine during
// execution. The message is opaque passthrough; the engine's failure is not
// classified further.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed on %s: %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsGenerationError checks if an error is a GenerationError.
func IsGenerationError(err error) bool {
	var gErr *GenerationError
	return errors.As(err, &gErr)
}

// RateLimitError is returned when a studio-level rate limit is hit.
type RateLimitError struct {
	RetryAfter time.Duration
	Model      string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %v",
		e.Model, e.RetryAfter)
}

// IsRateLimitError checks if an error is a RateLimitError.
func IsRateLimitError(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}

// ErrStorageNotConfigured is returned when result export is attempted
// without a configured storage backend.
var ErrStorageNotConfigured = errors.New("storage not configured")
