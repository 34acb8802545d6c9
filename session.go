package genstudio

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.uber.org/atomic"
)

// Session owns at most one resident model of a given kind. Loading a new
// model replaces the prior one; the prior engine is released before the new
// one is acquired, so a failed load leaves the session unloaded rather than
// silently falling back to stale state.
type Session struct {
	kind     Kind
	catalog  Catalog
	factory  EngineFactory
	device   string
	cacheDir string
	logger   *slog.Logger

	mu      sync.RWMutex
	engine  Engine
	current string // friendly name of the resident model
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithDevice overrides the compute device ("cuda" or "cpu").
func WithDevice(device string) SessionOption {
	return func(s *Session) {
		s.device = device
	}
}

// WithCacheDir sets the directory used for downloaded model weights.
func WithCacheDir(dir string) SessionOption {
	return func(s *Session) {
		s.cacheDir = dir
	}
}

// WithSessionLogger sets a structured logger for the session.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a session for one generation kind. The device is
// resolved once at creation: an explicit WithDevice wins, otherwise an
// accelerator is probed and "cpu" is the fallback.
func NewSession(kind Kind, catalog Catalog, factory EngineFactory, opts ...SessionOption) *Session {
	s := &Session{
		kind:     kind,
		catalog:  catalog,
		factory:  factory,
		cacheDir: DefaultCacheDir,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.device == "" {
		s.device = DetectDevice()
	}
	return s
}

// Load acquires the model identified by a friendly name (resolved through
// the session's catalog) and makes it resident. Any prior model is released
// first. Load reports failure by return value only; on failure the session
// is left unloaded.
func (s *Session) Load(name string) bool {
	modelID := s.catalog.Resolve(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine != nil {
		if err := s.engine.Close(); err != nil {
			s.logger.Warn("releasing resident engine",
				"kind", string(s.kind),
				"model", s.current,
				"error", err.Error(),
			)
		}
		s.engine = nil
		s.current = ""
	}

	engine, err := s.factory.Acquire(context.Background(), modelID, AcquireConfig{
		Device:   s.device,
		CacheDir: s.cacheDir,
	})
	if err != nil {
		s.logger.Error("model load failed",
			"kind", string(s.kind),
			"model", name,
			"model_id", modelID,
			"error", err.Error(),
		)
		return false
	}

	s.engine = engine
	s.current = name
	s.logger.Info("model loaded",
		"kind", string(s.kind),
		"model", name,
		"model_id", modelID,
		"device", s.device,
	)
	return true
}

// IsLoaded reports whether a model is currently resident.
func (s *Session) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine != nil
}

// CurrentModel returns the friendly name of the resident model, or "" when
// the session is unloaded.
func (s *Session) CurrentModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Kind returns the session's generation kind.
func (s *Session) Kind() Kind {
	return s.kind
}

// Device returns the compute device resolved at session creation.
func (s *Session) Device() string {
	return s.device
}

// Generate synchronously drives the resident engine. It fails with
// ErrModelNotLoaded when no model is resident. Engine failures are wrapped
// in a GenerationError; context cancellation passes through untouched.
// On success onProgress is guaranteed to have been invoked with 1.0.
func (s *Session) Generate(ctx context.Context, req *Request, onProgress ProgressFunc) (*Result, error) {
	s.mu.RLock()
	engine := s.engine
	model := s.current
	s.mu.RUnlock()

	if engine == nil {
		return nil, ErrModelNotLoaded
	}

	last := atomic.NewFloat64(0)
	wrapped := func(fraction float64) {
		last.Store(fraction)
		if onProgress != nil {
			onProgress(fraction)
		}
	}

	result, err := engine.Generate(ctx, req, wrapped)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &GenerationError{Model: model, Err: err}
	}

	if onProgress != nil && last.Load() < 1.0 {
		onProgress(1.0)
	}
	return result, nil
}

// Close releases the resident engine, if any, and leaves the session
// unloaded.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine == nil {
		return nil
	}
	err := s.engine.Close()
	s.engine = nil
	s.current = ""
	return err
}
