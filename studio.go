package genstudio

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mhpenta/genstudio/ratelimit"
)

// ProgressHidden is the sentinel delivered through Handlers.ProgressChanged
// when the shell should hide its progress indicator. It is a presentation
// convention owned by the studio, not a progress value.
const ProgressHidden = -1

// Handlers receives shell-facing events. All callbacks are invoked from the
// studio's dispatcher goroutine, one at a time, in delivery order — wire
// them to the interactive thread's marshaling mechanism as needed.
// Nil callbacks are skipped.
type Handlers struct {
	// StatusChanged receives human-readable status text.
	StatusChanged func(text string)

	// ProgressChanged receives a percentage in [0, 100], or ProgressHidden.
	ProgressChanged func(percent int)

	// ResultReady receives the output of a completed job.
	ResultReady func(result *Result)

	// ErrorRaised receives the message of a failed job.
	ErrorRaised func(message string)
}

// Studio is the per-tab orchestration layer for one generation kind. It
// validates user parameters, builds requests, starts and stops jobs, and
// republishes runner events to the shell.
//
// At most one job runs per studio at any time; a second submission while
// one is running fails with ErrBusy and is never queued. Two studios (text
// and image) may run concurrently against their own sessions.
type Studio struct {
	kind      Kind
	session   *Session
	runner    *Runner
	logger    *slog.Logger
	handlers  Handlers
	limiter   ratelimit.Limiter
	estimator TokenEstimator
	storage   Storage

	catalog     Catalog
	sessionOpts []SessionOption

	// mu serializes model loads against job submission, so a load cannot
	// slip in between the busy check and the engine swap.
	mu sync.Mutex

	done chan struct{}
}

// StudioOption configures a Studio.
type StudioOption func(*Studio)

// WithLogger sets a structured logger for the studio, its session and its
// runner.
func WithLogger(logger *slog.Logger) StudioOption {
	return func(s *Studio) {
		s.logger = logger
	}
}

// WithHandlers sets the shell-facing event callbacks.
func WithHandlers(handlers Handlers) StudioOption {
	return func(s *Studio) {
		s.handlers = handlers
	}
}

// WithRateLimiter enables request rate limiting for the studio. Intended
// for engines backed by metered remote APIs; local backends normally run
// unlimited.
func WithRateLimiter(limiter ratelimit.Limiter) StudioOption {
	return func(s *Studio) {
		s.limiter = limiter
	}
}

// WithStorage sets a storage backend used by SaveResult.
func WithStorage(storage Storage) StudioOption {
	return func(s *Studio) {
		s.storage = storage
	}
}

// WithCatalog overrides the built-in model catalog.
func WithCatalog(catalog Catalog) StudioOption {
	return func(s *Studio) {
		s.catalog = catalog
	}
}

// WithSessionOptions forwards options to the studio's session.
func WithSessionOptions(opts ...SessionOption) StudioOption {
	return func(s *Studio) {
		s.sessionOpts = append(s.sessionOpts, opts...)
	}
}

// NewTextStudio creates a studio for text generation.
func NewTextStudio(factory EngineFactory, opts ...StudioOption) *Studio {
	return newStudio(KindText, DefaultTextCatalog(), factory, opts...)
}

// NewImageStudio creates a studio for image generation.
func NewImageStudio(factory EngineFactory, opts ...StudioOption) *Studio {
	return newStudio(KindImage, DefaultImageCatalog(), factory, opts...)
}

func newStudio(kind Kind, catalog Catalog, factory EngineFactory, opts ...StudioOption) *Studio {
	s := &Studio{
		kind:      kind,
		logger:    slog.Default(),
		catalog:   catalog,
		estimator: NewSimpleTokenEstimator(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	sessionOpts := append([]SessionOption{WithSessionLogger(s.logger)}, s.sessionOpts...)
	s.session = NewSession(kind, s.catalog, factory, sessionOpts...)
	s.runner = NewRunner(s.session, WithRunnerLogger(s.logger))

	go s.dispatch()
	return s
}

// Models returns the friendly names of the studio's model catalog.
func (s *Studio) Models() []string {
	return s.catalog.Names()
}

// IsLoaded reports whether a model is resident in the studio's session.
func (s *Studio) IsLoaded() bool {
	return s.session.IsLoaded()
}

// CurrentModel returns the friendly name of the resident model.
func (s *Studio) CurrentModel() string {
	return s.session.CurrentModel()
}

// Running reports whether a generation job is in flight.
func (s *Studio) Running() bool {
	return s.runner.Running()
}

// LoadModel makes the named model resident. It fails with ErrBusy while a
// job is running (loads are rejected, never queued behind job completion)
// and with ErrLoadFailed when acquisition fails, leaving the session
// unloaded.
func (s *Studio) LoadModel(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runner.Running() {
		return ErrBusy
	}
	if !s.session.Load(name) {
		return ErrLoadFailed
	}
	return nil
}

// StartGeneration validates the parameters, builds the generation request
// and submits it. Precondition failures (empty prompt, out-of-range
// parameter, no resident model, busy runner, rate limit) are returned
// synchronously and no job is created.
func (s *Studio) StartGeneration(params *Request) (uuid.UUID, error) {
	req, err := s.buildRequest(params)
	if err != nil {
		return uuid.Nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.session.IsLoaded() {
		return uuid.Nil, ErrModelNotLoaded
	}

	if err := s.checkRateLimit(req.Prompt); err != nil {
		return uuid.Nil, err
	}

	id, err := s.runner.Submit(req)
	if err != nil {
		return uuid.Nil, err
	}

	s.logger.Debug("generation started",
		"kind", string(s.kind),
		"job_id", id.String(),
	)
	return id, nil
}

// StopGeneration requests cooperative cancellation of the running job.
// It is a no-op when no job is running.
func (s *Studio) StopGeneration() {
	if !s.runner.Running() {
		return
	}
	s.runner.Cancel()
}

// SaveResult exports a result through the configured storage backend.
// Text results are written as UTF-8 at basePath+".txt"; image results keep
// their encoded bytes with an extension derived from the MIME type.
func (s *Studio) SaveResult(ctx context.Context, result *Result, basePath string) (*StorageResult, error) {
	return SaveResult(ctx, s.storage, result, basePath)
}

// Close cancels any running job, stops the dispatcher and releases the
// resident model.
func (s *Studio) Close() error {
	s.runner.Cancel()
	close(s.done)
	return s.session.Close()
}

// buildRequest produces the private, validated request the worker will
// own: the studio's kind is stamped on, zero-valued parameters get their
// defaults, and the style tag is folded into the prompt.
func (s *Studio) buildRequest(params *Request) (*Request, error) {
	if params == nil {
		return nil, &ValidationError{Field: "request", Err: ErrEmptyPrompt}
	}

	req := *params
	req.Kind = s.kind
	req.Prompt = strings.TrimSpace(req.Prompt)
	if err := ValidatePrompt(req.Prompt); err != nil {
		return nil, &ValidationError{Field: "prompt", Err: err}
	}

	req = req.withDefaults()
	if err := ValidateRequest(&req); err != nil {
		return nil, err
	}

	req.Prompt = req.EffectivePrompt()
	req.Style = ""
	return &req, nil
}

func (s *Studio) checkRateLimit(prompt string) error {
	if s.limiter == nil {
		return nil
	}

	// Request overhead beyond the prompt itself.
	const tokenBuffer = 100

	tokens := s.estimator.EstimateTokens(prompt) + tokenBuffer
	if !s.limiter.TryConsume(tokens) {
		err := &RateLimitError{
			RetryAfter: s.limiter.TimeUntilAvailable(tokens),
			Model:      s.session.CurrentModel(),
		}
		s.logger.Warn("rate limit hit",
			"kind", string(s.kind),
			"model", err.Model,
			"retry_after", err.RetryAfter.String(),
		)
		return err
	}
	return nil
}

// dispatch drains the runner's event stream and republishes it through the
// shell handlers. Running on a single goroutine preserves delivery order.
func (s *Studio) dispatch() {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.runner.Events():
			s.handle(event)
		}
	}
}

func (s *Studio) handle(event Event) {
	switch event.Type {
	case EventStarted:
		s.statusChanged(s.startingStatus())
		s.progressChanged(0)
	case EventProgress:
		s.progressChanged(int(math.Round(event.Progress * 100)))
	case EventCompleted:
		s.progressChanged(100)
		s.statusChanged("Generation complete")
		s.resultReady(event.Result)
		s.progressChanged(ProgressHidden)
	case EventFailed:
		s.statusChanged("Generation failed")
		if event.Err != nil {
			s.errorRaised(event.Err.Error())
		}
		s.progressChanged(ProgressHidden)
	case EventCancelled:
		s.statusChanged("Generation stopped")
		s.progressChanged(ProgressHidden)
	}
}

func (s *Studio) startingStatus() string {
	if s.kind == KindImage {
		return "Generating image..."
	}
	return "Generating text..."
}

func (s *Studio) statusChanged(text string) {
	if s.handlers.StatusChanged != nil {
		s.handlers.StatusChanged(text)
	}
}

func (s *Studio) progressChanged(percent int) {
	if s.handlers.ProgressChanged != nil {
		s.handlers.ProgressChanged(percent)
	}
}

func (s *Studio) resultReady(result *Result) {
	if s.handlers.ResultReady != nil {
		s.handlers.ResultReady(result)
	}
}

func (s *Studio) errorRaised(message string) {
	if s.handlers.ErrorRaised != nil {
		s.handlers.ErrorRaised(message)
	}
}
