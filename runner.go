package genstudio

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// eventBuffer absorbs bursts of progress updates so a briefly slow
// subscriber does not stall the worker.
const eventBuffer = 256

// Runner executes at most one generation job at a time on a dedicated
// worker goroutine. Progress and terminal notifications are delivered on
// the Events channel in the order they were produced; the terminal event
// for a job is always last and is delivered exactly once.
//
// The Events channel must be drained; the Studio owns that in normal use.
type Runner struct {
	generator Generator
	logger    *slog.Logger
	events    chan Event

	mu  sync.Mutex
	job *Job // nil when idle
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets a structured logger for the runner.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner that executes jobs against the generator.
func NewRunner(generator Generator, opts ...RunnerOption) *Runner {
	r := &Runner{
		generator: generator,
		logger:    slog.Default(),
		events:    make(chan Event, eventBuffer),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Events returns the ordered event stream for all jobs run by this runner.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// Running reports whether a job is currently in flight.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.job != nil
}

// Submit starts a new job for the request. It fails with ErrBusy while a
// job is running; the running job is unaffected. Once a job reaches a
// terminal state the runner accepts the next submission without any
// explicit reset.
//
// The worker owns a private copy of the request.
func (r *Runner) Submit(req *Request) (uuid.UUID, error) {
	if req == nil {
		return uuid.Nil, &ValidationError{Field: "request", Err: errors.New("request is nil")}
	}

	ctx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	if r.job != nil {
		r.mu.Unlock()
		cancel()
		return uuid.Nil, ErrBusy
	}
	job := newJob(*req, cancel)
	r.job = job
	r.mu.Unlock()

	r.logger.Debug("job submitted",
		"job_id", job.id.String(),
		"kind", string(req.Kind),
		"prompt_length", len(req.Prompt),
	)

	go r.run(ctx, job)
	return job.id, nil
}

// Cancel requests cooperative cancellation of the running job. It is a
// no-op when the runner is idle. The worker observes the stop flag at
// defined checkpoints; a result produced after cancellation was requested
// is discarded rather than delivered.
func (r *Runner) Cancel() {
	r.mu.Lock()
	job := r.job
	r.mu.Unlock()

	if job == nil {
		return
	}
	job.stop.Store(true)
	job.cancel()
	r.logger.Debug("cancellation requested", "job_id", job.id.String())
}

func (r *Runner) run(ctx context.Context, job *Job) {
	defer job.cancel()

	// Checkpoint before touching the engine.
	if job.stop.Load() {
		r.finish(job, JobCancelled, nil, nil)
		return
	}

	r.emitStarted(job)

	result, err := r.generator.Generate(ctx, &job.request, func(fraction float64) {
		r.reportProgress(job, fraction)
	})

	// Checkpoint after the engine returns: a cancellation that raced the
	// call wins, and the result (or error) is discarded.
	switch {
	case job.stop.Load():
		r.finish(job, JobCancelled, nil, nil)
	case err != nil:
		r.finish(job, JobFailed, nil, err)
	default:
		r.finish(job, JobCompleted, result, nil)
	}
}

// reportProgress clamps the update into [0.0, 1.0], enforces monotonic
// non-decrease (lower values are silently ignored) and forwards it to the
// event stream. Updates arriving after cancellation or a terminal state
// are dropped.
func (r *Runner) reportProgress(job *Job, fraction float64) {
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}

	job.mu.Lock()
	defer job.mu.Unlock()

	if job.state != JobRunning || job.stop.Load() || fraction < job.progress {
		return
	}
	job.progress = fraction

	// Emitted under the job lock so per-job ordering matches the order
	// progress was recorded.
	r.events <- Event{JobID: job.id, Type: EventProgress, Progress: fraction}
}

func (r *Runner) emitStarted(job *Job) {
	job.mu.Lock()
	defer job.mu.Unlock()
	if job.state != JobRunning {
		return
	}
	r.events <- Event{JobID: job.id, Type: EventStarted}
}

// finish applies the terminal transition atomically and emits the terminal
// event. The transition happens at most once per job.
func (r *Runner) finish(job *Job, state JobState, result *Result, err error) {
	job.mu.Lock()
	if job.state != JobRunning {
		job.mu.Unlock()
		return
	}
	job.state = state
	switch state {
	case JobCompleted:
		job.result = result
		job.progress = 1.0
	case JobFailed:
		// Progress stays at its last reported value.
		job.err = err
	}
	event := Event{
		JobID:    job.id,
		Type:     eventTypeFor(state),
		Progress: job.progress,
		Result:   job.result,
		Err:      job.err,
	}

	// Still under the job lock, so no progress event can slip in after
	// the terminal event.
	r.events <- event

	// The runner frees up only after the terminal event is enqueued, so a
	// racing Submit cannot push its first event ahead of it. No separate
	// reset is required.
	r.mu.Lock()
	if r.job == job {
		r.job = nil
	}
	r.mu.Unlock()
	job.mu.Unlock()

	r.logger.Info("job finished",
		"job_id", job.id.String(),
		"state", state.String(),
		"progress", event.Progress,
	)
}
