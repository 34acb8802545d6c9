package genstudio

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// JobState is the lifecycle state of one generation attempt.
type JobState int

const (
	JobRunning JobState = iota
	JobCompleted
	JobFailed
	JobCancelled
)

func (s JobState) String() string {
	switch s {
	case JobRunning:
		return "running"
	case JobCompleted:
		return "completed"
	case JobFailed:
		return "failed"
	case JobCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is a terminal state.
func (s JobState) Terminal() bool {
	return s != JobRunning
}

// Job is one in-flight or completed generation attempt. Jobs are created
// and exclusively owned by the Runner; callers hold only the ID.
type Job struct {
	id      uuid.UUID
	request Request // private copy, never mutated after submission

	stop   *atomic.Bool // cooperative stop flag, inspected at checkpoints
	cancel context.CancelFunc

	mu       sync.Mutex
	state    JobState
	progress float64
	result   *Result
	err      error
}

func newJob(req Request, cancel context.CancelFunc) *Job {
	return &Job{
		id:      uuid.New(),
		request: req,
		stop:    atomic.NewBool(false),
		cancel:  cancel,
		state:   JobRunning,
	}
}

// ID returns the job's unique identifier.
func (j *Job) ID() uuid.UUID {
	return j.id
}

// State returns the job's current state.
func (j *Job) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Progress returns the last recorded progress fraction.
func (j *Job) Progress() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

// Result returns the job's output; non-nil only when the state is
// JobCompleted.
func (j *Job) Result() *Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Err returns the job's failure; non-nil only when the state is JobFailed.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// EventType classifies a runner event.
type EventType int

const (
	// EventStarted is emitted once when the worker begins executing.
	EventStarted EventType = iota

	// EventProgress carries a progress fraction in [0.0, 1.0].
	EventProgress

	// EventCompleted, EventFailed and EventCancelled are terminal. Exactly
	// one terminal event is emitted per job, after all progress events.
	EventCompleted
	EventFailed
	EventCancelled
)

// Event is one notification on the runner's ordered event stream.
type Event struct {
	JobID    uuid.UUID
	Type     EventType
	Progress float64
	Result   *Result // set on EventCompleted
	Err      error   // set on EventFailed
}

// Terminal reports whether the event closes out its job.
func (e Event) Terminal() bool {
	switch e.Type {
	case EventCompleted, EventFailed, EventCancelled:
		return true
	default:
		return false
	}
}

func eventTypeFor(state JobState) EventType {
	switch state {
	case JobCompleted:
		return EventCompleted
	case JobFailed:
		return EventFailed
	default:
		return EventCancelled
	}
}
