package genstudio

import (
	"context"
	"errors"
	"testing"
	"time"
)

// MockEngine is a mock implementation of Engine.
type MockEngine struct {
	GenerateFunc func(ctx context.Context, req *Request, onProgress ProgressFunc) (*Result, error)
	CloseFunc    func() error
	Closed       bool
}

func (m *MockEngine) Generate(ctx context.Context, req *Request, onProgress ProgressFunc) (*Result, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req, onProgress)
	}
	return &Result{Text: "generated"}, nil
}

func (m *MockEngine) Close() error {
	m.Closed = true
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// MockFactory is a mock implementation of EngineFactory.
type MockFactory struct {
	AcquireFunc func(ctx context.Context, modelID string, cfg AcquireConfig) (Engine, error)
	Acquired    []string
}

func (m *MockFactory) Acquire(ctx context.Context, modelID string, cfg AcquireConfig) (Engine, error) {
	m.Acquired = append(m.Acquired, modelID)
	if m.AcquireFunc != nil {
		return m.AcquireFunc(ctx, modelID, cfg)
	}
	return &MockEngine{}, nil
}

// MockGenerator is a mock implementation of Generator for runner tests.
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, req *Request, onProgress ProgressFunc) (*Result, error)
}

func (m *MockGenerator) Generate(ctx context.Context, req *Request, onProgress ProgressFunc) (*Result, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req, onProgress)
	}
	return &Result{Text: "generated"}, nil
}

var errEngineBoom = errors.New("engine exploded")

// collectEvents drains events until a terminal event arrives or the
// timeout expires. The terminal event, if any, is the last element.
func collectEvents(t *testing.T, events <-chan Event, timeout time.Duration) []Event {
	t.Helper()

	var collected []Event
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-events:
			collected = append(collected, ev)
			if ev.Terminal() {
				return collected
			}
		case <-deadline:
			t.Fatalf("timed out waiting for terminal event, got %d events", len(collected))
			return collected
		}
	}
}

// assertNoMoreEvents verifies that no further events arrive within the
// grace period.
func assertNoMoreEvents(t *testing.T, events <-chan Event, grace time.Duration) {
	t.Helper()

	select {
	case ev := <-events:
		t.Fatalf("unexpected event after terminal: type=%d progress=%v", ev.Type, ev.Progress)
	case <-time.After(grace):
	}
}
