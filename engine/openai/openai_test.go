package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mhpenta/genstudio"
)

func newBackend(t *testing.T, chunks []string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[{"id":"test-model","object":"model"}]}`)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if stream, _ := req["stream"].(bool); !stream {
			http.Error(w, "expected streaming request", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range chunks {
			payload := fmt.Sprintf(
				`{"id":"cmpl-1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":%q}}]}`,
				chunk)
			fmt.Fprintf(w, "data: %s\n\n", payload)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestAcquire_ProbesBackend(t *testing.T) {
	server := newBackend(t, nil)
	factory := NewFactory(server.URL+"/v1", "test-key")

	engine, err := factory.Acquire(context.Background(), "test-model", genstudio.AcquireConfig{})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer engine.Close()
}

func TestAcquire_DeadBackendFailsLoad(t *testing.T) {
	server := newBackend(t, nil)
	server.Close()
	factory := NewFactory(server.URL+"/v1", "test-key")

	if _, err := factory.Acquire(context.Background(), "test-model", genstudio.AcquireConfig{}); err == nil {
		t.Fatal("expected acquire against a dead backend to fail")
	}
}

func TestGenerate_StreamsTextAndProgress(t *testing.T) {
	server := newBackend(t, []string{"Once ", "upon ", "a ", "time."})
	factory := NewFactory(server.URL+"/v1", "test-key")

	engine, err := factory.Acquire(context.Background(), "test-model", genstudio.AcquireConfig{})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer engine.Close()

	req := genstudio.NewTextRequest("tell me a story")
	req.MaxLength = 100

	var fractions []float64
	result, err := engine.Generate(context.Background(), req, func(f float64) {
		fractions = append(fractions, f)
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if result.Text != "Once upon a time." {
		t.Errorf("unexpected text: %q", result.Text)
	}
	if result.Usage == nil || result.Usage.CompletionTokens != 4 {
		t.Errorf("expected 4 completion tokens, got %+v", result.Usage)
	}

	if len(fractions) == 0 {
		t.Fatal("expected progress reports")
	}
	if fractions[len(fractions)-1] != 1.0 {
		t.Errorf("final progress must be 1.0, got %v", fractions)
	}
	for i := 1; i < len(fractions); i++ {
		if fractions[i] < fractions[i-1] {
			t.Errorf("progress went backwards: %v", fractions)
		}
	}
}

func TestGenerate_CancelledContext(t *testing.T) {
	server := newBackend(t, []string{strings.Repeat("x", 10)})
	factory := NewFactory(server.URL+"/v1", "test-key")

	engine, err := factory.Acquire(context.Background(), "test-model", genstudio.AcquireConfig{})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Generate(ctx, genstudio.NewTextRequest("hi"), nil); err == nil {
		t.Fatal("expected error with a cancelled context")
	}
}
