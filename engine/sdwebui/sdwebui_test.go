package sdwebui

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mhpenta/genstudio"
)

// fakeWebUI mimics the AUTOMATIC1111 API surface the engine touches.
type fakeWebUI struct {
	mu          sync.Mutex
	checkpoint  string
	txt2imgReqs []txt2imgRequest
	imageData   []byte
	progress    float64
	failOptions bool
	failTxt2img bool
}

func (f *fakeWebUI) server(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/sdapi/v1/options", func(w http.ResponseWriter, r *http.Request) {
		if f.failOptions {
			http.Error(w, "checkpoint not found", http.StatusNotFound)
			return
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.checkpoint = body["sd_model_checkpoint"]
		f.mu.Unlock()
		fmt.Fprint(w, "{}")
	})
	mux.HandleFunc("/sdapi/v1/txt2img", func(w http.ResponseWriter, r *http.Request) {
		if f.failTxt2img {
			http.Error(w, "out of memory", http.StatusInternalServerError)
			return
		}
		var req txt2imgRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.txt2imgReqs = append(f.txt2imgReqs, req)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(txt2imgResponse{
			Images: []string{base64.StdEncoding.EncodeToString(f.imageData)},
		})
	})
	mux.HandleFunc("/sdapi/v1/progress", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		p := f.progress
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(progressResponse{Progress: p})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestAcquire_SelectsCheckpoint(t *testing.T) {
	webui := &fakeWebUI{}
	server := webui.server(t)
	factory := NewFactory(server.URL)

	engine, err := factory.Acquire(context.Background(), "sd-v1-4.ckpt", genstudio.AcquireConfig{})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer engine.Close()

	if webui.checkpoint != "sd-v1-4.ckpt" {
		t.Errorf("expected checkpoint selected on the server, got %q", webui.checkpoint)
	}
}

func TestAcquire_FailsOnErrorStatus(t *testing.T) {
	webui := &fakeWebUI{failOptions: true}
	server := webui.server(t)
	factory := NewFactory(server.URL)

	if _, err := factory.Acquire(context.Background(), "missing.ckpt", genstudio.AcquireConfig{}); err == nil {
		t.Fatal("expected acquire to fail when the checkpoint cannot be selected")
	}
}

func TestGenerate_DecodesImage(t *testing.T) {
	pngStub := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	webui := &fakeWebUI{imageData: pngStub}
	server := webui.server(t)
	factory := NewFactory(server.URL)

	engine, err := factory.Acquire(context.Background(), "sd-v1-4.ckpt", genstudio.AcquireConfig{})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer engine.Close()

	req := genstudio.NewImageRequest("a castle at dawn")
	req.NegativePrompt = "blurry"

	var final float64
	result, err := engine.Generate(context.Background(), req, func(f float64) { final = f })
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if result.Image == nil {
		t.Fatal("expected an image result")
	}
	if string(result.Image.Data) != string(pngStub) {
		t.Error("decoded image bytes do not match the backend payload")
	}
	if result.Image.MIMEType != "image/png" {
		t.Errorf("expected image/png, got %q", result.Image.MIMEType)
	}
	if result.Image.Width != req.Width || result.Image.Height != req.Height {
		t.Errorf("expected %dx%d, got %dx%d", req.Width, req.Height, result.Image.Width, result.Image.Height)
	}
	if final != 1.0 {
		t.Errorf("expected final progress 1.0, got %v", final)
	}

	if len(webui.txt2imgReqs) != 1 {
		t.Fatalf("expected one txt2img call, got %d", len(webui.txt2imgReqs))
	}
	sent := webui.txt2imgReqs[0]
	if sent.Prompt != req.Prompt || sent.NegativePrompt != "blurry" {
		t.Errorf("prompt fields not forwarded: %+v", sent)
	}
	if sent.Steps != req.Steps || sent.CfgScale != req.GuidanceScale {
		t.Errorf("sampling parameters not forwarded: %+v", sent)
	}
}

func TestGenerate_PollsProgress(t *testing.T) {
	webui := &fakeWebUI{imageData: []byte{1}, progress: 0.42}
	server := webui.server(t)
	factory := &Factory{BaseURL: server.URL, PollInterval: 5 * time.Millisecond}

	engine, err := factory.Acquire(context.Background(), "sd-v1-4.ckpt", genstudio.AcquireConfig{})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer engine.Close()

	var mu sync.Mutex
	var fractions []float64
	_, err = engine.Generate(context.Background(), genstudio.NewImageRequest("a castle"), func(f float64) {
		mu.Lock()
		fractions = append(fractions, f)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(fractions) == 0 || fractions[len(fractions)-1] != 1.0 {
		t.Errorf("expected final progress 1.0, got %v", fractions)
	}
}

func TestGenerate_BackendError(t *testing.T) {
	webui := &fakeWebUI{failTxt2img: true}
	server := webui.server(t)
	factory := NewFactory(server.URL)

	engine, err := factory.Acquire(context.Background(), "sd-v1-4.ckpt", genstudio.AcquireConfig{})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer engine.Close()

	if _, err := engine.Generate(context.Background(), genstudio.NewImageRequest("a castle"), nil); err == nil {
		t.Fatal("expected error for a failing backend")
	}
}
