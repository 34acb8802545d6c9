package genstudio

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v10"

	"github.com/mhpenta/genstudio/ratelimit"
)

// DefaultCacheDir is the default directory for downloaded model weights,
// relative to the working directory.
const DefaultCacheDir = "hf_models"

// Config holds environment-backed settings for the studios and the bundled
// engine backends.
type Config struct {
	// Device is the compute device ("cuda" or "cpu"). Empty means
	// auto-detect at session creation.
	Device string `env:"GENSTUDIO_DEVICE"`

	// CacheDir is the directory for downloaded model weights.
	CacheDir string `env:"GENSTUDIO_CACHE_DIR" envDefault:"hf_models"`

	// TextBaseURL points at a local OpenAI-compatible completion server
	// (llama.cpp, Ollama, vLLM).
	TextBaseURL string `env:"GENSTUDIO_TEXT_BASE_URL" envDefault:"http://localhost:11434/v1"`
	TextAPIKey  string `env:"GENSTUDIO_TEXT_API_KEY"`

	// ImageBaseURL points at a local Stable Diffusion WebUI instance.
	ImageBaseURL string `env:"GENSTUDIO_IMAGE_BASE_URL" envDefault:"http://localhost:7860"`

	// GeminiAPIKey enables the remote Gemini image backend.
	GeminiAPIKey string `env:"GEMINI_API_KEY"`

	// Rate limiting for metered backends. Zero disables limiting.
	TokensPerMinute   int `env:"GENSTUDIO_TOKENS_PER_MINUTE" envDefault:"0"`
	RequestsPerMinute int `env:"GENSTUDIO_REQUESTS_PER_MINUTE" envDefault:"0"`

	LogLevel string `env:"GENSTUDIO_LOG_LEVEL" envDefault:"info"`
}

// LoadConfig reads configuration from the environment. An unset device is
// resolved by probing for an accelerator.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.Device == "" {
		cfg.Device = DetectDevice()
	}
	return cfg, nil
}

// Logger returns a stderr text logger at the configured level. Unknown
// level names fall back to info.
func (c *Config) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: c.slogLevel(),
	}))
}

func (c *Config) slogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// StudioOptions translates the config into studio options: logging at the
// configured level, the session's device and cache directory, and rate
// limiting when a per-minute budget is set. Callers append their own
// handlers, storage and catalog options.
func (c *Config) StudioOptions() []StudioOption {
	sessionOpts := []SessionOption{WithDevice(c.Device)}
	if c.CacheDir != "" {
		sessionOpts = append(sessionOpts, WithCacheDir(c.CacheDir))
	}
	opts := []StudioOption{
		WithLogger(c.Logger()),
		WithSessionOptions(sessionOpts...),
	}
	if c.TokensPerMinute > 0 || c.RequestsPerMinute > 0 {
		opts = append(opts, WithRateLimiter(ratelimit.New(c.TokensPerMinute, c.RequestsPerMinute)))
	}
	return opts
}

// DetectDevice probes for an NVIDIA accelerator and returns "cuda" when
// one is visible, "cpu" otherwise. Called once at session creation.
func DetectDevice() string {
	if _, err := os.Stat("/proc/driver/nvidia/version"); err == nil {
		return "cuda"
	}
	if _, err := os.Stat("/dev/nvidia0"); err == nil {
		return "cuda"
	}
	return "cpu"
}
