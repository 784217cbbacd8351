// Package ai turns a biography prompt into generated text through an
// external language model.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/simp-lee/memorial/internal/config"
)

// Generator produces a completion for a single user prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// Provider names the backend for logs and metrics.
	Provider() string
}

// ErrEmptyCompletion is returned when the provider answered without text.
var ErrEmptyCompletion = errors.New("ai: provider returned no content")

// UpstreamError reports a non-2xx answer from the provider.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s error: %d %s", e.Provider, e.StatusCode, statusText(e.StatusCode))
}

// API key environment fallbacks used when ai.api_key is empty.
const (
	EnvOpenAIKey    = "AZURE_OPENAI_API_KEY"
	EnvOpenAIKeyAlt = "OPENAI_API_KEY"
	EnvGeminiKey    = "GOOGLE_GEMINI_API_KEY"
)

const (
	defaultAITimeout  = 60 * time.Second
	providerOpenAI    = "openai"
	providerGemini    = "gemini"
	maxLoggedBodySize = 2048
)

// New builds the Generator selected by cfg.Provider. It returns a nil
// Generator and no error when generation is disabled.
func New(ctx context.Context, cfg *config.AIConfig, logger *slog.Logger) (Generator, error) {
	if cfg == nil || cfg.Provider == "" {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	timeout := config.Duration(cfg.Timeout)
	if timeout <= 0 {
		timeout = defaultAITimeout
	}

	switch cfg.Provider {
	case providerOpenAI:
		key := firstNonEmpty(cfg.APIKey, os.Getenv(EnvOpenAIKey), os.Getenv(EnvOpenAIKeyAlt))
		if key == "" {
			logger.Warn("ai api key is empty; requests to the completion endpoint are unauthenticated",
				slog.String("provider", providerOpenAI))
		}
		return NewOpenAIGenerator(OpenAIOptions{
			Endpoint:    cfg.Endpoint,
			APIKey:      key,
			APIVersion:  cfg.APIVersion,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     timeout,
		}, logger)
	case providerGemini:
		key := firstNonEmpty(cfg.APIKey, os.Getenv(EnvGeminiKey))
		if key == "" {
			return nil, fmt.Errorf("ai: gemini requires ai.api_key or %s", EnvGeminiKey)
		}
		return NewGeminiGenerator(ctx, GeminiOptions{
			APIKey:      key,
			BaseURL:     cfg.Endpoint,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("ai: unknown provider %q", cfg.Provider)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
