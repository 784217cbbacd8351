package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiOptions configures the Gemini API backend.
type GeminiOptions struct {
	APIKey string
	// BaseURL overrides the API host; empty uses the public endpoint.
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// GeminiGenerator calls Models.GenerateContent on the Gemini API.
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	config  *genai.GenerateContentConfig
	timeout time.Duration
	logger  *slog.Logger
}

// NewGeminiGenerator creates a Gemini API client.
func NewGeminiGenerator(ctx context.Context, opts GeminiOptions, logger *slog.Logger) (*GeminiGenerator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(opts.BaseURL, "/") + "/"}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("ai: create gemini client: %w", err)
	}

	gc := &genai.GenerateContentConfig{}
	if opts.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.Temperature > 0 {
		gc.Temperature = genai.Ptr(float32(opts.Temperature))
	}

	return &GeminiGenerator{
		client:  client,
		model:   opts.Model,
		config:  gc,
		timeout: opts.Timeout,
		logger:  logger,
	}, nil
}

// Provider implements Generator.
func (g *GeminiGenerator) Provider() string { return providerGemini }

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		g.logger.ErrorContext(ctx, "completion request failed",
			slog.String("provider", providerGemini),
			slog.String("model", g.model),
			slog.String("error", err.Error()),
		)
		var apiErr genai.APIError
		if asAPIError(err, &apiErr) {
			return "", &UpstreamError{Provider: providerGemini, StatusCode: apiErr.Code, Body: apiErr.Message}
		}
		return "", fmt.Errorf("ai: gemini request failed: %w", err)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// asAPIError matches both value and pointer forms of genai.APIError.
func asAPIError(err error, target *genai.APIError) bool {
	if errors.As(err, target) {
		return true
	}
	var p *genai.APIError
	if errors.As(err, &p) && p != nil {
		*target = *p
		return true
	}
	return false
}
