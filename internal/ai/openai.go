package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// OpenAIOptions configures an OpenAI-compatible chat completions endpoint.
// With APIVersion set the endpoint is treated as Azure OpenAI: the version
// goes into the query string and the key into the api-key header.
type OpenAIOptions struct {
	Endpoint    string
	APIKey      string
	APIVersion  string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// OpenAIGenerator calls a chat completions endpoint over HTTP.
type OpenAIGenerator struct {
	url    string
	opts   OpenAIOptions
	client *http.Client
	logger *slog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages            []chatMessage `json:"messages"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
	Model               string        `json:"model,omitempty"`
	Temperature         *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewOpenAIGenerator validates opts and returns a generator.
func NewOpenAIGenerator(opts OpenAIOptions, logger *slog.Logger) (*OpenAIGenerator, error) {
	u, err := url.Parse(opts.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("ai: invalid endpoint %q", opts.Endpoint)
	}
	if opts.APIVersion != "" {
		q := u.Query()
		q.Set("api-version", opts.APIVersion)
		u.RawQuery = q.Encode()
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &OpenAIGenerator{
		url:    u.String(),
		opts:   opts,
		client: client,
		logger: logger,
	}, nil
}

// Provider implements Generator.
func (g *OpenAIGenerator) Provider() string { return providerOpenAI }

// Generate implements Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	payload := chatRequest{
		Messages:            []chatMessage{{Role: "user", Content: prompt}},
		MaxCompletionTokens: g.opts.MaxTokens,
		Model:               g.opts.Model,
	}
	if g.opts.Temperature > 0 {
		t := g.opts.Temperature
		payload.Temperature = &t
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("ai: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.opts.APIKey != "" {
		if g.opts.APIVersion != "" {
			req.Header.Set("api-key", g.opts.APIKey)
		} else {
			req.Header.Set("Authorization", "Bearer "+g.opts.APIKey)
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("ai: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.ErrorContext(ctx, "completion request failed",
			slog.String("provider", providerOpenAI),
			slog.Int("status", resp.StatusCode),
			slog.String("body", truncate(string(raw), maxLoggedBodySize)),
		)
		return "", &UpstreamError{Provider: providerOpenAI, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("ai: decode response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}

func statusText(code int) string {
	if t := http.StatusText(code); t != "" {
		return t
	}
	return "unknown status"
}

// IsUpstream reports whether err came from the provider rather than from
// local encoding or configuration.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) || errors.Is(err, ErrEmptyCompletion)
}
