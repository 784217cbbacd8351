package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAI(t *testing.T, srv *httptest.Server, mutate func(*OpenAIOptions)) *OpenAIGenerator {
	t.Helper()
	opts := OpenAIOptions{
		Endpoint:   srv.URL + "/openai/deployments/bio/chat/completions",
		APIKey:     "k-123",
		APIVersion: "2024-10-21",
		Model:      "gpt-4o",
		MaxTokens:  40000,
		Timeout:    5 * time.Second,
	}
	if mutate != nil {
		mutate(&opts)
	}
	g, err := NewOpenAIGenerator(opts, nil)
	require.NoError(t, err)
	return g
}

func TestOpenAIGenerator_AzureRequestShape(t *testing.T) {
	var got struct {
		path, query, apiKey, auth string
		body                      map[string]any
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.query = r.URL.Query().Get("api-version")
		got.apiKey = r.Header.Get("api-key")
		got.auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got.body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"A life well lived."}}]}`))
	}))
	defer srv.Close()

	text, err := newOpenAI(t, srv, nil).Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "A life well lived.", text)

	assert.Equal(t, "/openai/deployments/bio/chat/completions", got.path)
	assert.Equal(t, "2024-10-21", got.query)
	assert.Equal(t, "k-123", got.apiKey)
	assert.Empty(t, got.auth)
	assert.Equal(t, float64(40000), got.body["max_completion_tokens"])
	assert.Equal(t, "gpt-4o", got.body["model"])
	assert.NotContains(t, got.body, "temperature")

	msgs, ok := got.body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.Equal(t, map[string]any{"role": "user", "content": "hello"}, msgs[0])
}

func TestOpenAIGenerator_BearerWithoutAPIVersion(t *testing.T) {
	var auth, apiKey, query string
	var temperature any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		apiKey = r.Header.Get("api-key")
		query = r.URL.RawQuery
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		temperature = body["temperature"]
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	g := newOpenAI(t, srv, func(o *OpenAIOptions) {
		o.APIVersion = ""
		o.Temperature = 0.7
	})
	_, err := g.Generate(context.Background(), "hi")
	require.NoError(t, err)

	assert.Equal(t, "Bearer k-123", auth)
	assert.Empty(t, apiKey)
	assert.Empty(t, query)
	assert.Equal(t, 0.7, temperature)
}

func TestOpenAIGenerator_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota"}}`))
	}))
	defer srv.Close()

	_, err := newOpenAI(t, srv, nil).Generate(context.Background(), "hi")
	require.Error(t, err)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusTooManyRequests, ue.StatusCode)
	assert.Contains(t, ue.Body, "quota")
	assert.Equal(t, "openai error: 429 Too Many Requests", ue.Error())
	assert.True(t, IsUpstream(err))
}

func TestOpenAIGenerator_EmptyCompletion(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no choices", `{"choices":[]}`},
		{"empty content", `{"choices":[{"message":{"role":"assistant","content":""}}]}`},
		{"blank content", `{"choices":[{"message":{"role":"assistant","content":"  \n "}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newOpenAI(t, srv, nil).Generate(context.Background(), "hi")
			require.ErrorIs(t, err, ErrEmptyCompletion)
			assert.True(t, IsUpstream(err))
		})
	}
}

func TestOpenAIGenerator_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := newOpenAI(t, srv, nil).Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.False(t, IsUpstream(err))
}

func TestOpenAIGenerator_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newOpenAI(t, srv, nil).Generate(ctx, "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewOpenAIGenerator_InvalidEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "ftp://x", "not a url", "http://"} {
		_, err := NewOpenAIGenerator(OpenAIOptions{Endpoint: endpoint}, nil)
		assert.Error(t, err, "endpoint %q", endpoint)
	}
}
