// Package client is a Go client for the memorial registry HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds each request when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// RequestIDHeader tags every request. A server that trusts it logs the same
// ID; otherwise it answers with its own, which Error.RequestID reports.
const RequestIDHeader = "X-Request-ID"

// Options configures a Client.
type Options struct {
	// BaseURL is the server root, e.g. http://localhost:8080.
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Client talks to the registry API. It holds no per-user state and is safe
// for concurrent use; credentials are passed explicitly to the calls that
// need them.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *slog.Logger
}

// New validates opts and returns a Client.
func New(opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("client: invalid base URL %q", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{baseURL: u, http: hc, logger: logger}, nil
}

// BaseURL returns the server root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// do sends a JSON request to path and decodes a 2xx body into out, when out
// is non-nil. Non-2xx responses become an *Error built from the body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, cred *Credential, in, out any) error {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return &Error{Kind: KindDecode, Method: method, Path: path, Message: "encode request body", Err: err}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return &Error{Kind: KindTransport, Method: method, Path: path, Message: "build request", Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred != nil && cred.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cred.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "api request failed",
			"method", method,
			"path", path,
			"request_id", requestID,
			"latency", time.Since(start),
			"error", err,
		)
		return &Error{Kind: KindTransport, Method: method, Path: path, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if echoed := resp.Header.Get(RequestIDHeader); echoed != "" {
		requestID = echoed
	}
	c.logger.DebugContext(ctx, "api request",
		"method", method,
		"path", path,
		"request_id", requestID,
		"status", resp.StatusCode,
		"latency", time.Since(start),
	)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Method: method, Path: path, StatusCode: resp.StatusCode, Message: "read response body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := newStatusError(method, path, resp.StatusCode, raw)
		e.RequestID = requestID
		return e
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindDecode, Method: method, Path: path, StatusCode: resp.StatusCode, Message: "decode response body", Err: err}
	}
	return nil
}

// errorBody covers every error shape the server produces: the standard
// envelope, the validation envelope and the biography response.
type errorBody struct {
	Message      string            `json:"message"`
	Errors       map[string]string `json:"errors"`
	ErrorMessage string            `json:"errorMessage"`
}

func newStatusError(method, path string, status int, raw []byte) *Error {
	e := &Error{
		Kind:       kindForStatus(status),
		Method:     method,
		Path:       path,
		StatusCode: status,
	}

	raw = bytes.TrimSpace(raw)
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		e.Message = body.Message
		if body.ErrorMessage != "" {
			e.Message = body.ErrorMessage
		}
		e.FieldErrors = body.Errors
	} else if len(raw) > 0 {
		e.Message = string(raw)
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
