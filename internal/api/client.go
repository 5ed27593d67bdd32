// Package api is the JSON-over-HTTP client for the catalog backend. Every console
// feature reaches the backend through Client.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"appcatalog/internal/logging"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

const (
	// RequestIDHeader carries a per-request correlation id.
	RequestIDHeader = "X-Request-ID"

	maxErrorBody    = 64 << 10
	maxResponseBody = 8 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int           // retries for GET on 502/503/504
	RetryDelay time.Duration // base backoff, multiplied by the attempt number
	HTTPClient *http.Client  // optional; a cookie-aware client is built when nil
}

// Client talks to the catalog REST backend.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
	maxRetries int
	retryDelay time.Duration
}

// New creates a client for the backend at opts.BaseURL.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("base URL required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host required", opts.BaseURL)
	}
	if base.Path == "" {
		base.Path = "/"
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		// The backend keeps its SSO session in a cookie.
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		httpClient = &http.Client{Timeout: timeout, Jar: jar}
	}

	retryDelay := opts.RetryDelay
	if retryDelay == 0 {
		retryDelay = 200 * time.Millisecond
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		token:      opts.Token,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}, nil
}

// BaseURL returns the configured backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Do performs one JSON request. body (if non-nil) is marshalled as the request
// body; out (if non-nil) receives the decoded response. Non-2xx responses return *Error.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	reqURL := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		reqURL.RawQuery = query.Encode()
	}

	requestID := uuid.NewString()
	timer := logging.StartTimer(logging.CategoryAPI, method+" "+path)
	defer timer.StopWithThreshold(5 * time.Second)

	for attempt := 0; ; attempt++ {
		resp, err := c.send(ctx, method, reqURL.String(), payload, requestID)
		if err != nil {
			logging.APIWarn("%s %s failed: %v (req=%s)", method, path, err, requestID)
			return fmt.Errorf("%s %s: %w", method, path, err)
		}

		if c.shouldRetry(method, resp.StatusCode, attempt) {
			drain(resp)
			logging.APIDebug("%s %s returned %d, retrying (attempt %d, req=%s)", method, path, resp.StatusCode, attempt+1, requestID)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s %s: %w", method, path, ctx.Err())
			case <-time.After(c.retryDelay * time.Duration(attempt+1)):
			}
			continue
		}

		return c.decode(resp, method, path, requestID, out)
	}
}

func (c *Client) send(ctx context.Context, method, rawURL string, payload []byte, requestID string) (*http.Response, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set(RequestIDHeader, requestID)

	return c.httpClient.Do(req)
}

func (c *Client) shouldRetry(method string, status, attempt int) bool {
	if method != http.MethodGet || attempt >= c.maxRetries {
		return false
	}
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (c *Client) decode(resp *http.Response, method, path, requestID string, out interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &Error{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Message:    errorMessage(resp.StatusCode, body),
			RequestID:  requestID,
		}
		logging.APIWarn("%v (req=%s)", apiErr, requestID)
		return apiErr
	}

	logging.APIDebug("%s %s -> %d (req=%s)", method, path, resp.StatusCode, requestID)

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		return fmt.Errorf("%s %s: read response body: %w", method, path, err)
	}
	if len(data) > maxResponseBody {
		return fmt.Errorf("%s %s: response body exceeds %d bytes", method, path, maxResponseBody)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}

// listEnvelope accepts both a bare JSON array and the {"data": [...]} /
// {"items": [...]} envelopes some backend endpoints use.
type listEnvelope[T any] struct {
	items []T
}

func (l *listEnvelope[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		l.items = nil
		return nil
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &l.items)
	}
	var env struct {
		Data  []T `json:"data"`
		Items []T `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return err
	}
	if env.Data != nil {
		l.items = env.Data
	} else {
		l.items = env.Items
	}
	return nil
}

func getList[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	var env listEnvelope[T]
	if err := c.Do(ctx, http.MethodGet, path, query, nil, &env); err != nil {
		return nil, err
	}
	if env.items == nil {
		return []T{}, nil
	}
	return env.items, nil
}
