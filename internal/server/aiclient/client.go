// Package aiclient is the outbound HTTP layer for the AI upstreams. All
// upstreams (text generation, image generation, sentiment analysis) are
// reached through one capability interface; each configured instance carries
// its own base address, credential decoration, and timeout.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Caller posts a JSON payload to a path under the upstream's base URL and
// decodes the JSON response into out. A non-2xx status yields a *StatusError.
type Caller interface {
	Post(ctx context.Context, path string, in, out any) error
}

// StatusError reports a non-2xx upstream response. The body is truncated;
// it is for logs, not for clients.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned HTTP %d: %s", e.Status, e.Body)
}

// AuthStyle selects how the API key is attached to a request.
type AuthStyle int

const (
	// AuthBearer sends "Authorization: Bearer <key>".
	AuthBearer AuthStyle = iota
	// AuthQueryKey appends "?key=<key>" to the request URL.
	AuthQueryKey
)

// HTTPCaller implements Caller over net/http with a fixed per-call timeout.
type HTTPCaller struct {
	baseURL   string
	apiKey    string
	authStyle AuthStyle
	client    *http.Client
}

// NewHTTPCaller builds a caller for one upstream. timeout bounds the whole
// call including body read; after it the call fails instead of hanging.
func NewHTTPCaller(baseURL, apiKey string, style AuthStyle, timeout time.Duration) *HTTPCaller {
	return &HTTPCaller{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		authStyle: style,
		client:    &http.Client{Timeout: timeout},
	}
}

const maxErrorBody = 2048

func (c *HTTPCaller) Post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	endpoint := c.baseURL + path
	if c.authStyle == AuthQueryKey {
		endpoint += "?key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authStyle == AuthBearer {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling upstream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Status: resp.StatusCode, Body: string(b)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
