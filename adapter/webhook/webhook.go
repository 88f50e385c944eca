// Package webhook publishes sync completion events as JSON POST
// requests, for hooking a sync into chat notifications or deploy
// pipelines. Server errors and network failures retry with backoff;
// client errors fail immediately.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pithecene-io/macadam/adapter"
	"github.com/pithecene-io/macadam/iox"
)

// DefaultTimeout bounds a single request round trip.
const DefaultTimeout = 10 * time.Second

// DefaultRetries is the retry count used when none is configured.
const DefaultRetries = 3

// Config configures the webhook adapter.
type Config struct {
	// URL is the HTTP endpoint to POST to (required).
	URL string
	// Headers are custom HTTP headers added to each request.
	Headers map[string]string
	// Timeout is the per-request timeout (default 10s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure (default 3).
	Retries int
}

// Adapter publishes events via HTTP POST.
type Adapter struct {
	url     string
	headers map[string]string
	retries int
	client  *http.Client
}

// New builds a webhook adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook adapter requires a URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &Adapter{
		url:     cfg.URL,
		headers: cfg.Headers,
		retries: cfg.Retries,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// StatusError is returned for non-2xx HTTP responses. The code lets
// callers tell retriable 5xx responses from permanent 4xx ones.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// isClientError reports whether err is a 4xx response, which no number
// of retries will fix.
func isClientError(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500
}

// Publish POSTs the event as JSON, retrying 5xx responses and network
// errors with backoff.
func (a *Adapter) Publish(ctx context.Context, event *adapter.SyncCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	err = adapter.Retry(ctx, 1+a.retries, isClientError, func(ctx context.Context) error {
		return a.post(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

// post performs one POST and returns nil on 2xx.
func (a *Adapter) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Close releases idle connections.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
