// Package redis publishes sync completion events to a Redis pub/sub
// channel, so other tooling (CI dashboards, build bots) can react to a
// finished sync without polling the lockfile.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/macadam/adapter"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "macadam:sync_completed"

// DefaultTimeout bounds a single PUBLISH round trip.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the retry count used when none is configured.
const DefaultRetries = 3

// Config configures the Redis pub/sub adapter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: macadam:sync_completed).
	Channel string
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure (default 3).
	Retries int
}

// Adapter publishes events via Redis PUBLISH.
type Adapter struct {
	channel string
	timeout time.Duration
	retries int
	client  *goredis.Client
}

// New builds a Redis adapter. The URL must parse; connection failures
// surface later, from Publish.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	a := &Adapter{
		channel: cfg.Channel,
		timeout: cfg.Timeout,
		retries: cfg.Retries,
		client:  goredis.NewClient(opts),
	}
	if a.channel == "" {
		a.channel = DefaultChannel
	}
	if a.timeout <= 0 {
		a.timeout = DefaultTimeout
	}
	return a, nil
}

// Publish sends the event as one JSON PUBLISH per attempt, backing off
// between connection failures.
func (a *Adapter) Publish(ctx context.Context, event *adapter.SyncCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	err = adapter.Retry(ctx, 1+a.retries, nil, func(ctx context.Context) error {
		pctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		return a.client.Publish(pctx, a.channel, body).Err()
	})
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
