package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pithecene-io/macadam/backend"
	"github.com/pithecene-io/macadam/discover"
	"github.com/pithecene-io/macadam/log"
	"github.com/pithecene-io/macadam/manifest"
	"github.com/pithecene-io/macadam/types"
)

const (
	defaultWorkers     = 8
	defaultMaxAttempts = 3
	defaultRetryBase   = 500 * time.Millisecond
)

// Config configures one sync run.
type Config struct {
	// Backend receives the uploads. Ignored on dry runs.
	Backend backend.Backend
	// Manifest is the last-known-good state change detection compares
	// against. Never mutated; Run returns updates for merging.
	Manifest *manifest.Manifest
	// Workers bounds concurrent backend calls (default 8).
	Workers int
	// MaxAttempts bounds retries per upload on retryable errors
	// (default 3).
	MaxAttempts int
	// RetryBase is the first backoff delay; it doubles per attempt
	// (default 500ms).
	RetryBase time.Duration
	// ExpectedPrice is forwarded on video uploads.
	ExpectedPrice uint32
	// WarnEachDuplicate logs every in-run content duplicate instead of
	// resolving them silently.
	WarnEachDuplicate bool
	// DryRun plans actions without calling the backend or producing
	// manifest updates.
	DryRun bool
	// Logger receives per-asset progress. Required.
	Logger *log.Logger
	// Progress, when set, observes each settled result. Called from
	// worker goroutines, serialized.
	Progress func(Result)
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryBase <= 0 {
		c.RetryBase = defaultRetryBase
	}
}

// Run plans and executes one sync: declared identifiers pass through,
// unchanged assets keep their manifest entries, and the rest upload
// through a bounded worker pool with in-run content dedup. The returned
// report always reflects every asset, including runs cut short by a
// fatal credential error.
func Run(ctx context.Context, cfg Config, assets []discover.Prepared, declared map[types.LogicalKey]string) (*Report, error) {
	cfg.applyDefaults()

	rep := newReport()
	for key, id := range declared {
		rep.add(cfg.Progress, Result{Key: key, Action: ActionDeclared, ID: id})
	}

	var pending []pendingAsset
	for _, a := range assets {
		prev, known := cfg.Manifest.Get(a.Key)
		if known {
			// A stored hash that does not parse counts as changed, so a
			// corrupted entry heals itself with a fresh upload.
			prevHash, err := types.ParseContentHash(prev.Hash)
			if err == nil && prevHash == a.Hash {
				rep.add(cfg.Progress, Result{Key: a.Key, Action: ActionUnchanged, Hash: a.Hash, ID: prev.ID})
				continue
			}
		}
		pending = append(pending, pendingAsset{prepared: a, changed: known})
	}

	if cfg.DryRun {
		for _, p := range pending {
			rep.add(cfg.Progress, Result{
				Key:     p.prepared.Key,
				Action:  ActionUpload,
				Hash:    p.prepared.Hash,
				Changed: p.changed,
			})
		}
		rep.finish()
		return rep, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		idx = NewIndex()
		sem = make(chan struct{}, cfg.Workers)
		wg  sync.WaitGroup

		fatalOnce sync.Once
		fatalErr  error
	)

	for _, p := range pending {
		wg.Add(1)
		go func(p pendingAsset) {
			defer wg.Done()

			a := p.prepared
			if !idx.Claim(a.Hash, a.Key) {
				// Another asset owns this content; share its outcome
				// without occupying a worker slot.
				id, owner, err := idx.Wait(ctx, a.Hash)
				if err == nil && cfg.WarnEachDuplicate {
					cfg.Logger.Warn("duplicate content", map[string]any{
						"key":   a.Key.String(),
						"owner": owner.String(),
						"hash":  a.Hash.String(),
					})
				}
				rep.add(cfg.Progress, Result{Key: a.Key, Action: ActionReuse, Hash: a.Hash, ID: id, Changed: p.changed, Err: err})
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				idx.Fail(a.Hash, ctx.Err())
				rep.add(cfg.Progress, Result{Key: a.Key, Action: ActionUpload, Hash: a.Hash, Changed: p.changed, Err: ctx.Err()})
				return
			}
			id, err := uploadWithRetry(ctx, cfg, a)
			<-sem

			if err != nil {
				idx.Fail(a.Hash, err)
				if backend.Fatal(err) {
					fatalOnce.Do(func() {
						fatalErr = err
						cancel()
					})
				}
			} else {
				idx.Resolve(a.Hash, id)
			}
			rep.add(cfg.Progress, Result{Key: a.Key, Action: ActionUpload, Hash: a.Hash, ID: id, Changed: p.changed, Err: err})
		}(p)
	}
	wg.Wait()

	rep.finish()
	if fatalErr != nil {
		return rep, fmt.Errorf("run aborted: %w", fatalErr)
	}
	return rep, nil
}

type pendingAsset struct {
	prepared discover.Prepared
	changed  bool
}

// uploadWithRetry dispatches one upload, retrying transient failures
// with doubling backoff. Terminal errors return immediately.
func uploadWithRetry(ctx context.Context, cfg Config, a discover.Prepared) (string, error) {
	asset := backend.Asset{
		Key:      a.Key,
		Kind:     a.Kind,
		Hash:     a.Hash,
		Data:     a.Data,
		Ext:      a.Ext,
		FileName: a.FileName,
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(1<<uint(attempt-2)) * cfg.RetryBase
			cfg.Logger.Debug("retrying upload", map[string]any{
				"key":     a.Key.String(),
				"attempt": attempt,
				"delay":   delay.String(),
			})
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		id, err := backend.Dispatch(ctx, cfg.Backend, asset, cfg.ExpectedPrice)
		if err == nil {
			return id, nil
		}
		lastErr = err
		if !backend.Retryable(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("gave up after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// sortResults orders a report deterministically by logical key.
func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Key.String() < results[j].Key.String()
	})
}
