package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/macadam/adapter"
	"github.com/pithecene-io/macadam/adapter/redis"
	"github.com/pithecene-io/macadam/adapter/webhook"
	"github.com/pithecene-io/macadam/backend"
	"github.com/pithecene-io/macadam/cli/config"
	"github.com/pithecene-io/macadam/cli/tui"
	"github.com/pithecene-io/macadam/codegen"
	"github.com/pithecene-io/macadam/creds"
	"github.com/pithecene-io/macadam/discover"
	"github.com/pithecene-io/macadam/engine"
	"github.com/pithecene-io/macadam/log"
	"github.com/pithecene-io/macadam/manifest"
	"github.com/pithecene-io/macadam/types"
)

// SyncCommand returns the sync command, the only command that uploads.
func SyncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Upload changed assets and regenerate bindings",
		Flags: []cli.Flag{
			ConfigFlag,
			ManifestFlag,
			&cli.StringFlag{
				Name:    "target",
				Aliases: []string{"t"},
				Usage:   "Upload target: cloud, studio, debug, s3",
				Value:   "cloud",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Detect changes without uploading or writing",
			},
			&cli.StringFlag{
				Name:  "api-key",
				Usage: "API key for the cloud target (or " + creds.EnvAPIKey + ")",
			},
			&cli.UintFlag{
				Name:  "expected-price",
				Usage: "Expected per-upload price for video assets",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Maximum concurrent uploads",
				Value: 8,
			},
			&cli.StringFlag{
				Name:  "studio-cache",
				Usage: "Editor cache directory for the studio target",
			},
			&cli.StringFlag{
				Name:  "debug-dir",
				Usage: "Output directory for the debug target",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Disable the interactive progress display",
			},
		},
		Action: syncAction,
	}
}

func syncAction(c *cli.Context) error {
	start := time.Now()

	target := c.String("target")
	switch target {
	case "cloud", "studio", "debug", "s3":
	default:
		return cli.Exit(fmt.Sprintf("unknown target %q (want cloud, studio, debug, or s3)", target), exitConfigError)
	}
	dryRun := c.Bool("dry-run")

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	runID := uuid.NewString()
	logger := log.NewLogger(log.RunContext{RunID: runID, Target: target, DryRun: dryRun})

	m, err := manifest.Load(c.String("manifest"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	assets, declared, prepFailed, warnDup, needsCookie, err := gatherAssets(cfg, logger)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	// Binding collisions are configuration errors; catch them before
	// any upload or file write.
	if err := validateBindings(cfg, assets, declared); err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	cr := creds.Resolve(c.String("api-key"))
	if target == "cloud" && !dryRun {
		if err := cr.RequireAPIKey(); err != nil {
			return cli.Exit(err.Error(), exitConfigError)
		}
		if needsCookie {
			if err := cr.RequireCookie(); err != nil {
				return cli.Exit(err.Error(), exitConfigError)
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	ecfg := engine.Config{
		Manifest:          m,
		Workers:           c.Int("workers"),
		ExpectedPrice:     uint32(c.Uint("expected-price")),
		WarnEachDuplicate: warnDup,
		DryRun:            dryRun,
		Logger:            logger,
	}
	if !dryRun {
		ecfg.Backend, err = buildBackend(ctx, c, cfg, cr, target)
		if err != nil {
			return cli.Exit(err.Error(), exitConfigError)
		}
	}

	rep, runErr := runEngine(ctx, c, ecfg, assets, declared)
	duration := time.Since(start)

	if dryRun {
		return finishDryRun(rep, prepFailed)
	}

	if runErr != nil {
		// Fatal abort; successes already settled still earn their
		// manifest entries.
		reportFailures(rep)
		if updates := rep.Updates(); len(updates) > 0 {
			if err := m.Merge(updates).Save(c.String("manifest")); err != nil {
				logger.Error("manifest save failed", map[string]any{"error": err.Error()})
			}
		}
		return cli.Exit(runErr.Error(), exitSyncFailure)
	}

	merged := m.Merge(rep.Updates())
	if err := merged.Save(c.String("manifest")); err != nil {
		return cli.Exit(fmt.Sprintf("save manifest: %v", err), exitSyncFailure)
	}

	if err := writeBindings(cfg, rep); err != nil {
		return cli.Exit(err.Error(), exitSyncFailure)
	}

	notify(cfg, logger, buildEvent(rep, runID, target, dryRun, duration))

	reportFailures(rep)
	fmt.Printf("synced %d assets in %s: %d uploaded, %d reused, %d unchanged, %d declared, %d failed\n",
		len(rep.Results), duration.Round(time.Millisecond),
		rep.Uploaded, rep.Reused, rep.Unchanged, rep.Declared, rep.Failed)

	if rep.Failed > 0 || len(prepFailed) > 0 {
		return cli.Exit("", exitSyncFailure)
	}
	return nil
}

// gatherAssets walks every configured input and prepares its files.
// Preparation failures are collected per asset, not fatal; walk and
// classification-of-configuration failures are.
func gatherAssets(cfg *config.Config, logger *log.Logger) (
	assets []discover.Prepared,
	declared map[types.LogicalKey]string,
	prepFailed []string,
	warnDup bool,
	needsCookie bool,
	err error,
) {
	declared = map[types.LogicalKey]string{}

	for _, name := range cfg.InputNames() {
		in := cfg.Inputs[name]
		if in.WarnEachDuplicate {
			warnDup = true
		}

		files, walkErr := discover.Walk(discover.Input{Name: name, Pattern: in.Path})
		if walkErr != nil {
			return nil, nil, nil, false, false, walkErr
		}

		// A path that is both declared and on disk would flow through the
		// run twice under one logical key. Duplicate keys are a
		// configuration error, caught before any preparation work.
		var overlap []string
		onDisk := make(map[string]bool, len(files))
		for _, f := range files {
			onDisk[f.Key.Path] = true
		}
		for path := range in.Web {
			if onDisk[path] {
				overlap = append(overlap, path)
			}
		}
		if len(overlap) > 0 {
			sort.Strings(overlap)
			return nil, nil, nil, false, false, fmt.Errorf(
				"input %q: declared web assets also matched on disk: %s",
				name, strings.Join(overlap, ", "))
		}

		prepared, prepErrs := discover.PrepareAll(files, in.BleedEnabled(), 0)
		for _, pe := range prepErrs {
			logger.Error("prepare failed", map[string]any{
				"key":   pe.Key.String(),
				"error": pe.Err.Error(),
			})
			prepFailed = append(prepFailed, pe.Key.String())
		}
		for _, p := range prepared {
			if p.Kind.NeedsCookie() {
				needsCookie = true
			}
			assets = append(assets, p)
		}

		for path, id := range in.Web {
			declared[types.LogicalKey{Input: name, Path: path}] = strconv.FormatUint(id, 10)
		}
	}
	return assets, declared, prepFailed, warnDup, needsCookie, nil
}

// validateBindings checks every input's prospective binding keys for
// collisions using placeholder identifiers.
func validateBindings(cfg *config.Config, assets []discover.Prepared, declared map[types.LogicalKey]string) error {
	opts, err := cfg.Codegen.Options()
	if err != nil {
		return err
	}

	perInput := map[string]map[string]string{}
	for _, a := range assets {
		if perInput[a.Key.Input] == nil {
			perInput[a.Key.Input] = map[string]string{}
		}
		perInput[a.Key.Input][a.Key.Path] = ""
	}
	for key := range declared {
		if perInput[key.Input] == nil {
			perInput[key.Input] = map[string]string{}
		}
		perInput[key.Input][key.Path] = ""
	}

	for _, name := range cfg.InputNames() {
		paths := perInput[name]
		if len(paths) == 0 {
			continue
		}
		if opts.Style == codegen.StyleNested {
			_, err = codegen.BuildTree(paths, opts.StripExtensions)
		} else {
			_, err = codegen.FlatBindings(paths, opts.StripExtensions)
		}
		if err != nil {
			return fmt.Errorf("input %q: %w", name, err)
		}
	}
	return nil
}

func buildBackend(ctx context.Context, c *cli.Context, cfg *config.Config, cr creds.Credentials, target string) (backend.Backend, error) {
	switch target {
	case "cloud":
		creator, err := cfg.Creator.Creator()
		if err != nil {
			return nil, err
		}
		return backend.NewCloud(backend.CloudConfig{Creds: cr, Creator: creator}), nil
	case "studio":
		return backend.NewStudio(backend.StudioConfig{CacheDir: c.String("studio-cache")})
	case "debug":
		return backend.NewDebug(c.String("debug-dir"))
	case "s3":
		if cfg.Storage == nil {
			return nil, errors.New("s3 target requires a storage section in the config")
		}
		return backend.NewS3(ctx, backend.S3Config{
			Bucket:       cfg.Storage.Bucket,
			Prefix:       cfg.Storage.Prefix,
			Region:       cfg.Storage.Region,
			Endpoint:     cfg.Storage.Endpoint,
			UsePathStyle: cfg.Storage.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown target %q", target)
	}
}

// runEngine executes the run, attaching the progress display when
// stdout is a terminal.
func runEngine(ctx context.Context, c *cli.Context, ecfg engine.Config, assets []discover.Prepared, declared map[types.LogicalKey]string) (*engine.Report, error) {
	useTUI := !c.Bool("no-progress") && !ecfg.DryRun && isStdoutTTY()
	if !useTUI {
		return engine.Run(ctx, ecfg, assets, declared)
	}

	progress := make(chan engine.Result, 64)
	ecfg.Progress = func(res engine.Result) { progress <- res }

	var (
		rep    *engine.Report
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		rep, runErr = engine.Run(ctx, ecfg, assets, declared)
		close(progress)
	}()

	// The display failing must not kill the run.
	title := fmt.Sprintf("macadam sync (%s)", c.String("target"))
	_ = tui.RunSync(title, len(assets)+len(declared), progress)
	// Keep draining in case the display exited before the run finished.
	go func() {
		for range progress {
		}
	}()
	<-done
	return rep, runErr
}

func finishDryRun(rep *engine.Report, prepFailed []string) error {
	drift := rep.Drift()
	for _, res := range drift {
		status := "added"
		if res.Changed {
			status = "changed"
		}
		fmt.Printf("%s %s\n", res.Key, status)
	}

	switch {
	case len(prepFailed) > 0:
		return cli.Exit(fmt.Sprintf("%d assets failed preparation", len(prepFailed)), exitSyncFailure)
	case len(drift) > 0:
		return cli.Exit(fmt.Sprintf("%d assets out of sync", len(drift)), exitDrift)
	default:
		fmt.Println("everything up to date")
		return nil
	}
}

// writeBindings regenerates binding files for every input that settled
// identifiers this run.
func writeBindings(cfg *config.Config, rep *engine.Report) error {
	opts, err := cfg.Codegen.Options()
	if err != nil {
		return err
	}

	perInput := map[string]map[string]string{}
	for _, res := range rep.Results {
		if res.Err != nil || res.ID == "" {
			continue
		}
		if perInput[res.Key.Input] == nil {
			perInput[res.Key.Input] = map[string]string{}
		}
		perInput[res.Key.Input][res.Key.Path] = formatAssetID(res.ID)
	}

	for _, name := range cfg.InputNames() {
		in := cfg.Inputs[name]
		bindings := perInput[name]
		if in.OutputPath == "" || len(bindings) == 0 {
			continue
		}

		out, err := codegen.Generate(bindings, opts)
		if err != nil {
			return fmt.Errorf("input %q: %w", name, err)
		}

		if err := os.MkdirAll(in.OutputPath, 0o755); err != nil {
			return fmt.Errorf("create output directory for %q: %w", name, err)
		}
		luauPath := filepath.Join(in.OutputPath, name+".luau")
		if err := os.WriteFile(luauPath, out.Luau, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", luauPath, err)
		}
		if out.TypeScript != nil {
			dtsPath := filepath.Join(in.OutputPath, name+".d.ts")
			if err := os.WriteFile(dtsPath, out.TypeScript, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", dtsPath, err)
			}
		}
	}
	return nil
}

// formatAssetID renders an identifier the way game code consumes it.
// Cloud and declared identifiers are bare numbers; sink identifiers are
// already URLs.
func formatAssetID(id string) string {
	for _, r := range id {
		if r < '0' || r > '9' {
			return id
		}
	}
	return "rbxassetid://" + id
}

func buildEvent(rep *engine.Report, runID, target string, dryRun bool, duration time.Duration) *adapter.SyncCompletedEvent {
	event := &adapter.SyncCompletedEvent{
		EventType:  adapter.EventType,
		RunID:      runID,
		Target:     target,
		DryRun:     dryRun,
		Uploaded:   rep.Uploaded,
		Reused:     rep.Reused,
		Unchanged:  rep.Unchanged,
		Declared:   rep.Declared,
		Failed:     rep.Failed,
		DurationMs: duration.Milliseconds(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for _, res := range rep.FailedResults() {
		event.FailedKeys = append(event.FailedKeys, res.Key.String())
	}
	return event
}

// notify publishes the completion event when an adapter is configured.
// Notification failures are logged, never fatal.
func notify(cfg *config.Config, logger *log.Logger, event *adapter.SyncCompletedEvent) {
	if cfg.Notify == nil {
		return
	}

	var (
		a   adapter.Adapter
		err error
	)
	retries := 0
	if cfg.Notify.Retries != nil {
		retries = *cfg.Notify.Retries
	}
	switch cfg.Notify.Type {
	case "webhook":
		a, err = webhook.New(webhook.Config{
			URL:     cfg.Notify.URL,
			Headers: cfg.Notify.Headers,
			Timeout: cfg.Notify.Timeout.Duration,
			Retries: retries,
		})
	case "redis":
		a, err = redis.New(redis.Config{
			URL:     cfg.Notify.URL,
			Channel: cfg.Notify.Channel,
			Timeout: cfg.Notify.Timeout.Duration,
			Retries: retries,
		})
	}
	if err != nil {
		logger.Warn("notify adapter unavailable", map[string]any{"error": err.Error()})
		return
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Publish(ctx, event); err != nil {
		logger.Warn("notify publish failed", map[string]any{"error": err.Error()})
	}
}

func reportFailures(rep *engine.Report) {
	for _, res := range rep.FailedResults() {
		fmt.Fprintf(os.Stderr, "failed: %s: %v\n", res.Key, res.Err)
	}
}

// isStdoutTTY returns true if stdout is a terminal.
func isStdoutTTY() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
