package cmd

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/macadam/cli/config"
	"github.com/pithecene-io/macadam/manifest"
	"github.com/pithecene-io/macadam/types"
)

// newTestApp builds an app whose exit handler does not terminate the
// test process; exit codes are read from the returned error instead.
func newTestApp(commands ...*cli.Command) *cli.App {
	return &cli.App{
		Name:           "macadam",
		Commands:       commands,
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	coder, ok := err.(cli.ExitCoder)
	if !ok {
		t.Fatalf("error %v carries no exit code", err)
	}
	return coder.ExitCode()
}

// captureStdout runs fn with os.Stdout redirected to a pipe and returns
// what fn wrote.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	_ = w.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}

func TestInit_WritesLoadableStarter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macadam.yaml")

	app := newTestApp(InitCommand())
	captureStdout(t, func() {
		if err := app.Run([]string{"macadam", "init", "--config", path}); err != nil {
			t.Fatalf("init: %v", err)
		}
	})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read starter config: %v", err)
	}
	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("starter config is not valid YAML: %v", err)
	}
	if _, ok := cfg.Inputs["assets"]; !ok {
		t.Fatal("starter config has no assets input")
	}
	if cfg.Codegen.Style != "nested" {
		t.Fatalf("starter style = %q", cfg.Codegen.Style)
	}
}

func TestInit_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macadam.yaml")
	if err := os.WriteFile(path, []byte("keep me"), 0o644); err != nil {
		t.Fatal(err)
	}

	app := newTestApp(InitCommand())
	err := app.Run([]string{"macadam", "init", "--config", path})
	if code := exitCode(t, err); code != exitConfigError {
		t.Fatalf("exit code = %d, want %d", code, exitConfigError)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "keep me" {
		t.Fatal("existing config was overwritten")
	}
}

func TestList_RendersManifestEntries(t *testing.T) {
	dir := t.TempDir()
	lock := filepath.Join(dir, "macadam.lock.yaml")

	m := manifest.New()
	m.Set(types.LogicalKey{Input: "game", Path: "icons/a.png"}, manifest.Entry{Hash: "aa11", ID: "101"})
	m.Set(types.LogicalKey{Input: "sounds", Path: "hit.ogg"}, manifest.Entry{Hash: "bb22", ID: "202"})
	if err := m.Save(lock); err != nil {
		t.Fatal(err)
	}

	app := newTestApp(ListCommand())
	out := captureStdout(t, func() {
		if err := app.Run([]string{"macadam", "list", "--manifest", lock, "--format", "json"}); err != nil {
			t.Fatalf("list: %v", err)
		}
	})

	for _, want := range []string{"game:icons/a.png", "aa11", "sounds:hit.ogg", "202"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestList_FiltersByInput(t *testing.T) {
	dir := t.TempDir()
	lock := filepath.Join(dir, "macadam.lock.yaml")

	m := manifest.New()
	m.Set(types.LogicalKey{Input: "game", Path: "a.png"}, manifest.Entry{Hash: "aa", ID: "1"})
	m.Set(types.LogicalKey{Input: "sounds", Path: "b.ogg"}, manifest.Entry{Hash: "bb", ID: "2"})
	if err := m.Save(lock); err != nil {
		t.Fatal(err)
	}

	app := newTestApp(ListCommand())
	out := captureStdout(t, func() {
		if err := app.Run([]string{"macadam", "list", "--manifest", lock, "--format", "json", "--input", "game"}); err != nil {
			t.Fatalf("list: %v", err)
		}
	})

	if !strings.Contains(out, "game:a.png") || strings.Contains(out, "sounds:b.ogg") {
		t.Fatalf("filter not applied:\n%s", out)
	}
}

func TestMigrate_ConvertsLegacyManifest(t *testing.T) {
	dir := t.TempDir()
	lock := filepath.Join(dir, "macadam.lock.yaml")

	legacy := "entries:\n  icons/a.png:\n    hash: aa11\n    id: \"101\"\n"
	if err := os.WriteFile(lock, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	app := newTestApp(MigrateCommand())
	captureStdout(t, func() {
		if err := app.Run([]string{"macadam", "migrate-manifest", "--manifest", lock, "--input", "game"}); err != nil {
			t.Fatalf("migrate-manifest: %v", err)
		}
	})

	m, err := manifest.Load(lock)
	if err != nil {
		t.Fatalf("load migrated manifest: %v", err)
	}
	entry, ok := m.Get(types.LogicalKey{Input: "game", Path: "icons/a.png"})
	if !ok || entry.ID != "101" || entry.Hash != "aa11" {
		t.Fatalf("migrated entry = %+v, ok = %v", entry, ok)
	}
}

// writeSyncFixture lays out a project directory with one audio input and
// returns the config and manifest paths.
func writeSyncFixture(t *testing.T) (dir, cfgPath, lockPath string) {
	t.Helper()
	dir = t.TempDir()

	assets := filepath.Join(dir, "assets")
	if err := os.MkdirAll(filepath.Join(assets, "sounds"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(assets, "sounds", "hit.ogg"), []byte("ogg bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfgPath = filepath.Join(dir, "macadam.yaml")
	cfgYAML := `creator:
  type: user
  id: 7

codegen:
  style: flat

inputs:
  sounds:
    path: "` + filepath.ToSlash(filepath.Join(dir, "assets/**/*.ogg")) + `"
    output_path: "` + filepath.ToSlash(filepath.Join(dir, "out")) + `"
`
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	lockPath = filepath.Join(dir, "macadam.lock.yaml")
	return dir, cfgPath, lockPath
}

func TestSync_DebugTargetEndToEnd(t *testing.T) {
	dir, cfgPath, lockPath := writeSyncFixture(t)
	debugDir := filepath.Join(dir, "debug")

	app := newTestApp(SyncCommand())
	out := captureStdout(t, func() {
		err := app.Run([]string{
			"macadam", "sync",
			"--config", cfgPath,
			"--manifest", lockPath,
			"--target", "debug",
			"--debug-dir", debugDir,
			"--no-progress",
		})
		if err != nil {
			t.Fatalf("sync: %v", err)
		}
	})
	if !strings.Contains(out, "1 uploaded") {
		t.Fatalf("summary missing upload count:\n%s", out)
	}

	m, err := manifest.Load(lockPath)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	entry, ok := m.Get(types.LogicalKey{Input: "sounds", Path: "sounds/hit.ogg"})
	if !ok || !strings.HasPrefix(entry.ID, "debug://") {
		t.Fatalf("manifest entry = %+v, ok = %v", entry, ok)
	}

	bindings, err := os.ReadFile(filepath.Join(dir, "out", "sounds.luau"))
	if err != nil {
		t.Fatalf("read bindings: %v", err)
	}
	if !strings.Contains(string(bindings), "debug://") {
		t.Fatalf("bindings missing identifier:\n%s", bindings)
	}

	files, err := os.ReadDir(debugDir)
	if err != nil || len(files) != 1 {
		t.Fatalf("debug dir files = %v, err = %v", files, err)
	}
}

func TestSync_DryRunReportsDrift(t *testing.T) {
	_, cfgPath, lockPath := writeSyncFixture(t)

	app := newTestApp(SyncCommand())
	var runErr error
	out := captureStdout(t, func() {
		runErr = app.Run([]string{
			"macadam", "sync",
			"--config", cfgPath,
			"--manifest", lockPath,
			"--dry-run",
			"--no-progress",
		})
	})

	if code := exitCode(t, runErr); code != exitDrift {
		t.Fatalf("exit code = %d, want %d", code, exitDrift)
	}
	if !strings.Contains(out, "sounds:sounds/hit.ogg added") {
		t.Fatalf("drift line missing:\n%s", out)
	}
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Fatal("dry run must not write the manifest")
	}
}

func TestSync_DryRunCleanAfterSync(t *testing.T) {
	dir, cfgPath, lockPath := writeSyncFixture(t)

	app := newTestApp(SyncCommand())
	captureStdout(t, func() {
		err := app.Run([]string{
			"macadam", "sync",
			"--config", cfgPath,
			"--manifest", lockPath,
			"--target", "debug",
			"--debug-dir", filepath.Join(dir, "debug"),
			"--no-progress",
		})
		if err != nil {
			t.Fatalf("sync: %v", err)
		}
	})

	var dryErr error
	out := captureStdout(t, func() {
		dryErr = app.Run([]string{
			"macadam", "sync",
			"--config", cfgPath,
			"--manifest", lockPath,
			"--dry-run",
			"--no-progress",
		})
	})
	if dryErr != nil {
		t.Fatalf("dry run after sync: %v", dryErr)
	}
	if !strings.Contains(out, "everything up to date") {
		t.Fatalf("output:\n%s", out)
	}
}

func TestSync_RejectsDeclaredPathOnDisk(t *testing.T) {
	dir, _, lockPath := writeSyncFixture(t)

	// Same key declared as a web asset and matched by the glob.
	cfgPath := filepath.Join(dir, "overlap.yaml")
	cfgYAML := `creator:
  type: user
  id: 7

codegen:
  style: flat

inputs:
  sounds:
    path: "` + filepath.ToSlash(filepath.Join(dir, "assets/**/*.ogg")) + `"
    web:
      sounds/hit.ogg: 12345
`
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	app := newTestApp(SyncCommand())
	err := app.Run([]string{
		"macadam", "sync",
		"--config", cfgPath,
		"--manifest", lockPath,
		"--target", "debug",
		"--debug-dir", filepath.Join(dir, "debug"),
		"--no-progress",
	})
	if code := exitCode(t, err); code != exitConfigError {
		t.Fatalf("exit code = %d, want %d", code, exitConfigError)
	}
	if !strings.Contains(err.Error(), "sounds/hit.ogg") {
		t.Fatalf("err = %v, want the overlapping path named", err)
	}
	if _, statErr := os.Stat(lockPath); !os.IsNotExist(statErr) {
		t.Fatal("rejected run must not write the manifest")
	}
}

func TestSync_UnknownTarget(t *testing.T) {
	_, cfgPath, lockPath := writeSyncFixture(t)

	app := newTestApp(SyncCommand())
	err := app.Run([]string{
		"macadam", "sync",
		"--config", cfgPath,
		"--manifest", lockPath,
		"--target", "ftp",
	})
	if code := exitCode(t, err); code != exitConfigError {
		t.Fatalf("exit code = %d, want %d", code, exitConfigError)
	}
}

func TestSync_MissingConfig(t *testing.T) {
	dir := t.TempDir()

	app := newTestApp(SyncCommand())
	err := app.Run([]string{
		"macadam", "sync",
		"--config", filepath.Join(dir, "absent.yaml"),
	})
	if code := exitCode(t, err); code != exitConfigError {
		t.Fatalf("exit code = %d, want %d", code, exitConfigError)
	}
}

func TestSync_CloudRequiresAPIKey(t *testing.T) {
	_, cfgPath, lockPath := writeSyncFixture(t)
	t.Setenv("MACADAM_API_KEY", "")

	app := newTestApp(SyncCommand())
	err := app.Run([]string{
		"macadam", "sync",
		"--config", cfgPath,
		"--manifest", lockPath,
		"--target", "cloud",
		"--no-progress",
	})
	if code := exitCode(t, err); code != exitConfigError {
		t.Fatalf("exit code = %d, want %d", code, exitConfigError)
	}
	if !strings.Contains(err.Error(), "API key") {
		t.Fatalf("err = %v, want API key requirement", err)
	}
}

func TestFormatAssetID(t *testing.T) {
	if got := formatAssetID("12345"); got != "rbxassetid://12345" {
		t.Errorf("numeric id = %q", got)
	}
	if got := formatAssetID("debug://x"); got != "debug://x" {
		t.Errorf("url id = %q", got)
	}
	if got := formatAssetID("s3://bucket/key"); got != "s3://bucket/key" {
		t.Errorf("s3 id = %q", got)
	}
}
