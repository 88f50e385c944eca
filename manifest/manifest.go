// Package manifest persists the mapping from logical asset keys to the
// content hash and remote identifier recorded at their last successful
// upload. The file is YAML so diffs stay reviewable in source control.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/macadam/types"
)

// FileName is the default manifest location, relative to the project root.
const FileName = "macadam.lock.yaml"

// CurrentVersion is the manifest schema version this tool reads and writes.
const CurrentVersion = 2

// ErrNeedsMigration marks a manifest in the recognized legacy (flat,
// unversioned) format. Run `macadam migrate-manifest` to convert it.
var ErrNeedsMigration = errors.New("manifest uses the legacy format; run `macadam migrate-manifest`")

// Entry records one asset slot: the content hash at last successful
// upload and the identifier the backend assigned for that content.
type Entry struct {
	Hash string `yaml:"hash"`
	ID   string `yaml:"id"`
}

// Manifest is the persisted mapping, keyed input name then relative path.
type Manifest struct {
	Version int                         `yaml:"version"`
	Inputs  map[string]map[string]Entry `yaml:"inputs"`
}

// New returns an empty manifest at the current schema version.
func New() *Manifest {
	return &Manifest{
		Version: CurrentVersion,
		Inputs:  map[string]map[string]Entry{},
	}
}

// probe covers every schema version we recognize, so Load can tell a
// legacy file from a corrupt one.
type probe struct {
	Version int                         `yaml:"version"`
	Entries map[string]Entry            `yaml:"entries"`
	Inputs  map[string]map[string]Entry `yaml:"inputs"`
}

// Load reads the manifest at path. A missing file yields an empty
// manifest; a malformed one is a terminal error. Legacy files are
// reported via ErrNeedsMigration rather than silently reinterpreted.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var p probe
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("manifest %s is not valid YAML: %w", path, err)
	}

	switch {
	case p.Version == CurrentVersion:
		m := &Manifest{Version: p.Version, Inputs: p.Inputs}
		if m.Inputs == nil {
			m.Inputs = map[string]map[string]Entry{}
		}
		return m, nil
	case p.Version == 0 && p.Entries != nil:
		return nil, fmt.Errorf("%s: %w", path, ErrNeedsMigration)
	case p.Version > CurrentVersion:
		return nil, fmt.Errorf("manifest %s has version %d, newer than this tool supports (%d)", path, p.Version, CurrentVersion)
	default:
		return nil, fmt.Errorf("manifest %s has unrecognized schema (version %d)", path, p.Version)
	}
}

// Get looks up the entry for a logical key.
func (m *Manifest) Get(key types.LogicalKey) (Entry, bool) {
	entry, ok := m.Inputs[key.Input][key.Path]
	return entry, ok
}

// Set upserts the entry for a logical key.
func (m *Manifest) Set(key types.LogicalKey, entry Entry) {
	input, ok := m.Inputs[key.Input]
	if !ok {
		input = map[string]Entry{}
		m.Inputs[key.Input] = input
	}
	input[key.Path] = entry
}

// Len reports the total number of entries across inputs.
func (m *Manifest) Len() int {
	n := 0
	for _, input := range m.Inputs {
		n += len(input)
	}
	return n
}

// Merge returns a new manifest combining m with the given updates.
// Keys absent from updates keep their last-known-good entries, so a
// failed upload never clobbers a prior success.
func (m *Manifest) Merge(updates map[types.LogicalKey]Entry) *Manifest {
	out := New()
	for name, input := range m.Inputs {
		for path, entry := range input {
			out.Set(types.LogicalKey{Input: name, Path: path}, entry)
		}
	}
	for key, entry := range updates {
		out.Set(key, entry)
	}
	return out
}

// Save persists the manifest atomically: the content lands in a
// temporary file in the same directory, then replaces the target with a
// rename. A crash mid-write leaves the previous manifest intact.
func (m *Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".macadam.lock-*")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp manifest: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod temp manifest: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}
