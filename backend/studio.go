package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// studioIndexFile tracks what the editor cache holds so the companion
// plugin can resolve identifiers without rescanning the directory.
const studioIndexFile = "index.msgpack"

// StudioConfig configures the editor-integration sink.
type StudioConfig struct {
	// CacheDir is the editor's local content directory.
	CacheDir string
}

// Studio writes processed content into the local editor's asset cache
// and allocates editor-local identifiers, so a sync round-trips without
// any network access. Content is stored by hash; the msgpack index maps
// each hash back to the logical key that produced it.
type Studio struct {
	dir string

	mu    sync.Mutex
	index map[string]studioIndexEntry
}

type studioIndexEntry struct {
	File     string    `msgpack:"file"`
	Kind     string    `msgpack:"kind"`
	Key      string    `msgpack:"key"`
	SyncedAt time.Time `msgpack:"synced_at"`
}

// NewStudio opens (or creates) the editor cache directory and loads the
// existing index.
func NewStudio(cfg StudioConfig) (*Studio, error) {
	if cfg.CacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.CacheDir = filepath.Join(home, ".macadam", "studio")
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create studio cache: %w", err)
	}

	s := &Studio{dir: cfg.CacheDir, index: map[string]studioIndexEntry{}}

	data, err := os.ReadFile(filepath.Join(cfg.CacheDir, studioIndexFile))
	if err == nil {
		if err := msgpack.Unmarshal(data, &s.index); err != nil {
			return nil, fmt.Errorf("studio cache index is corrupt: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read studio cache index: %w", err)
	}

	return s, nil
}

func (s *Studio) UploadImage(_ context.Context, a Asset) (string, error) { return s.store(a) }
func (s *Studio) UploadAudio(_ context.Context, a Asset) (string, error) { return s.store(a) }
func (s *Studio) UploadVideo(_ context.Context, a Asset, _ uint32) (string, error) {
	return s.store(a)
}
func (s *Studio) UploadModel(_ context.Context, a Asset) (string, error)     { return s.store(a) }
func (s *Studio) UploadAnimation(_ context.Context, a Asset) (string, error) { return s.store(a) }

// store writes the content-addressed file and records it in the index.
func (s *Studio) store(a Asset) (string, error) {
	name := a.Hash.String() + "." + a.Ext
	if err := os.WriteFile(filepath.Join(s.dir, name), a.Data, 0o644); err != nil {
		return "", fmt.Errorf("write studio cache file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.index[a.Hash.String()] = studioIndexEntry{
		File:     name,
		Kind:     a.Kind.String(),
		Key:      a.Key.String(),
		SyncedAt: time.Now().UTC(),
	}
	if err := s.saveIndexLocked(); err != nil {
		return "", err
	}

	return "rbxasset://macadam/" + name, nil
}

func (s *Studio) saveIndexLocked() error {
	data, err := msgpack.Marshal(s.index)
	if err != nil {
		return fmt.Errorf("encode studio cache index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, studioIndexFile), data, 0o644); err != nil {
		return fmt.Errorf("write studio cache index: %w", err)
	}
	return nil
}

var _ Backend = (*Studio)(nil)
