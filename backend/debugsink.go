package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Debug writes processed bytes to a local directory and allocates
// placeholder identifiers. Useful for inspecting exactly what would be
// uploaded, without credentials or network access.
type Debug struct {
	dir string
}

// NewDebug opens (or creates) the debug output directory.
func NewDebug(dir string) (*Debug, error) {
	if dir == "" {
		dir = ".macadam-debug"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create debug directory: %w", err)
	}
	return &Debug{dir: dir}, nil
}

func (d *Debug) UploadImage(_ context.Context, a Asset) (string, error) { return d.store(a) }
func (d *Debug) UploadAudio(_ context.Context, a Asset) (string, error) { return d.store(a) }
func (d *Debug) UploadVideo(_ context.Context, a Asset, _ uint32) (string, error) {
	return d.store(a)
}
func (d *Debug) UploadModel(_ context.Context, a Asset) (string, error)     { return d.store(a) }
func (d *Debug) UploadAnimation(_ context.Context, a Asset) (string, error) { return d.store(a) }

func (d *Debug) store(a Asset) (string, error) {
	name := a.Hash.String() + "." + a.Ext
	if err := os.WriteFile(filepath.Join(d.dir, name), a.Data, 0o644); err != nil {
		return "", fmt.Errorf("write debug file: %w", err)
	}
	return "debug://" + uuid.NewString(), nil
}

var _ Backend = (*Debug)(nil)
