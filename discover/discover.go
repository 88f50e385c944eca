// Package discover walks configured input globs and prepares each file
// for synchronization: classification, preprocessing, and hashing.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/pithecene-io/macadam/asset"
	"github.com/pithecene-io/macadam/imageproc"
	"github.com/pithecene-io/macadam/types"
)

// Input is one configured source of assets.
type Input struct {
	// Name namespaces every logical key this input produces.
	Name string
	// Pattern is the glob selecting files, e.g. "assets/**/*.png".
	// The non-wildcard prefix becomes the base that relative paths are
	// computed against.
	Pattern string
}

// File is a discovered source file, read into memory.
type File struct {
	Key     types.LogicalKey
	AbsPath string
	Ext     string
	Data    []byte
}

// Prepared is a file carried through classification, preprocessing, and
// hashing. The hash always covers the post-preprocessing bytes, so a
// change in preprocessing output is a change in identity.
type Prepared struct {
	Key      types.LogicalKey
	Kind     types.AssetKind
	Ext      string
	FileName string
	Data     []byte
	Hash     types.ContentHash
}

// Walk expands the input's glob and reads every matched file. Files are
// returned in path order so downstream work is deterministic. A matched
// file with an extension no pipeline handles fails the walk: globs are
// configuration, and configuration errors surface before any upload.
func Walk(in Input) ([]File, error) {
	base, pattern := doublestar.SplitPattern(filepath.ToSlash(in.Pattern))

	var files []File
	err := doublestar.GlobWalk(os.DirFS(base), pattern, func(p string, d fs.DirEntry) error {
		if d.IsDir() {
			return nil
		}

		ext := strings.TrimPrefix(path.Ext(p), ".")
		if !asset.SupportedExtension(ext) {
			return fmt.Errorf("input %q matched %s: unsupported extension %q", in.Name, p, ext)
		}

		abs := filepath.Join(base, filepath.FromSlash(p))
		data, err := os.ReadFile(abs)
		if err != nil {
			return fmt.Errorf("read %s: %w", abs, err)
		}

		files = append(files, File{
			Key:     types.LogicalKey{Input: in.Name, Path: p},
			AbsPath: abs,
			Ext:     ext,
			Data:    data,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk input %q: %w", in.Name, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Key.Path < files[j].Key.Path })
	return files, nil
}

// Prepare runs one file through the pipeline: classify by content,
// preprocess (rasterize, bleed), then hash the processed bytes.
func Prepare(f File, bleed bool) (Prepared, error) {
	kind, err := asset.Classify(f.Data, f.Ext)
	if err != nil {
		return Prepared{}, fmt.Errorf("classify %s: %w", f.Key, err)
	}

	data, kind, err := imageproc.Process(f.Data, kind, f.Ext, bleed)
	if err != nil {
		return Prepared{}, fmt.Errorf("preprocess %s: %w", f.Key, err)
	}

	ext := f.Ext
	fileName := path.Base(f.Key.Path)
	if f.Ext == "svg" && kind == types.KindImage {
		ext = "png"
		fileName = strings.TrimSuffix(fileName, ".svg") + ".png"
	}

	return Prepared{
		Key:      f.Key,
		Kind:     kind,
		Ext:      ext,
		FileName: fileName,
		Data:     data,
		Hash:     types.HashContent(data),
	}, nil
}

// PrepareError records one file that failed preparation.
type PrepareError struct {
	Key types.LogicalKey
	Err error
}

// PrepareAll runs Prepare over files, one task per file under a bounded
// worker set; rasterization and bleeding are CPU-bound, so workers
// defaults to the CPU count. Prepared results keep Walk's path order.
// Failures are collected per file and do not stop the batch.
func PrepareAll(files []File, bleed bool, workers int) ([]Prepared, []PrepareError) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	type outcome struct {
		prepared Prepared
		err      error
	}
	outcomes := make([]outcome, len(files))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f File) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i].prepared, outcomes[i].err = Prepare(f, bleed)
		}(i, f)
	}
	wg.Wait()

	var (
		prepared []Prepared
		failed   []PrepareError
	)
	for i, out := range outcomes {
		if out.err != nil {
			failed = append(failed, PrepareError{Key: files[i].Key, Err: out.err})
			continue
		}
		prepared = append(prepared, out.prepared)
	}
	return prepared, failed
}
