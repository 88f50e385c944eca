package engine

import (
	"sync"

	"github.com/pithecene-io/macadam/manifest"
	"github.com/pithecene-io/macadam/types"
)

// Report aggregates the outcome of a run. Results are ordered by
// logical key once the run finishes.
type Report struct {
	mu sync.Mutex

	Results []Result

	Declared  int
	Unchanged int
	Reused    int
	Uploaded  int
	Failed    int
}

func newReport() *Report {
	return &Report{}
}

// add records one settled result and forwards it to the progress hook.
func (r *Report) add(progress func(Result), res Result) {
	r.mu.Lock()
	r.Results = append(r.Results, res)
	if res.Err != nil {
		r.Failed++
	} else {
		switch res.Action {
		case ActionDeclared:
			r.Declared++
		case ActionUnchanged:
			r.Unchanged++
		case ActionReuse:
			r.Reused++
		case ActionUpload:
			r.Uploaded++
		}
	}
	if progress != nil {
		progress(res)
	}
	r.mu.Unlock()
}

func (r *Report) finish() {
	sortResults(r.Results)
}

// OK reports whether every asset settled without error.
func (r *Report) OK() bool {
	return r.Failed == 0
}

// Updates returns the manifest entries earned by this run: every
// successful upload or reuse. Failed and unchanged assets contribute
// nothing, so merging preserves their last-known-good state.
func (r *Report) Updates() map[types.LogicalKey]manifest.Entry {
	updates := make(map[types.LogicalKey]manifest.Entry)
	for _, res := range r.Results {
		if res.Err != nil || res.ID == "" {
			continue
		}
		if res.Action == ActionUpload || res.Action == ActionReuse {
			updates[res.Key] = manifest.Entry{Hash: res.Hash.String(), ID: res.ID}
		}
	}
	return updates
}

// Drift returns the results a dry run would have uploaded: everything
// that is neither unchanged nor declared.
func (r *Report) Drift() []Result {
	var drift []Result
	for _, res := range r.Results {
		if res.Action == ActionUpload || res.Action == ActionReuse {
			drift = append(drift, res)
		}
	}
	return drift
}

// FailedResults returns every result that settled with an error.
func (r *Report) FailedResults() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}
