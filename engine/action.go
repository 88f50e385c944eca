// Package engine decides per-asset work and drives uploads: change
// detection against the manifest, in-run content dedup, and a bounded
// worker pool with retry.
package engine

import "github.com/pithecene-io/macadam/types"

// Action is the resolved disposition of one logical asset in a run.
type Action int

const (
	// ActionDeclared means the identifier came from configuration; the
	// asset was never read or uploaded.
	ActionDeclared Action = iota
	// ActionUnchanged means the manifest already holds this key at this
	// content hash.
	ActionUnchanged
	// ActionReuse means another asset in the same run owned the upload
	// for this content hash; the identifier is shared.
	ActionReuse
	// ActionUpload means this asset performed (or, in a dry run, would
	// perform) the backend call for its content hash.
	ActionUpload
)

func (a Action) String() string {
	switch a {
	case ActionDeclared:
		return "declared"
	case ActionUnchanged:
		return "unchanged"
	case ActionReuse:
		return "reuse"
	case ActionUpload:
		return "upload"
	default:
		return "unknown"
	}
}

// Result is the outcome for one logical key.
type Result struct {
	Key    types.LogicalKey
	Action Action
	Hash   types.ContentHash
	ID     string
	// Changed is set when the manifest held this key at a different
	// hash. Unset on Upload/Reuse means the key is new.
	Changed bool
	Err     error
}
