// Package types defines the shared domain types for macadam.
package types

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// AssetKind classifies an asset's content for upload purposes.
// The kind determines which backend operation handles the asset and
// which preprocessing steps apply.
type AssetKind int

const (
	KindImage AssetKind = iota
	KindSvg
	KindAudio
	KindVideo
	KindModel
	KindAnimation
)

// String returns the lowercase kind name used in logs and reports.
func (k AssetKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindSvg:
		return "svg"
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	case KindModel:
		return "model"
	case KindAnimation:
		return "animation"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// NeedsCookie reports whether uploading this kind requires a session
// cookie in addition to the API key.
func (k AssetKind) NeedsCookie() bool {
	return k == KindAnimation || k == KindVideo
}

// LogicalKey identifies one asset slot across runs: the input that
// discovered it plus its path relative to that input's root.
// Keys are unique within a run; a duplicate path is a discovery error.
type LogicalKey struct {
	Input string
	Path  string
}

func (k LogicalKey) String() string {
	return k.Input + ":" + k.Path
}

// ContentHash is a BLAKE3 digest of an asset's post-preprocessing bytes.
// Two assets with equal ContentHash are content-identical for all
// purposes of change detection and deduplication.
type ContentHash [32]byte

// HashContent digests processed asset bytes.
func HashContent(data []byte) ContentHash {
	return blake3.Sum256(data)
}

func (h ContentHash) String() string {
	return hex.EncodeToString(h[:])
}

// ParseContentHash decodes the hex form stored in the manifest.
func ParseContentHash(s string) (ContentHash, error) {
	var h ContentHash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid content hash %q: %w", s, err)
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("invalid content hash %q: want %d bytes, got %d", s, len(h), len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

// CreatorType distinguishes user-owned from group-owned uploads.
type CreatorType string

const (
	CreatorUser  CreatorType = "user"
	CreatorGroup CreatorType = "group"
)

// Creator is the identity assets are uploaded under.
type Creator struct {
	Type CreatorType `yaml:"type"`
	ID   uint64      `yaml:"id"`
}

// Validate checks the creator identity before any network activity.
func (c Creator) Validate() error {
	switch c.Type {
	case CreatorUser, CreatorGroup:
	default:
		return fmt.Errorf("invalid creator type %q (must be user or group)", c.Type)
	}
	if c.ID == 0 {
		return fmt.Errorf("creator id is required")
	}
	return nil
}
