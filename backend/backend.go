// Package backend defines the upload targets that fulfill the per-kind
// sync contract: the networked cloud service, a local editor cache, a
// debug directory, and an S3 mirror. The engine is backend-agnostic;
// only latency and failure characteristics differ between targets.
package backend

import (
	"context"
	"fmt"

	"github.com/pithecene-io/macadam/types"
)

// Asset is the processed content handed to a backend: post-preprocessing
// bytes plus the metadata the upload call needs.
type Asset struct {
	Key  types.LogicalKey
	Kind types.AssetKind
	Hash types.ContentHash
	// Data holds the post-preprocessing bytes that were hashed.
	Data []byte
	// Ext is the post-preprocessing extension (a rasterized svg is png).
	Ext string
	// FileName is the base file name, used as the upload display name.
	FileName string
}

// Backend is the per-kind upload contract all sync targets implement.
// Each call returns the identifier the target assigned for the content,
// or a classified error (see errors.go).
type Backend interface {
	UploadImage(ctx context.Context, a Asset) (string, error)
	UploadAudio(ctx context.Context, a Asset) (string, error)
	// UploadVideo requires an out-of-band expected-price acknowledgment.
	UploadVideo(ctx context.Context, a Asset, expectedPrice uint32) (string, error)
	UploadModel(ctx context.Context, a Asset) (string, error)
	UploadAnimation(ctx context.Context, a Asset) (string, error)
}

// Dispatch routes an asset to the backend operation for its kind.
func Dispatch(ctx context.Context, b Backend, a Asset, expectedPrice uint32) (string, error) {
	switch a.Kind {
	case types.KindImage:
		return b.UploadImage(ctx, a)
	case types.KindAudio:
		return b.UploadAudio(ctx, a)
	case types.KindVideo:
		return b.UploadVideo(ctx, a, expectedPrice)
	case types.KindModel:
		return b.UploadModel(ctx, a)
	case types.KindAnimation:
		return b.UploadAnimation(ctx, a)
	default:
		return "", fmt.Errorf("no upload operation for kind %s", a.Kind)
	}
}

// MIMEForExt maps a post-preprocessing extension to the content type
// sent with the upload.
func MIMEForExt(ext string) string {
	switch ext {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "bmp":
		return "image/bmp"
	case "tga":
		return "image/tga"
	case "mp3":
		return "audio/mpeg"
	case "ogg":
		return "audio/ogg"
	case "flac":
		return "audio/flac"
	case "wav":
		return "audio/wav"
	case "mp4":
		return "video/mp4"
	case "webm":
		return "video/webm"
	case "mov":
		return "video/quicktime"
	case "rbxm", "rbxmx":
		return "model/x-rbxm"
	default:
		return "application/octet-stream"
	}
}
