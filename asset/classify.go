// Package asset classifies discovered files into upload kinds.
//
// Classification is by file extension, except for packaged 3D-scene
// containers (.rbxm/.rbxmx) where the same extension carries both rigid
// models and animation clips. For those the container is peeked just far
// enough to read the declared class of its instances; richer scene
// parsing stays out of scope behind this package boundary.
package asset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pithecene-io/macadam/types"
)

// ErrUnknownExtension marks a file whose extension no kind claims.
// This is a configuration error: the input glob matched a file the
// pipeline cannot upload.
var ErrUnknownExtension = errors.New("unknown asset extension")

// SupportedExtension reports whether the classifier claims ext.
// Discovery uses this to reject misconfigured globs early.
func SupportedExtension(ext string) bool {
	_, err := Classify(nil, ext)
	return !errors.Is(err, ErrUnknownExtension)
}

// Classify determines the asset kind for raw file bytes with the given
// extension (without leading dot, any case). Container formats are
// disambiguated by peeking at their root-object metadata; a parse
// failure on a claimed container is terminal for that asset, since the
// kind determines the backend contract.
func Classify(data []byte, ext string) (types.AssetKind, error) {
	switch strings.ToLower(ext) {
	case "png", "jpg", "jpeg", "bmp", "tga":
		return types.KindImage, nil
	case "svg":
		return types.KindSvg, nil
	case "mp3", "ogg", "flac", "wav":
		return types.KindAudio, nil
	case "mp4", "webm", "mov":
		return types.KindVideo, nil
	case "rbxm":
		return classifyContainer(data, peekBinaryContainer)
	case "rbxmx":
		return classifyContainer(data, peekXMLContainer)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownExtension, ext)
	}
}

func classifyContainer(data []byte, peek func([]byte) ([]string, error)) (types.AssetKind, error) {
	if data == nil {
		// Extension probe only (SupportedExtension).
		return types.KindModel, nil
	}

	classes, err := peek(data)
	if err != nil {
		return 0, fmt.Errorf("peek container: %w", err)
	}

	for _, class := range classes {
		if class == animationCarrierClass {
			return types.KindAnimation, nil
		}
	}
	return types.KindModel, nil
}

// animationCarrierClass is the declared type tag that marks a container
// as an animation clip rather than a rigid model.
const animationCarrierClass = "KeyframeSequence"
