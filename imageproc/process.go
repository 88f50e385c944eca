package imageproc

import (
	"fmt"
	"strings"

	"github.com/pithecene-io/macadam/types"
)

// Process runs the deterministic content pipeline for one asset and
// returns the bytes that get hashed and uploaded. Vector images are
// rasterized first, then (like raster PNGs) alpha-bled when the input
// enables it. Non-image kinds and formats without an alpha channel pass
// through untouched.
func Process(data []byte, kind types.AssetKind, ext string, bleedEnabled bool) ([]byte, types.AssetKind, error) {
	switch kind {
	case types.KindSvg:
		rasterized, err := RasterizeSVG(data)
		if err != nil {
			return nil, 0, fmt.Errorf("rasterize: %w", err)
		}
		if !bleedEnabled {
			return rasterized, types.KindImage, nil
		}
		bled, err := BleedPNG(rasterized)
		if err != nil {
			return nil, 0, fmt.Errorf("bleed: %w", err)
		}
		return bled, types.KindImage, nil

	case types.KindImage:
		if !bleedEnabled || strings.ToLower(ext) != "png" {
			return data, kind, nil
		}
		bled, err := BleedPNG(data)
		if err != nil {
			return nil, 0, fmt.Errorf("bleed: %w", err)
		}
		return bled, kind, nil

	default:
		return data, kind, nil
	}
}
