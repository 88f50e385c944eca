// Package imageproc applies the deterministic image transforms that run
// before hashing and upload: vector rasterization and alpha bleeding.
// The transform output is what gets hashed, so every operation here must
// be byte-deterministic for identical input.
package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

// BleedPNG extrapolates color into the fully-transparent pixels of a PNG
// so texture filtering does not blend toward black at edges. Each
// transparent pixel takes the average color of its nearest non-transparent
// neighbors; alpha stays zero. Images with no fully-transparent pixels are
// returned unchanged. The transform is idempotent: bleeding an already
// bled image reproduces it byte for byte.
func BleedPNG(data []byte) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}

	img, ok := src.(*image.NRGBA)
	if !ok {
		img = image.NewNRGBA(src.Bounds())
		draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)
	}

	if !bleed(img) {
		return data, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// bleed colors transparent pixels in place via breadth-first expansion
// from the opaque region. Pixels at equal distance from the opaque
// boundary are processed as one frontier, so each takes the average of
// neighbors colored in earlier frontiers only. Reports whether any pixel
// changed meaningfully (i.e. the image had transparency to bleed into).
func bleed(img *image.NRGBA) bool {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return false
	}

	// colored marks pixels whose RGB is meaningful: opaque pixels now,
	// bled pixels once their frontier completes.
	colored := make([]bool, w*h)
	queued := make([]bool, w*h)

	alphaAt := func(x, y int) uint8 {
		return img.Pix[img.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)+3]
	}

	hasTransparent := false
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if alphaAt(x, y) > 0 {
				colored[y*w+x] = true
			} else {
				hasTransparent = true
			}
		}
	}
	if !hasTransparent {
		return false
	}

	neighbors := [8][2]int{
		{-1, -1}, {0, -1}, {1, -1},
		{-1, 0}, {1, 0},
		{-1, 1}, {0, 1}, {1, 1},
	}

	// Seed the first frontier: transparent pixels touching the opaque
	// region, in row-major order for determinism.
	var frontier []int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if colored[i] {
				continue
			}
			for _, d := range neighbors {
				nx, ny := x+d[0], y+d[1]
				if nx >= 0 && nx < w && ny >= 0 && ny < h && colored[ny*w+nx] {
					frontier = append(frontier, i)
					queued[i] = true
					break
				}
			}
		}
	}

	for len(frontier) > 0 {
		var next []int

		for _, i := range frontier {
			x, y := i%w, i/w
			var rSum, gSum, bSum, n uint32
			for _, d := range neighbors {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || nx >= w || ny < 0 || ny >= h || !colored[ny*w+nx] {
					continue
				}
				off := img.PixOffset(bounds.Min.X+nx, bounds.Min.Y+ny)
				rSum += uint32(img.Pix[off])
				gSum += uint32(img.Pix[off+1])
				bSum += uint32(img.Pix[off+2])
				n++
			}
			off := img.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			img.Pix[off] = uint8(rSum / n)
			img.Pix[off+1] = uint8(gSum / n)
			img.Pix[off+2] = uint8(bSum / n)
			// alpha stays zero
		}

		// Frontier pixels become sources only after the whole frontier
		// resolved, keeping equal-distance pixels independent of order.
		for _, i := range frontier {
			colored[i] = true
		}

		for _, i := range frontier {
			x, y := i%w, i/w
			for _, d := range neighbors {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				j := ny*w + nx
				if !colored[j] && !queued[j] {
					next = append(next, j)
					queued[j] = true
				}
			}
		}

		frontier = next
	}

	return true
}
