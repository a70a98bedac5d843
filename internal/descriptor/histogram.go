// Package descriptor computes the visual descriptor stored alongside
// thumbnails and photographs: a spatial histogram over a 4x4 grid of zones,
// 8 bins per zone, taken from the histogram-equalized grayscale image. The
// resulting 128-element vector feeds similarity search; this package only
// produces it.
package descriptor

import (
	"fmt"
	"image"
	"os"

	_ "image/jpeg"
	_ "image/png"
)

const (
	// ZonesX and ZonesY split the image into a 4x4 grid.
	ZonesX = 4
	ZonesY = 4

	// BinsPerZone is the histogram resolution inside each zone.
	BinsPerZone = 8
)

// Length is the size of every descriptor vector.
const Length = ZonesX * ZonesY * BinsPerZone

// ComputeFile decodes the image at path and returns its descriptor.
func ComputeFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return Compute(img), nil
}

// Compute returns the descriptor of an already-decoded image.
func Compute(img image.Image) []float64 {
	gray := equalize(grayscale(img))

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	out := make([]float64, 0, Length)
	for zy := 0; zy < ZonesY; zy++ {
		fromY := int(float64(h) / ZonesY * float64(zy))
		toY := int(float64(h) / ZonesY * float64(zy+1))
		for zx := 0; zx < ZonesX; zx++ {
			fromX := int(float64(w) / ZonesX * float64(zx))
			toX := int(float64(w) / ZonesX * float64(zx+1))

			var hist [BinsPerZone]float64
			var total float64
			for y := fromY; y < toY; y++ {
				for x := fromX; x < toX; x++ {
					v := gray[y*w+x]
					// Bin edges span [0,255] with the last bin closed.
					bin := int(float64(v) * BinsPerZone / 255)
					if bin >= BinsPerZone {
						bin = BinsPerZone - 1
					}
					hist[bin]++
					total++
				}
			}
			for i := range hist {
				if total > 0 {
					hist[i] /= total
				}
				out = append(out, hist[i])
			}
		}
	}
	return out
}

// grayscale flattens the image into 8-bit luma values, row-major.
func grayscale(img image.Image) []uint8 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// BT.601 luma, same weighting OpenCV applies.
			v := (299*(r>>8) + 587*(g>>8) + 114*(bl>>8)) / 1000
			out[y*w+x] = uint8(v)
		}
	}
	return out
}

// equalize applies global histogram equalization over the 256 gray levels.
func equalize(gray []uint8) []uint8 {
	if len(gray) == 0 {
		return gray
	}

	var counts [256]int
	for _, v := range gray {
		counts[v]++
	}

	// Cumulative distribution, with the first non-zero level mapped to 0.
	var cdf [256]int
	running := 0
	cdfMin := -1
	for i, c := range counts {
		running += c
		cdf[i] = running
		if cdfMin < 0 && c > 0 {
			cdfMin = cdf[i]
		}
	}

	total := len(gray)
	if total == cdfMin {
		// Single gray level; nothing to spread out.
		return gray
	}

	var lut [256]uint8
	denom := float64(total - cdfMin)
	for i := range lut {
		v := float64(cdf[i]-cdfMin) / denom * 255
		if v < 0 {
			v = 0
		}
		lut[i] = uint8(v + 0.5)
	}

	out := make([]uint8, len(gray))
	for i, v := range gray {
		out[i] = lut[v]
	}
	return out
}
