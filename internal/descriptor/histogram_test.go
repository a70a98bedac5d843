package descriptor

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestComputeLength(t *testing.T) {
	sizes := []struct {
		name string
		w, h int
	}{
		{"square", 64, 64},
		{"wide", 100, 40},
		{"tall", 17, 93},
		{"tiny", 4, 4},
	}

	for _, tt := range sizes {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(solidImage(tt.w, tt.h, color.White))
			if len(got) != Length {
				t.Errorf("descriptor length = %d, want %d", len(got), Length)
			}
		})
	}
}

func TestComputeZoneSumsToOne(t *testing.T) {
	// Gradient image so every zone has pixels spread over several bins.
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8((x*4 + y) % 256)
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}

	desc := Compute(img)
	for zone := 0; zone < ZonesX*ZonesY; zone++ {
		sum := 0.0
		for bin := 0; bin < BinsPerZone; bin++ {
			sum += desc[zone*BinsPerZone+bin]
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("zone %d sums to %v, want 1.0", zone, sum)
		}
	}
}

func TestComputeUniformImage(t *testing.T) {
	// A single gray level cannot be equalized; all mass lands in one bin
	// per zone.
	desc := Compute(solidImage(32, 32, color.RGBA{128, 128, 128, 255}))

	for zone := 0; zone < ZonesX*ZonesY; zone++ {
		nonZero := 0
		for bin := 0; bin < BinsPerZone; bin++ {
			if desc[zone*BinsPerZone+bin] > 0 {
				nonZero++
			}
		}
		if nonZero != 1 {
			t.Errorf("zone %d has %d non-empty bins, want 1", zone, nonZero)
		}
	}
}

func TestComputeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thumb.png")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, solidImage(16, 16, color.White)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	desc, err := ComputeFile(path)
	if err != nil {
		t.Fatalf("ComputeFile: %v", err)
	}
	if len(desc) != Length {
		t.Errorf("descriptor length = %d, want %d", len(desc), Length)
	}
}

func TestComputeFileErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		if _, err := ComputeFile(filepath.Join(dir, "nope.png")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("not an image", func(t *testing.T) {
		path := filepath.Join(dir, "junk.png")
		if err := os.WriteFile(path, []byte("not a png"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := ComputeFile(path); err == nil {
			t.Error("expected decode error")
		}
	})
}
