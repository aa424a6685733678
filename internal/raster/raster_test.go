package raster

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestRawRGBA64RoundTrip(t *testing.T) {
	const width, height = 6, 4

	// Fill with float64 bit patterns the raw spectrogram container uses,
	// including -Inf padding and a sentinel value. One pixel holds one
	// float64 (8 bytes).
	pix := make([]byte, width*height*8)
	floats := []float64{-42.5, 0.0, -200.0, math.Inf(-1), -1e9, 13.37}
	for i := 0; i < width*height; i++ {
		binary.LittleEndian.PutUint64(pix[i*8:], math.Float64bits(floats[i%len(floats)]))
	}

	path := filepath.Join(t.TempDir(), "raw.png")
	if err := Write(path, width, height, 16, ModeRGBA, pix); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	got, w, h, err := ReadRGBA64(path)
	if err != nil {
		t.Fatalf("ReadRGBA64() error: %v", err)
	}
	if w != width || h != height {
		t.Errorf("ReadRGBA64() dimensions = %dx%d, want %dx%d", w, h, width, height)
	}
	if !bytes.Equal(got, pix) {
		t.Error("ReadRGBA64() bytes differ from what Write() stored")
	}
}

func TestWriteRGB8(t *testing.T) {
	const width, height = 3, 2

	pix := []byte{
		255, 0, 0, 0, 255, 0, 0, 0, 255,
		10, 20, 30, 40, 50, 60, 70, 80, 90,
	}

	path := filepath.Join(t.TempDir(), "vis.png")
	if err := Write(path, width, height, 8, ModeRGB, pix); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open written PNG: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("written file is not a decodable PNG: %v", err)
	}
	if img.Bounds().Dx() != width || img.Bounds().Dy() != height {
		t.Errorf("decoded dimensions = %dx%d, want %dx%d",
			img.Bounds().Dx(), img.Bounds().Dy(), width, height)
	}

	r, g, b, a := img.At(0, 0).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 || a>>8 != 255 {
		t.Errorf("pixel (0,0) = %d,%d,%d,%d want opaque red", r>>8, g>>8, b>>8, a>>8)
	}
	r, g, b, _ = img.At(1, 1).RGBA()
	if r>>8 != 40 || g>>8 != 50 || b>>8 != 60 {
		t.Errorf("pixel (1,1) = %d,%d,%d want 40,50,60", r>>8, g>>8, b>>8)
	}
}

func TestWriteValidation(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		width    int
		height   int
		bitDepth int
		mode     ColorMode
		pixLen   int
	}{
		{"zero width", 0, 4, 8, ModeRGB, 0},
		{"negative height", 4, -1, 8, ModeRGB, 12},
		{"bad depth", 4, 4, 12, ModeRGB, 48},
		{"short pix rgb8", 4, 4, 8, ModeRGB, 47},
		{"short pix rgba16", 4, 4, 16, ModeRGBA, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.png")
			err := Write(path, tt.width, tt.height, tt.bitDepth, tt.mode, make([]byte, tt.pixLen))
			if err == nil {
				t.Error("Write() should have failed")
			}
		})
	}
}

func TestReadRGBA64RejectsEightBit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wrong.png")
	if err := Write(path, 2, 2, 8, ModeRGB, make([]byte, 12)); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if _, _, _, err := ReadRGBA64(path); err == nil {
		t.Error("ReadRGBA64() should reject an 8-bit image")
	}
}

func TestReadRGBA64MissingFile(t *testing.T) {
	if _, _, _, err := ReadRGBA64(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Error("ReadRGBA64() should fail for a missing file")
	}
}
