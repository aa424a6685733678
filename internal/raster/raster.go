// Package raster writes analysis images as PNG files and reads raw
// spectrogram containers back for re-visualization.
package raster

import (
	"fmt"
	"image"
	"image/png"
	"os"
)

// ColorMode selects the pixel layout of a raster write.
type ColorMode int

const (
	// ModeRGB stores three samples per pixel.
	ModeRGB ColorMode = iota
	// ModeRGBA stores four samples per pixel. With 16-bit depth the
	// sample bytes pass through the PNG untouched, which is what the
	// raw float64 spectrogram container relies on.
	ModeRGBA
)

func (m ColorMode) channels() int {
	if m == ModeRGBA {
		return 4
	}
	return 3
}

// String returns the mode name for error messages.
func (m ColorMode) String() string {
	if m == ModeRGBA {
		return "RGBA"
	}
	return "RGB"
}

// Write encodes pix as a PNG at the given geometry. Bit depth must be
// 8 or 16; pix length must equal width*height*channels*(bitDepth/8).
func Write(path string, width, height, bitDepth int, mode ColorMode, pix []byte) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid raster dimensions %dx%d", width, height)
	}
	if bitDepth != 8 && bitDepth != 16 {
		return fmt.Errorf("unsupported raster bit depth %d", bitDepth)
	}
	need := width * height * mode.channels() * bitDepth / 8
	if len(pix) != need {
		return fmt.Errorf("%d pixel bytes for %dx%d %d-bit %s, want %d",
			len(pix), width, height, bitDepth, mode, need)
	}

	var img image.Image
	if bitDepth == 16 {
		im := image.NewNRGBA64(image.Rect(0, 0, width, height))
		fillPix(im.Pix, pix, mode, 2)
		img = im
	} else {
		im := image.NewNRGBA(image.Rect(0, 0, width, height))
		fillPix(im.Pix, pix, mode, 1)
		img = im
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// fillPix copies source samples into an RGBA destination, synthesizing
// opaque alpha when the source has no alpha channel.
func fillPix(dst, src []byte, mode ColorMode, bytesPerSample int) {
	if mode == ModeRGBA {
		copy(dst, src)
		return
	}
	rgb := 3 * bytesPerSample
	rgba := 4 * bytesPerSample
	for i, o := 0, 0; i < len(src); i, o = i+rgb, o+rgba {
		copy(dst[o:o+rgb], src[i:i+rgb])
		for a := o + rgb; a < o+rgba; a++ {
			dst[a] = 0xFF
		}
	}
}

// ReadRGBA64 reads back a 16-bit RGBA PNG written by Write, returning
// the raw pixel bytes and the image dimensions.
func ReadRGBA64(path string) ([]byte, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	var (
		pix    []byte
		stride int
		bounds = img.Bounds()
	)
	switch im := img.(type) {
	case *image.NRGBA64:
		pix, stride = im.Pix, im.Stride
	case *image.RGBA64:
		// Fully opaque images decode to the premultiplied type; with
		// alpha at 0xFFFF the sample bytes are identical.
		pix, stride = im.Pix, im.Stride
	default:
		return nil, 0, 0, fmt.Errorf("%s is not a 16-bit RGBA image", path)
	}

	width := bounds.Dx()
	height := bounds.Dy()
	rowBytes := width * 8
	out := make([]byte, rowBytes*height)
	for y := 0; y < height; y++ {
		copy(out[y*rowBytes:(y+1)*rowBytes], pix[y*stride:y*stride+rowBytes])
	}
	return out, width, height, nil
}
