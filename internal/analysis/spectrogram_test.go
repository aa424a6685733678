package analysis

import (
	"encoding/binary"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/audioqc/wavescan/internal/raster"
)

func spectroConfig(channels, frames, size int, mode string) SpectrogramConfig {
	return SpectrogramConfig{
		SampleRate: 48000,
		Channels:   channels,
		NumFrames:  frames,
		Size:       size,
		Mode:       mode,
	}
}

// binTone puts all energy into one FFT bin of a size-sample window.
func binTone(frames, size, bin int) []float64 {
	out := make([]float64, frames)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * float64(bin) * float64(i) / float64(size))
	}
	return out
}

func TestFramewiseSliceCount(t *testing.T) {
	tests := []struct {
		name       string
		frames     int
		wantSlices int
	}{
		{"empty", 0, 0},
		{"partial_only", 10, 1},
		{"exact_multiple", 128, 2},
		{"one_extra_sample", 129, 3},
		{"mid_window", 130, 3},
	}

	const size, channels = 64, 2
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewSpectrogram(spectroConfig(channels, tt.frames, size, SpectroFramewise))
			if err != nil {
				t.Fatalf("NewSpectrogram() error: %v", err)
			}
			feedFrames(d, channels, make([]float64, tt.frames*channels))
			d.Finish()

			wantValues := tt.wantSlices * channels * (size/2 + 1)
			if len(d.rows) != wantValues {
				t.Errorf("rows hold %d values, want %d (%d slices)", len(d.rows), wantValues, tt.wantSlices)
			}
		})
	}
}

func TestSTFTRowLayout(t *testing.T) {
	const size, bin = 64, 8
	// Channel 0 carries a tone at one bin, channel 1 is silent.
	tone := binTone(size, size, bin)
	samples := make([]float64, size*2)
	for i := 0; i < size; i++ {
		samples[i*2] = tone[i]
	}

	d, err := NewSpectrogram(spectroConfig(2, size, size, SpectroSTFT))
	if err != nil {
		t.Fatalf("NewSpectrogram() error: %v", err)
	}
	feedFrames(d, 2, samples)
	d.Finish()

	bins := size/2 + 1
	// hop of size/2 over 64 frames gives two slices.
	if len(d.rows) != 2*2*bins {
		t.Fatalf("rows hold %d values, want %d", len(d.rows), 2*2*bins)
	}

	ch0 := d.rows[:bins]
	peak := 0
	for i, v := range ch0 {
		if v > ch0[peak] {
			peak = i
		}
	}
	if peak != bin {
		t.Errorf("channel 0 peak bin = %d, want %d", peak, bin)
	}

	for i, v := range d.rows[bins : 2*bins] {
		if v > -199 {
			t.Fatalf("silent channel bin %d = %v, want near the floor", i, v)
		}
	}
}

func TestSpectrogramRawRoundTrip(t *testing.T) {
	const size = 16
	path := filepath.Join(t.TempDir(), "fft.png")

	cfg := spectroConfig(1, size, size, SpectroFramewise)
	cfg.RawPath = path
	d, err := NewSpectrogram(cfg)
	if err != nil {
		t.Fatalf("NewSpectrogram() error: %v", err)
	}
	feedFrames(d, 1, binTone(size, size, 3))
	d.Finish()

	pix, w, h, err := raster.ReadRGBA64(path)
	if err != nil {
		t.Fatalf("ReadRGBA64() error: %v", err)
	}
	bins := size/2 + 1
	if w != bins || h != 1 {
		t.Fatalf("raw container = %dx%d, want %dx1", w, h, bins)
	}

	for i := 0; i < bins; i++ {
		got := math.Float64frombits(binary.LittleEndian.Uint64(pix[i*8:]))
		if got != d.rows[i] {
			t.Errorf("bin %d round-tripped as %v, want %v", i, got, d.rows[i])
		}
	}
}

func TestSpectrogramVisualizationWritten(t *testing.T) {
	const size = 16
	path := filepath.Join(t.TempDir(), "fft-vis.png")

	cfg := spectroConfig(1, size*2, size, SpectroFramewise)
	cfg.VisPath = path
	d, err := NewSpectrogram(cfg)
	if err != nil {
		t.Fatalf("NewSpectrogram() error: %v", err)
	}
	feedFrames(d, 1, binTone(size*2, size, 3))
	d.Finish()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("visualization not written: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	// Two slices of 9 bins, rotated a quarter turn.
	b := img.Bounds()
	if b.Dx() != 2 || b.Dy() != size/2+1 {
		t.Errorf("visualization = %dx%d, want 2x%d", b.Dx(), b.Dy(), size/2+1)
	}

	rep := newReport(1, 48000, size*2)
	d.Contribute(rep)
	if rep.Analysis.FFT == nil || rep.Analysis.FFT.Results.Visualization == "" {
		t.Errorf("visualization path missing from report: %+v", rep.Analysis.FFT)
	}
}

func TestSpectrogramContributeWithoutSinks(t *testing.T) {
	d, err := NewSpectrogram(spectroConfig(1, 16, 16, SpectroFramewise))
	if err != nil {
		t.Fatalf("NewSpectrogram() error: %v", err)
	}
	feedFrames(d, 1, make([]float64, 16))
	d.Finish()

	rep := newReport(1, 48000, 16)
	d.Contribute(rep)

	fft := rep.Analysis.FFT
	if fft == nil {
		t.Fatal("fft section missing")
	}
	if fft.Size != 16 {
		t.Errorf("size = %d, want 16", fft.Size)
	}
	if fft.Results.Output != "" || fft.Results.Visualization != "" {
		t.Errorf("no outputs expected, got %+v", fft.Results)
	}
}

func TestNewSpectrogramValidation(t *testing.T) {
	if _, err := NewSpectrogram(spectroConfig(1, 16, 16, "windowed")); err == nil {
		t.Error("unknown mode should have failed")
	}
	if _, err := NewSpectrogram(spectroConfig(0, 16, 16, SpectroSTFT)); err == nil {
		t.Error("zero channels should have failed")
	}
	if _, err := NewSpectrogram(spectroConfig(1, 16, 1, SpectroSTFT)); err == nil {
		t.Error("fft size below two should have failed")
	}
}
