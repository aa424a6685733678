package analysis

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	"github.com/audioqc/wavescan/internal/raster"
	"github.com/audioqc/wavescan/internal/report"
)

// dbfsFloor keeps exact-zero samples out of the logarithm.
const dbfsFloor = 1e-20

// PeaksConfig configures per-sample peak extraction.
type PeaksConfig struct {
	SampleRate int
	Channels   int
	NumFrames  int

	// Path receives every channel's per-sample dBFS values as raw
	// float64 bytes in a PNG container.
	Path string
}

// Peaks records the dBFS level of every sample. At finish each channel
// is folded into a square raster of side ceil(sqrt(samples)), padded
// with -Inf, and the channel squares are stacked vertically.
type Peaks struct {
	cfg   PeaksConfig
	peaks [][]float64
	out   string
}

func NewPeaks(cfg PeaksConfig) (*Peaks, error) {
	if cfg.Channels < 1 {
		return nil, fmt.Errorf("peaks detector needs at least one channel, got %d", cfg.Channels)
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("peaks detector needs an output path")
	}
	return &Peaks{
		cfg:   cfg,
		peaks: make([][]float64, cfg.Channels),
	}, nil
}

func (d *Peaks) Name() string { return "peaks" }

func (d *Peaks) Analyse(fr Frame) {
	for ch, sample := range fr.Samples {
		d.peaks[ch] = append(d.peaks[ch], dbfs(sample))
	}
}

// dbfs is the sample's level relative to full scale.
func dbfs(sample float64) float64 {
	return 20 * math.Log10(max(math.Abs(sample), dbfsFloor))
}

// Finish writes the stacked channel squares. Write failures are
// reported and leave the status bits alone.
func (d *Peaks) Finish() Status {
	n := len(d.peaks[0])
	if n == 0 {
		slog.Warn("no samples, peaks output skipped", "path", d.cfg.Path)
		return 0
	}

	side := squareSide(n)
	pix := make([]byte, 0, d.cfg.Channels*side*side*8)
	var b [8]byte
	for _, channel := range d.peaks {
		for _, peak := range channel {
			binary.LittleEndian.PutUint64(b[:], math.Float64bits(peak))
			pix = append(pix, b[:]...)
		}
		for i := len(channel); i < side*side; i++ {
			binary.LittleEndian.PutUint64(b[:], math.Float64bits(math.Inf(-1)))
			pix = append(pix, b[:]...)
		}
	}

	if err := raster.Write(d.cfg.Path, side, side*d.cfg.Channels, 16, raster.ModeRGBA, pix); err != nil {
		slog.Error("could not write peaks output", "path", d.cfg.Path, "error", err)
		return 0
	}
	d.out = absOr(d.cfg.Path)
	return 0
}

// Contribute records the square geometry when the output was written.
func (d *Peaks) Contribute(rep *report.Report) {
	if d.out == "" {
		return
	}
	n := len(d.peaks[0])
	side := squareSide(n)
	rep.Analysis.Peaks = &report.PeaksSection{
		Output:      d.out,
		ChannelSize: n,
		SquareSize:  side * side,
		Padding:     side*side - n,
	}
}

// squareSide is the smallest square side covering n values.
func squareSide(n int) int {
	return int(math.Ceil(math.Sqrt(float64(n))))
}
