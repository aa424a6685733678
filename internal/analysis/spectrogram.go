package analysis

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/audioqc/wavescan/internal/raster"
	"github.com/audioqc/wavescan/internal/report"
	"github.com/audioqc/wavescan/internal/spectral"
)

// Spectrogram analysis modes.
const (
	// SpectroSTFT collects whole channel signals and runs an
	// overlapping short-time transform at finish.
	SpectroSTFT = "stft"
	// SpectroFramewise transforms each filled window as the stream
	// runs, without overlap.
	SpectroFramewise = "framewise"
)

// SpectrogramConfig configures spectral analysis and its sinks. Empty
// sink paths disable the corresponding output.
type SpectrogramConfig struct {
	SampleRate int
	Channels   int
	NumFrames  int

	Size int
	Mode string

	// RawPath receives the log-power rows as little-endian float64
	// bytes packed into a 16-bit RGBA PNG container.
	RawPath string
	// VisPath receives the rendered heat map.
	VisPath string
}

// Spectrogram computes per-channel log-power spectra. Rows are
// slice-major with the channels' bins concatenated, so one row holds one
// time slice across all channels.
type Spectrogram struct {
	cfg SpectrogramConfig
	tr  *spectral.Transformer

	// framewise state
	window [][]float64
	fill   int

	// stft state
	signals [][]float64

	rows   []float64
	rawOut string
	visOut string
}

// NewSpectrogram builds the detector. Mode must be one of SpectroSTFT
// or SpectroFramewise.
func NewSpectrogram(cfg SpectrogramConfig) (*Spectrogram, error) {
	if cfg.Channels < 1 {
		return nil, fmt.Errorf("spectrogram needs at least one channel, got %d", cfg.Channels)
	}
	tr, err := spectral.NewTransformer(cfg.Size)
	if err != nil {
		return nil, err
	}

	d := &Spectrogram{cfg: cfg, tr: tr}
	switch cfg.Mode {
	case SpectroFramewise:
		d.window = make([][]float64, cfg.Channels)
		for ch := range d.window {
			d.window[ch] = make([]float64, 0, cfg.Size)
		}
	case SpectroSTFT:
		d.signals = make([][]float64, cfg.Channels)
	default:
		return nil, fmt.Errorf("unknown spectrogram mode %q", cfg.Mode)
	}
	return d, nil
}

func (d *Spectrogram) Name() string { return "fft" }

// Analyse collects the frame into the mode's buffers. Framewise mode
// transforms in place whenever the window fills.
func (d *Spectrogram) Analyse(fr Frame) {
	if d.signals != nil {
		for ch, sample := range fr.Samples {
			d.signals[ch] = append(d.signals[ch], sample)
		}
		return
	}

	for ch, sample := range fr.Samples {
		d.window[ch] = append(d.window[ch], sample)
	}
	d.fill++
	if d.fill == d.cfg.Size {
		d.appendRow()
	}
}

// appendRow transforms each channel's buffered window into one row.
func (d *Spectrogram) appendRow() {
	for ch := range d.window {
		out, err := d.tr.LogPower(d.rows, d.window[ch])
		if err != nil {
			slog.Warn("spectral transform failed, window skipped", "channel", ch, "error", err)
		} else {
			d.rows = out
		}
		d.window[ch] = d.window[ch][:0]
	}
	d.fill = 0
}

// Finish transforms whatever remains, writes the sinks and reports sink
// failures without touching the status bits.
func (d *Spectrogram) Finish() Status {
	switch {
	case d.signals != nil:
		d.transformSignals()
	case d.fill > 0:
		// LogPower zero-pads the partial window to full size.
		d.appendRow()
	}

	if d.cfg.RawPath != "" {
		if err := d.writeRaw(); err != nil {
			slog.Error("could not write raw spectrogram", "path", d.cfg.RawPath, "error", err)
		} else {
			d.rawOut = absOr(d.cfg.RawPath)
		}
	}

	if d.cfg.VisPath != "" {
		vis := NewVisualization()
		vis.Extend(d.rows)
		err := vis.Render(d.cfg.VisPath, d.rowWidth())
		switch {
		case errors.Is(err, ErrNoVisualData):
			slog.Warn("spectrogram visualization skipped: no valid data to visualize")
		case err != nil:
			slog.Error("could not write spectrogram visualization", "path", d.cfg.VisPath, "error", err)
		default:
			d.visOut = absOr(d.cfg.VisPath)
		}
	}

	return 0
}

// transformSignals runs the overlapping transform per channel and
// interleaves the slices row by row.
func (d *Spectrogram) transformSignals() {
	spectra := make([][][]float64, d.cfg.Channels)
	slices := 0
	for ch := range d.signals {
		out, err := d.tr.STFT(d.signals[ch])
		if err != nil {
			slog.Warn("spectral transform failed, channel skipped", "channel", ch, "error", err)
			continue
		}
		spectra[ch] = out
		slices = len(out)
	}

	for s := 0; s < slices; s++ {
		for ch := 0; ch < d.cfg.Channels; ch++ {
			if spectra[ch] == nil {
				continue
			}
			d.rows = append(d.rows, spectra[ch][s]...)
		}
	}
}

// rowWidth is the pixel width of one time slice across all channels.
func (d *Spectrogram) rowWidth() int {
	return d.cfg.Channels * d.tr.Bins()
}

// writeRaw packs the rows as float64 little-endian bytes into a 16-bit
// RGBA container, one float64 per pixel.
func (d *Spectrogram) writeRaw() error {
	width := d.rowWidth()
	pix := make([]byte, 0, len(d.rows)*8)
	var b [8]byte
	for _, v := range d.rows {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		pix = append(pix, b[:]...)
	}
	height := len(pix) / (width * 8)
	return raster.Write(d.cfg.RawPath, width, height, 16, raster.ModeRGBA, pix)
}

// Contribute records the transform size and whichever sinks were
// actually written.
func (d *Spectrogram) Contribute(rep *report.Report) {
	rep.Analysis.FFT = &report.FFTSection{
		Size: d.cfg.Size,
		Results: report.FFTOutputs{
			Output:        d.rawOut,
			Visualization: d.visOut,
		},
	}
}

// absOr returns the absolute form of path, or the path itself if it
// cannot be resolved.
func absOr(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
