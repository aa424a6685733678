// Package spectral computes Hann-windowed log-power spectra on top of
// gonum's real FFT.
package spectral

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// powerFloor clamps spectral power before the log so digital silence
// maps to -200 dB instead of -Inf.
const powerFloor = 1e-20

// Transformer turns fixed-size sample windows into log-power spectra.
// It is not safe for concurrent use; each analysis channel set shares
// one instance on the single analysis goroutine.
type Transformer struct {
	size    int
	fft     *fourier.FFT
	win     window.Values
	scratch []float64
	coefs   []complex128
}

// NewTransformer creates a transformer for the given window size.
func NewTransformer(size int) (*Transformer, error) {
	if size < 2 {
		return nil, fmt.Errorf("FFT size %d too small", size)
	}
	return &Transformer{
		size:    size,
		fft:     fourier.NewFFT(size),
		win:     window.NewValues(window.Hann, size),
		scratch: make([]float64, size),
		coefs:   make([]complex128, size/2+1),
	}, nil
}

// Size returns the transform window length in samples.
func (t *Transformer) Size() int { return t.size }

// Bins returns the number of frequency bins per slice (size/2 + 1).
func (t *Transformer) Bins() int { return t.size/2 + 1 }

// BinFrequency returns the center frequency of bin at the given rate.
func (t *Transformer) BinFrequency(bin, sampleRate int) float64 {
	return float64(bin) * float64(sampleRate) / float64(t.size)
}

// LogPower computes the Hann-windowed log-power spectrum of seg,
// zero-padding it to the window size. The result is appended to dst
// (pass nil to allocate) and holds Bins() values in dB.
func (t *Transformer) LogPower(dst []float64, seg []float64) ([]float64, error) {
	if len(seg) > t.size {
		return nil, fmt.Errorf("segment of %d samples exceeds window size %d", len(seg), t.size)
	}

	n := copy(t.scratch, seg)
	for i := n; i < t.size; i++ {
		t.scratch[i] = 0
	}
	t.win.Transform(t.scratch)
	t.fft.Coefficients(t.coefs, t.scratch)

	for _, c := range t.coefs {
		p := real(c)*real(c) + imag(c)*imag(c)
		if p < powerFloor {
			p = powerFloor
		}
		dst = append(dst, 10.0*math.Log10(p))
	}
	return dst, nil
}

// STFT computes the short-time log-power spectrogram of a whole signal
// with 50% overlapping hops. The trailing partial window is zero-padded,
// never dropped, so a non-empty signal of n samples yields
// ceil(n / (size/2)) slices.
func (t *Transformer) STFT(signal []float64) ([][]float64, error) {
	hop := t.size / 2
	var slices [][]float64
	for start := 0; start < len(signal); start += hop {
		end := start + t.size
		if end > len(signal) {
			end = len(signal)
		}
		slice, err := t.LogPower(nil, signal[start:end])
		if err != nil {
			return nil, err
		}
		slices = append(slices, slice)
	}
	return slices, nil
}
