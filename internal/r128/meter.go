// Package r128 implements ITU-R BS.1770 loudness measurement with
// EBU R128 gating. Loudness values are LUFS (loudness units relative
// to digital full scale).
package r128

import (
	"errors"
	"fmt"
	"math"
)

// AbsoluteGateLUFS is the absolute gating threshold for integrated
// loudness per EBU R128.
const AbsoluteGateLUFS = -70.0

// relativeGateLU is the relative gate offset below the first-stage
// gated loudness.
const relativeGateLU = 10.0

// surroundWeight is the BS.1770 channel weight for surround positions.
const surroundWeight = 1.41

// K-weighting prototype parameters, recomputed per sample rate.
const (
	shelfF0 = 1681.974450955533
	shelfG  = 3.999843853973347
	shelfQ  = 0.7071752369554196
	hpF0    = 38.13547087602444
	hpQ     = 0.5003270373238773
)

// biquad holds second-order IIR filter coefficients.
type biquad struct {
	b0, b1, b2, a1, a2 float64
}

// biquadState is per-channel direct form I filter memory.
type biquadState struct {
	x1, x2, y1, y2 float64
}

func (f *biquad) process(s *biquadState, x float64) float64 {
	y := f.b0*x + f.b1*s.x1 + f.b2*s.x2 - f.a1*s.y1 - f.a2*s.y2
	s.x2, s.x1 = s.x1, x
	s.y2, s.y1 = s.y1, y
	return y
}

// newShelf builds the stage-one high-shelf (head acoustics) filter.
func newShelf(sampleRate int) biquad {
	k := math.Tan(math.Pi * shelfF0 / float64(sampleRate))
	vh := math.Pow(10.0, shelfG/20.0)
	vb := math.Pow(vh, 0.4996667741545416)
	a0 := 1.0 + k/shelfQ + k*k
	return biquad{
		b0: (vh + vb*k/shelfQ + k*k) / a0,
		b1: 2.0 * (k*k - vh) / a0,
		b2: (vh - vb*k/shelfQ + k*k) / a0,
		a1: 2.0 * (k*k - 1.0) / a0,
		a2: (1.0 - k/shelfQ + k*k) / a0,
	}
}

// newHighpass builds the stage-two RLB high-pass filter.
func newHighpass(sampleRate int) biquad {
	k := math.Tan(math.Pi * hpF0 / float64(sampleRate))
	a0 := 1.0 + k/hpQ + k*k
	return biquad{
		b0: 1.0,
		b1: -2.0,
		b2: 1.0,
		a1: 2.0 * (k*k - 1.0) / a0,
		a2: (1.0 - k/hpQ + k*k) / a0,
	}
}

// channelWeights returns the BS.1770 weight per channel position.
// Layout conventions follow libebur128 defaults: 4ch = L/R/Ls/Rs,
// 5ch = L/R/C/Ls/Rs, 6ch = 5.1 with the LFE (index 3) excluded.
func channelWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0
	}
	switch {
	case n == 4:
		w[2], w[3] = surroundWeight, surroundWeight
	case n == 5:
		w[3], w[4] = surroundWeight, surroundWeight
	case n >= 6:
		w[3] = 0.0
		w[4], w[5] = surroundWeight, surroundWeight
	}
	return w
}

// Meter measures K-weighted loudness over interleaved float frames.
//
// Reset clears only the block accumulator used by Shortterm, so a caller
// can measure disjoint windows while the filter state and the gating
// history for Integrated keep running across the whole signal.
type Meter struct {
	sampleRate int
	channels   int
	weights    []float64
	shelf      biquad
	highpass   biquad
	shelfState []biquadState
	hpState    []biquadState

	// Shortterm accumulation since the last Reset.
	blockSum    float64 // channel-weighted sum of squared filtered samples
	blockFrames int

	// Integrated gating accumulation, 100ms steps.
	stepLen    int
	stepSums   []float64
	curStepSum float64
	curStepLen int
}

// NewMeter creates a loudness meter for the given channel count and
// sample rate.
func NewMeter(channels, sampleRate int) (*Meter, error) {
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	if sampleRate < 8000 {
		return nil, fmt.Errorf("sample rate %d Hz too low for loudness measurement", sampleRate)
	}
	return &Meter{
		sampleRate: sampleRate,
		channels:   channels,
		weights:    channelWeights(channels),
		shelf:      newShelf(sampleRate),
		highpass:   newHighpass(sampleRate),
		shelfState: make([]biquadState, channels),
		hpState:    make([]biquadState, channels),
		stepLen:    (sampleRate + 5) / 10,
	}, nil
}

// Channels returns the configured channel count.
func (m *Meter) Channels() int { return m.channels }

// Reset clears the Shortterm window accumulator.
func (m *Meter) Reset() {
	m.blockSum = 0
	m.blockFrames = 0
}

// AddFrames feeds interleaved samples through the K-weighting filters and
// into both the window and gating accumulators.
func (m *Meter) AddFrames(interleaved []float64) error {
	if len(interleaved)%m.channels != 0 {
		return fmt.Errorf("sample count %d not a multiple of %d channels", len(interleaved), m.channels)
	}

	for i := 0; i < len(interleaved); i += m.channels {
		var frameSum float64
		for ch := 0; ch < m.channels; ch++ {
			y := m.shelf.process(&m.shelfState[ch], interleaved[i+ch])
			y = m.highpass.process(&m.hpState[ch], y)
			frameSum += m.weights[ch] * y * y
		}

		m.blockSum += frameSum
		m.blockFrames++

		m.curStepSum += frameSum
		m.curStepLen++
		if m.curStepLen == m.stepLen {
			m.stepSums = append(m.stepSums, m.curStepSum)
			m.curStepSum = 0
			m.curStepLen = 0
		}
	}
	return nil
}

// Shortterm returns the loudness of everything added since the last
// Reset. Zero energy yields -Inf. Calling it before any frames were
// added is an error.
func (m *Meter) Shortterm() (float64, error) {
	if m.blockFrames == 0 {
		return 0, errors.New("no frames in measurement window")
	}
	return loudness(m.blockSum / float64(m.blockFrames)), nil
}

// Integrated returns the gated whole-signal loudness over all frames
// added so far, per EBU R128: 400ms blocks with 75% overlap, -70 LUFS
// absolute gate, then a -10 LU relative gate. Returns -Inf until enough
// gated audio has accumulated.
func (m *Meter) Integrated() float64 {
	// 400ms blocks advance one 100ms step at a time.
	if len(m.stepSums) < 4 {
		return math.Inf(-1)
	}
	blockLen := float64(4 * m.stepLen)

	var absSum float64
	var absCount int
	powers := make([]float64, 0, len(m.stepSums)-3)
	for j := 0; j+4 <= len(m.stepSums); j++ {
		p := (m.stepSums[j] + m.stepSums[j+1] + m.stepSums[j+2] + m.stepSums[j+3]) / blockLen
		powers = append(powers, p)
		if loudness(p) > AbsoluteGateLUFS {
			absSum += p
			absCount++
		}
	}
	if absCount == 0 {
		return math.Inf(-1)
	}

	relGate := loudness(absSum/float64(absCount)) - relativeGateLU
	var relSum float64
	var relCount int
	for _, p := range powers {
		if loudness(p) > relGate {
			relSum += p
			relCount++
		}
	}
	if relCount == 0 {
		return math.Inf(-1)
	}
	return loudness(relSum / float64(relCount))
}

// loudness converts channel-weighted mean square power to LUFS.
func loudness(power float64) float64 {
	return -0.691 + 10.0*math.Log10(power)
}
