package analysis

import (
	"fmt"
	"math"

	"github.com/audioqc/wavescan/internal/report"
)

// humHarmonics is how many multiples of the mains fundamental are
// scanned, the fundamental included.
const humHarmonics = 3

// humVerdictDB is the hum-to-signal ratio at which a channel counts as
// carrying audible mains hum.
const humVerdictDB = -30.0

// HumConfig configures mains hum detection.
type HumConfig struct {
	SampleRate int
	Channels   int
	NumFrames  int

	// Frequency is the mains fundamental in Hz, typically 50 or 60.
	Frequency int
	// Timezone names the zone the fundamental was resolved from, for
	// the report. Empty when the frequency was forced by hand.
	Timezone string
}

// goertzel is a single-bin DFT evaluated by recurrence, cheap enough to
// run per sample in the hot loop.
type goertzel struct {
	coeff  float64
	s1, s2 float64
}

func newGoertzel(frequency, sampleRate int) goertzel {
	return goertzel{coeff: 2 * math.Cos(2*math.Pi*float64(frequency)/float64(sampleRate))}
}

func (g *goertzel) feed(sample float64) {
	s0 := sample + g.coeff*g.s1 - g.s2
	g.s2 = g.s1
	g.s1 = s0
}

// power is the squared magnitude of the bin after n samples.
func (g *goertzel) power() float64 {
	return g.s1*g.s1 + g.s2*g.s2 - g.coeff*g.s1*g.s2
}

func (g *goertzel) reset() {
	g.s1, g.s2 = 0, 0
}

// Hum scans each channel for electrical mains hum at the fundamental
// and its first harmonics, over one-second windows. It contributes a
// per-channel hum-to-signal ratio and a verdict to the report; hum never
// sets a status bit.
type Hum struct {
	cfg       HumConfig
	bins      [][]goertzel // [channel][harmonic]
	humSum    []float64    // per channel
	signalSum []float64    // per channel
	fill      int
	window    int
}

// NewHum builds the detector. Harmonics at or above the Nyquist
// frequency are dropped; the fundamental itself must fit.
func NewHum(cfg HumConfig) (*Hum, error) {
	if cfg.Channels < 1 {
		return nil, fmt.Errorf("hum detector needs at least one channel, got %d", cfg.Channels)
	}
	if cfg.Frequency < 1 {
		return nil, fmt.Errorf("hum fundamental must be positive, got %d Hz", cfg.Frequency)
	}
	if cfg.Frequency*2 > cfg.SampleRate {
		return nil, fmt.Errorf("hum fundamental %d Hz does not fit below half the sample rate %d", cfg.Frequency, cfg.SampleRate)
	}

	d := &Hum{
		cfg:       cfg,
		bins:      make([][]goertzel, cfg.Channels),
		humSum:    make([]float64, cfg.Channels),
		signalSum: make([]float64, cfg.Channels),
		window:    cfg.SampleRate,
	}
	for ch := range d.bins {
		for h := 1; h <= humHarmonics; h++ {
			f := cfg.Frequency * h
			if f*2 > cfg.SampleRate {
				break
			}
			d.bins[ch] = append(d.bins[ch], newGoertzel(f, cfg.SampleRate))
		}
	}
	return d, nil
}

func (d *Hum) Name() string { return "hum" }

func (d *Hum) Analyse(fr Frame) {
	for ch, sample := range fr.Samples {
		d.signalSum[ch] += sample * sample
		for i := range d.bins[ch] {
			d.bins[ch][i].feed(sample)
		}
	}
	d.fill++
	if d.fill == d.window {
		d.closeWindow()
	}
}

// closeWindow folds each channel's bin powers into the running hum
// energy and restarts the recurrences.
func (d *Hum) closeWindow() {
	// A DFT bin holds n/2 times the energy of a full-scale tone at
	// that bin, so scale bin powers back to sample-energy terms.
	scale := 2 / float64(d.window)
	for ch := range d.bins {
		for i := range d.bins[ch] {
			d.humSum[ch] += d.bins[ch][i].power() * scale
			d.bins[ch][i].reset()
		}
	}
	d.fill = 0
}

// Finish zero-pads the trailing partial window to full size before
// closing it.
func (d *Hum) Finish() Status {
	if d.fill > 0 {
		for ; d.fill < d.window; d.fill++ {
			for ch := range d.bins {
				for i := range d.bins[ch] {
					d.bins[ch][i].feed(0)
				}
			}
		}
		d.closeWindow()
	}
	return 0
}

// Contribute records per-channel ratios and the overall verdict.
func (d *Hum) Contribute(rep *report.Report) {
	section := &report.HumSection{
		Frequency: d.cfg.Frequency,
		Timezone:  d.cfg.Timezone,
	}
	for ch := range d.bins {
		ratio := d.ratio(ch)
		if ratio >= humVerdictDB {
			section.Detected = true
		}
		section.Channels = append(section.Channels, report.HumChannel{
			Channel: ch,
			Ratio:   report.LUFS(ratio),
		})
	}
	rep.Analysis.Hum = section
}

// ratio is the channel's hum-to-signal energy ratio in dB. A channel
// without signal energy has no measurable hum.
func (d *Hum) ratio(ch int) float64 {
	if d.signalSum[ch] <= 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(d.humSum[ch]/d.signalSum[ch])
}
