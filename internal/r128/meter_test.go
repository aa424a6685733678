package r128

import (
	"math"
	"testing"
)

// genSine generates interleaved frames with a sine on the listed channels
// and digital silence on the rest.
func genSine(frames, channels, sampleRate int, freq, amp float64, active ...int) []float64 {
	on := make([]bool, channels)
	for _, ch := range active {
		on[ch] = true
	}
	data := make([]float64, frames*channels)
	for i := 0; i < frames; i++ {
		v := amp * math.Sin(2.0*math.Pi*freq*float64(i)/float64(sampleRate))
		for ch := 0; ch < channels; ch++ {
			if on[ch] {
				data[i*channels+ch] = v
			}
		}
	}
	return data
}

func TestShorttermCalibration(t *testing.T) {
	// BS.1770 calibration: a full-scale 997 Hz sine on a single front
	// channel reads -3.01 LUFS. Extra coherent channels add 10*log10(n),
	// amplitude scales by 20*log10(amp), surround positions gain
	// 10*log10(1.41).
	const sampleRate = 48000
	const seconds = 3

	tests := []struct {
		name     string
		channels int
		amp      float64
		active   []int
		want     float64
	}{
		{"full-scale mono", 1, 1.0, []int{0}, -3.01},
		{"full-scale stereo", 2, 1.0, []int{0, 1}, 0.0},
		{"-12 dB mono", 1, 0.25, []int{0}, -15.05},
		{"-20 dB stereo left only", 2, 0.1, []int{0}, -23.01},
		{"surround channel weight", 4, 1.0, []int{3}, -1.52},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMeter(tt.channels, sampleRate)
			if err != nil {
				t.Fatalf("NewMeter() error: %v", err)
			}

			frames := genSine(seconds*sampleRate, tt.channels, sampleRate, 997.0, tt.amp, tt.active...)
			m.Reset()
			if err := m.AddFrames(frames); err != nil {
				t.Fatalf("AddFrames() error: %v", err)
			}

			got, err := m.Shortterm()
			if err != nil {
				t.Fatalf("Shortterm() error: %v", err)
			}
			t.Logf("measured %.3f LUFS, want %.2f", got, tt.want)
			if math.Abs(got-tt.want) > 0.15 {
				t.Errorf("Shortterm() = %.3f LUFS, want %.2f ± 0.15", got, tt.want)
			}
		})
	}
}

func TestShorttermSilenceIsNegInf(t *testing.T) {
	m, err := NewMeter(2, 48000)
	if err != nil {
		t.Fatalf("NewMeter() error: %v", err)
	}

	m.Reset()
	if err := m.AddFrames(make([]float64, 48000*2)); err != nil {
		t.Fatalf("AddFrames() error: %v", err)
	}

	got, err := m.Shortterm()
	if err != nil {
		t.Fatalf("Shortterm() error: %v", err)
	}
	if !math.IsInf(got, -1) {
		t.Errorf("Shortterm() of digital silence = %v, want -Inf", got)
	}
}

func TestShorttermWithoutFramesFails(t *testing.T) {
	m, err := NewMeter(1, 44100)
	if err != nil {
		t.Fatalf("NewMeter() error: %v", err)
	}
	if _, err := m.Shortterm(); err == nil {
		t.Error("Shortterm() on an empty window should fail")
	}
}

func TestResetStartsNewWindow(t *testing.T) {
	const sampleRate = 44100
	m, err := NewMeter(1, sampleRate)
	if err != nil {
		t.Fatalf("NewMeter() error: %v", err)
	}

	m.Reset()
	if err := m.AddFrames(genSine(sampleRate, 1, sampleRate, 997.0, 0.5, 0)); err != nil {
		t.Fatalf("AddFrames() error: %v", err)
	}
	loud, err := m.Shortterm()
	if err != nil {
		t.Fatalf("Shortterm() error: %v", err)
	}

	m.Reset()
	if err := m.AddFrames(genSine(sampleRate, 1, sampleRate, 997.0, 0.001, 0)); err != nil {
		t.Fatalf("AddFrames() error: %v", err)
	}
	quiet, err := m.Shortterm()
	if err != nil {
		t.Fatalf("Shortterm() error: %v", err)
	}

	t.Logf("loud window %.2f LUFS, quiet window %.2f LUFS", loud, quiet)
	if quiet > loud-20.0 {
		t.Errorf("Reset() did not isolate windows: loud=%.2f quiet=%.2f", loud, quiet)
	}
}

func TestIntegratedGatesSilence(t *testing.T) {
	const sampleRate = 48000

	// Half signal, half digital silence.
	signal := genSine(2*sampleRate, 1, sampleRate, 997.0, 0.1, 0)
	silence := make([]float64, 2*sampleRate)

	m, err := NewMeter(1, sampleRate)
	if err != nil {
		t.Fatalf("NewMeter() error: %v", err)
	}
	if err := m.AddFrames(signal); err != nil {
		t.Fatalf("AddFrames() error: %v", err)
	}
	if err := m.AddFrames(silence); err != nil {
		t.Fatalf("AddFrames() error: %v", err)
	}
	integrated := m.Integrated()

	// Reference: ungated loudness of the signal portion alone.
	ref, err := NewMeter(1, sampleRate)
	if err != nil {
		t.Fatalf("NewMeter() error: %v", err)
	}
	ref.Reset()
	if err := ref.AddFrames(signal); err != nil {
		t.Fatalf("AddFrames() error: %v", err)
	}
	signalOnly, err := ref.Shortterm()
	if err != nil {
		t.Fatalf("Shortterm() error: %v", err)
	}

	// Ungated loudness of the whole (signal + silence) is 3 dB lower.
	whole, err := NewMeter(1, sampleRate)
	if err != nil {
		t.Fatalf("NewMeter() error: %v", err)
	}
	whole.Reset()
	if err := whole.AddFrames(signal); err != nil {
		t.Fatalf("AddFrames() error: %v", err)
	}
	if err := whole.AddFrames(silence); err != nil {
		t.Fatalf("AddFrames() error: %v", err)
	}
	ungated, err := whole.Shortterm()
	if err != nil {
		t.Fatalf("Shortterm() error: %v", err)
	}

	t.Logf("integrated %.2f, signal-only %.2f, ungated whole %.2f", integrated, signalOnly, ungated)
	if math.Abs(integrated-signalOnly) > 0.5 {
		t.Errorf("Integrated() = %.2f, want %.2f ± 0.5 (silence gated out)", integrated, signalOnly)
	}
	if integrated < ungated+2.0 {
		t.Errorf("Integrated() = %.2f should sit well above the ungated %.2f", integrated, ungated)
	}
}

func TestIntegratedAllSilence(t *testing.T) {
	m, err := NewMeter(2, 48000)
	if err != nil {
		t.Fatalf("NewMeter() error: %v", err)
	}
	if err := m.AddFrames(make([]float64, 48000*2*2)); err != nil {
		t.Fatalf("AddFrames() error: %v", err)
	}
	if got := m.Integrated(); !math.IsInf(got, -1) {
		t.Errorf("Integrated() of silence = %v, want -Inf", got)
	}
}

func TestAddFramesAlignment(t *testing.T) {
	m, err := NewMeter(2, 48000)
	if err != nil {
		t.Fatalf("NewMeter() error: %v", err)
	}
	if err := m.AddFrames(make([]float64, 3)); err == nil {
		t.Error("AddFrames() should reject sample counts not aligned to the channel count")
	}
}

func TestNewMeterValidation(t *testing.T) {
	tests := []struct {
		name       string
		channels   int
		sampleRate int
	}{
		{"zero channels", 0, 48000},
		{"negative channels", -1, 48000},
		{"tiny sample rate", 2, 4000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMeter(tt.channels, tt.sampleRate); err == nil {
				t.Errorf("NewMeter(%d, %d) should fail", tt.channels, tt.sampleRate)
			}
		})
	}
}

func TestChannelWeightsLayout(t *testing.T) {
	tests := []struct {
		channels int
		want     []float64
	}{
		{1, []float64{1}},
		{2, []float64{1, 1}},
		{3, []float64{1, 1, 1}},
		{4, []float64{1, 1, 1.41, 1.41}},
		{5, []float64{1, 1, 1, 1.41, 1.41}},
		{6, []float64{1, 1, 1, 0, 1.41, 1.41}},
	}

	for _, tt := range tests {
		got := channelWeights(tt.channels)
		if len(got) != len(tt.want) {
			t.Fatalf("channelWeights(%d) length = %d, want %d", tt.channels, len(got), len(tt.want))
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("channelWeights(%d)[%d] = %v, want %v", tt.channels, i, got[i], tt.want[i])
			}
		}
	}
}
