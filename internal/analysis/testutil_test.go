package analysis

import (
	"io"
	"math"
	"testing"

	"github.com/audioqc/wavescan/internal/report"
)

// memSource serves interleaved samples from memory through the Source
// interface, in chunks shaped like the real reader's.
type memSource struct {
	samples  []float64
	channels int
	rate     int
	pos      int
}

func newMemSource(t *testing.T, channels, rate int, samples []float64) *memSource {
	t.Helper()
	if len(samples)%channels != 0 {
		t.Fatalf("test samples (%d) not aligned to %d channels", len(samples), channels)
	}
	return &memSource{samples: samples, channels: channels, rate: rate}
}

func (s *memSource) ReadFrames(buf []float64) (int, error) {
	if s.pos >= len(s.samples) {
		return 0, io.EOF
	}
	n := copy(buf, s.samples[s.pos:])
	n -= n % s.channels
	s.pos += n
	return n, nil
}

func (s *memSource) SampleRate() int { return s.rate }
func (s *memSource) Channels() int   { return s.channels }
func (s *memSource) NumFrames() int  { return len(s.samples) / s.channels }

// monoTone renders a sine of the given frequency and amplitude.
func monoTone(frames, rate int, freq, amp float64) []float64 {
	out := make([]float64, frames)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return out
}

// feedFrames drives a detector directly, one frame at a time.
func feedFrames(d Detector, channels int, samples []float64) {
	for off, index := 0, 0; off+channels <= len(samples); off, index = off+channels, index+1 {
		d.Analyse(Frame{Index: index, Samples: samples[off : off+channels]})
	}
}

// eventRecorder captures emitted events for assertions.
type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) fn() EventFunc {
	return func(e Event) { r.events = append(r.events, e) }
}

// newReport is a fresh report sized for the given stream.
func newReport(channels, rate, frames int) *report.Report {
	return report.New("test.wav", rate, channels, frames)
}
