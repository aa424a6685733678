// Package analysis drives single-pass detection over PCM audio streams.
//
// A Pipeline reads interleaved frames from a Source and fans each frame
// out to a set of Detectors. Detectors accumulate state per frame, close
// out in Finish, and contribute their findings to a report. The per-frame
// path never blocks on I/O; sinks are written during Finish only.
package analysis

import (
	"errors"
	"fmt"
	"io"

	"github.com/audioqc/wavescan/internal/report"
)

// Sentinel marks "no measurement" in data arrays. Values at or below it
// are excluded from min/max scans by explicit comparison but are kept in
// the data itself.
const Sentinel = -1e9

// Status is the detection outcome byte. Bits OR-combine across detectors
// and across files; zero is a clean pass.
type Status byte

const (
	// StatusUnderrun is set when any channel carried a zero-sample run
	// at or above the configured length.
	StatusUnderrun Status = 1 << 0
	// StatusSilence is set when the silent share of the stream reached
	// the configured percentage.
	StatusSilence Status = 1 << 1
)

// Has reports whether all bits of flag are set.
func (s Status) Has(flag Status) bool {
	return s&flag == flag
}

func (s Status) String() string {
	if s == 0 {
		return "clean"
	}
	var parts []string
	if s.Has(StatusUnderrun) {
		parts = append(parts, "underrun")
	}
	if s.Has(StatusSilence) {
		parts = append(parts, "silence")
	}
	if rest := s &^ (StatusUnderrun | StatusSilence); rest != 0 {
		parts = append(parts, fmt.Sprintf("0b%04b", byte(rest)))
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += "+" + p
	}
	return out
}

// Frame is one sample per channel at a single time index. Samples is a
// view into the pipeline's chunk buffer and is only valid for the
// duration of the Analyse call; detectors copy anything they retain.
type Frame struct {
	Index   int
	Samples []float64
}

// Event is a detector state transition worth surfacing while a run is in
// flight, such as a silence edge or a closed underrun.
type Event struct {
	Frame   int
	Message string
}

// EventFunc receives detector events. A nil EventFunc discards them.
type EventFunc func(Event)

func (f EventFunc) send(frame int, message string) {
	if f != nil {
		f(Event{Frame: frame, Message: message})
	}
}

// ProgressFunc receives decimated progress updates during a run.
type ProgressFunc func(frame, total int)

// Source yields interleaved PCM frames, normalized to [-1, 1).
type Source interface {
	// ReadFrames fills buf with interleaved samples and returns the
	// count read, always a multiple of Channels(). io.EOF ends the
	// stream.
	ReadFrames(buf []float64) (int, error)
	SampleRate() int
	Channels() int
	NumFrames() int
}

// Detector consumes every frame of a run exactly once, in index order.
type Detector interface {
	Name() string
	// Analyse processes one frame. It must not abort the run; recovered
	// measurement failures substitute Sentinel and log a warning.
	Analyse(fr Frame)
	// Finish closes any open state and returns the detector's status
	// bits. It runs exactly once, after the final frame.
	Finish() Status
	// Contribute fills the detector's section of the report.
	Contribute(rep *report.Report)
}

const chunkFrames = 4096

// Pipeline streams a source through a set of detectors in registration
// order. A pipeline runs once.
type Pipeline struct {
	source    Source
	detectors []Detector
	ran       bool
}

// NewPipeline validates the source against the detector set.
func NewPipeline(source Source, detectors ...Detector) (*Pipeline, error) {
	if len(detectors) == 0 {
		return nil, errors.New("no detectors registered")
	}
	if source.Channels() < 1 {
		return nil, fmt.Errorf("source reports %d channels", source.Channels())
	}
	return &Pipeline{source: source, detectors: detectors}, nil
}

// Run streams every frame of the source through every detector, then
// finalizes each detector and returns the combined status byte. The
// progress callback, if non-nil, fires at least every 1/1000th of the
// input and once at the end.
func (p *Pipeline) Run(progress ProgressFunc) (Status, error) {
	if p.ran {
		return 0, errors.New("pipeline has already run")
	}
	p.ran = true

	channels := p.source.Channels()
	total := p.source.NumFrames()
	step := max(total/1000, 1)

	buf := make([]float64, chunkFrames*channels)
	frame := 0
	for {
		n, err := p.source.ReadFrames(buf)
		for off := 0; off+channels <= n; off += channels {
			fr := Frame{Index: frame, Samples: buf[off : off+channels]}
			for _, d := range p.detectors {
				d.Analyse(fr)
			}
			frame++
			if progress != nil && (frame%step == 0 || frame == total) {
				progress(frame, total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read audio: %w", err)
		}
	}

	var status Status
	for _, d := range p.detectors {
		status |= d.Finish()
	}
	return status, nil
}

// Contribute fills the report with every detector's findings. Call it
// after Run.
func (p *Pipeline) Contribute(rep *report.Report) {
	for _, d := range p.detectors {
		d.Contribute(rep)
	}
}
