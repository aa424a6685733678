package analysis

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/audioqc/wavescan/internal/r128"
	"github.com/audioqc/wavescan/internal/report"
)

// measurer is the loudness meter surface the detector needs. It is
// satisfied by r128.Meter; tests substitute exact-valued stubs to pin
// down threshold edges.
type measurer interface {
	Reset()
	AddFrames(interleaved []float64) error
	Shortterm() (float64, error)
	Integrated() float64
}

// LoudnessConfig configures the combined silence and loudness detector.
type LoudnessConfig struct {
	SampleRate int
	Channels   int
	NumFrames  int

	// WindowSeconds sets the short-term measurement window.
	WindowSeconds float64

	// RecordWindows keeps every window's loudness for the report.
	RecordWindows bool

	// Silence enables silence detection against SilenceLUFS. A stream
	// whose silent share reaches SilencePercent raises StatusSilence.
	Silence        bool
	SilenceLUFS    float64
	SilencePercent float64

	Emit EventFunc
}

// span is a half-open frame interval. end stays negative while open.
type span struct {
	start, end int
}

// Loudness measures windowed short-term loudness and flags excessive
// silence. Frames fill an interleaved window buffer; each full window is
// measured as one block. Silence edges are evaluated only when a window
// completes, so segment boundaries land on window-completing frame
// indices. Integrated loudness accumulates across the whole stream in
// parallel.
type Loudness struct {
	cfg          LoudnessConfig
	meter        measurer
	buf          []float64
	fill         int
	digits       int
	measured     bool
	prevLUFS     float64
	startFrame   int
	silentCount  int
	segments     []span
	windows      []span
	windowLoud   []float64
	windowFrames int
}

// NewLoudness builds the detector around a BS.1770 meter for the given
// stream layout.
func NewLoudness(cfg LoudnessConfig) (*Loudness, error) {
	meter, err := r128.NewMeter(cfg.Channels, cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("loudness meter: %w", err)
	}
	return newLoudness(cfg, meter)
}

func newLoudness(cfg LoudnessConfig, meter measurer) (*Loudness, error) {
	windowFrames := int(cfg.WindowSeconds * float64(cfg.SampleRate))
	if windowFrames < 1 {
		return nil, errors.New("loudness window shorter than one frame")
	}
	if cfg.Channels < 1 {
		return nil, errors.New("loudness detector needs at least one channel")
	}

	d := &Loudness{
		cfg:          cfg,
		meter:        meter,
		buf:          make([]float64, windowFrames*cfg.Channels),
		digits:       report.LabelDigits(cfg.NumFrames),
		windowFrames: windowFrames,
	}
	if cfg.RecordWindows {
		d.windows = []span{{start: 0, end: -1}}
		d.windowLoud = []float64{0}
	}
	return d, nil
}

func (d *Loudness) Name() string { return "loudness" }

// Integrated returns the integrated loudness of everything analysed so
// far. Callers may poll it between frames for live display.
func (d *Loudness) Integrated() float64 {
	return d.meter.Integrated()
}

// Analyse buffers the frame and measures whenever the window fills.
func (d *Loudness) Analyse(fr Frame) {
	copy(d.buf[d.fill:], fr.Samples)
	d.fill += len(fr.Samples)
	if d.fill < len(d.buf) {
		return
	}
	d.fill = 0
	d.window(fr.Index, d.measure(d.buf))
}

// measure resets the meter and takes the short-term loudness of exactly
// the given block. An unmeasurable block yields -Inf; a meter failure
// yields the sentinel and a warning, never an abort.
func (d *Loudness) measure(block []float64) float64 {
	d.meter.Reset()
	if err := d.meter.AddFrames(block); err != nil {
		slog.Warn("loudness measurement failed", "detector", d.Name(), "error", err)
		return Sentinel
	}
	lufs, err := d.meter.Shortterm()
	if err != nil {
		return math.Inf(-1)
	}
	return lufs
}

// window handles one completed measurement at frame index fi.
func (d *Loudness) window(fi int, lufs float64) {
	if d.cfg.RecordWindows {
		last := len(d.windows) - 1
		d.windows[last].end = fi
		d.windowLoud[last] = lufs
		d.windows = append(d.windows, span{start: fi, end: -1})
		d.windowLoud = append(d.windowLoud, 0)
	}

	if d.cfg.Silence {
		threshold := d.cfg.SilenceLUFS
		silent := lufs < threshold
		prevSilent := d.measured && d.prevLUFS < threshold

		if silent && !prevSilent {
			// The first measurement has no predecessor, so leading
			// silence runs from the start of the stream.
			start := fi
			if !d.measured {
				start = 0
			}
			d.startFrame = start
			d.segments = append(d.segments, span{start: start, end: -1})
			d.emit(start, fmt.Sprintf("SILENCE START: LUFS-S: %.3f; LUFS-I: %.3f @ %s",
				lufs, d.meter.Integrated(), d.timestamp(start)))
		}

		if !silent && prevSilent {
			d.silentCount += fi - d.startFrame
			d.segments[len(d.segments)-1].end = fi
			d.emit(fi, fmt.Sprintf("SILENCE END  : LUFS-S: %.3f; LUFS-I: %.3f @ %s (%.3f%% of total)",
				lufs, d.meter.Integrated(), d.timestamp(fi), d.percent(d.silentCount)))
		}

		d.prevLUFS = lufs
		d.measured = true
	}
}

// Finish flushes the partial trailing window when loudness recording is
// on, then settles the silence verdict.
func (d *Loudness) Finish() Status {
	if d.cfg.RecordWindows {
		last := len(d.windows) - 1
		d.windows[last].end = d.cfg.NumFrames
		d.windowLoud[last] = d.measure(d.buf[:d.fill])
	}

	var status Status
	if d.cfg.Silence && d.measured && d.prevLUFS < d.cfg.SilenceLUFS {
		end := d.cfg.NumFrames
		count := d.silentCount + end - d.startFrame
		d.segments[len(d.segments)-1].end = end
		d.emit(end, fmt.Sprintf("SILENCE END  : LUFS-S: %.3f; LUFS-I: %.3f @ %s (%.3f%% of total)",
			d.prevLUFS, d.meter.Integrated(), d.timestamp(end), d.percent(count)))

		if d.percent(count) >= d.cfg.SilencePercent {
			status |= StatusSilence
		}
	}
	return status
}

// Contribute records integrated loudness plus the silence and loudness
// sections, when they have results.
func (d *Loudness) Contribute(rep *report.Report) {
	rep.IntegratedLUFS = d.meter.Integrated()

	if d.cfg.RecordWindows && len(d.windows) > 0 {
		section := &report.LoudnessSection{WindowSize: d.cfg.WindowSeconds}
		rate := float64(d.cfg.SampleRate)
		for i, w := range d.windows {
			end := w.end
			if end < 0 {
				end = d.cfg.NumFrames
			}
			section.Results = append(section.Results, report.Window{
				Start:    float64(w.start) / rate,
				End:      float64(end) / rate,
				Loudness: report.LUFS(d.windowLoud[i]),
			})
		}
		rep.Analysis.Loudness = section
	}

	if d.cfg.Silence && len(d.segments) > 0 {
		section := &report.SilenceSection{
			Threshold:  d.cfg.SilenceLUFS,
			WindowSize: d.cfg.WindowSeconds,
			Limit:      d.cfg.SilencePercent,
		}
		for _, seg := range d.segments {
			end := seg.end
			if end < 0 {
				end = d.cfg.NumFrames
			}
			section.Results = append(section.Results, report.NewSegment(seg.start, end, d.cfg.SampleRate))
		}
		rep.Analysis.Silence = section
	}
}

// percent is the silent share of the whole stream.
func (d *Loudness) percent(count int) float64 {
	if d.cfg.NumFrames == 0 {
		return 0
	}
	return float64(count) / float64(d.cfg.NumFrames) * 100
}

func (d *Loudness) timestamp(frame int) string {
	return report.FormatTimestamp(float64(frame) / float64(d.cfg.SampleRate))
}

func (d *Loudness) emit(frame int, message string) {
	d.cfg.Emit.send(frame, fmt.Sprintf("[%s] %s", report.FrameLabel(frame, d.digits), message))
}
