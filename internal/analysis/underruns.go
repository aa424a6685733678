package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/audioqc/wavescan/internal/report"
)

// UnderrunConfig configures zero-run detection.
type UnderrunConfig struct {
	SampleRate int
	Channels   int
	NumFrames  int

	// MinSamples is the shortest zero-sample run reported as an
	// underrun.
	MinSamples int

	Emit EventFunc
}

// channelRun tracks the zero-run state of one channel.
type channelRun struct {
	count     int
	prevIndex int
}

// underrunSegment is only recorded once closed, so it carries no open
// state.
type underrunSegment struct {
	start, end, channel int
}

// Underruns detects contiguous exact-zero sample runs per channel.
// Channels are fully independent; a single non-zero sample ends a run
// without merging it into the next.
type Underruns struct {
	cfg      UnderrunConfig
	states   []channelRun
	segments []underrunSegment
	digits   int
	debug    bool
	found    bool
}

// NewUnderruns builds the detector for the given stream layout.
func NewUnderruns(cfg UnderrunConfig) (*Underruns, error) {
	if cfg.Channels < 1 {
		return nil, fmt.Errorf("underrun detector needs at least one channel, got %d", cfg.Channels)
	}
	if cfg.MinSamples < 1 {
		return nil, fmt.Errorf("underrun threshold must be positive, got %d", cfg.MinSamples)
	}
	return &Underruns{
		cfg:    cfg,
		states: make([]channelRun, cfg.Channels),
		digits: report.LabelDigits(cfg.NumFrames),
		debug:  slog.Default().Enabled(context.Background(), slog.LevelDebug),
	}, nil
}

func (d *Underruns) Name() string { return "underruns" }

// Analyse classifies each channel's sample of the frame.
func (d *Underruns) Analyse(fr Frame) {
	for ch, sample := range fr.Samples {
		state := &d.states[ch]
		if sample == 0 {
			// A gap since the last zero on this channel breaks the
			// run; it must be contiguous.
			if fr.Index-state.prevIndex > 1 {
				state.count = 0
			}
			state.count++
			if d.debug {
				slog.Debug("zero sample", "channel", ch, "frame", fr.Index)
			}
			state.prevIndex = fr.Index
			continue
		}

		if state.count >= d.cfg.MinSamples {
			d.record(ch, fr.Index-state.count, fr.Index)
		}
		state.count = 0
	}
}

// Finish force-closes any run still open at end of stream.
func (d *Underruns) Finish() Status {
	for ch, state := range d.states {
		if state.count >= d.cfg.MinSamples {
			d.record(ch, d.cfg.NumFrames-state.count, d.cfg.NumFrames)
		}
	}
	if d.found {
		return StatusUnderrun
	}
	return 0
}

func (d *Underruns) record(channel, start, end int) {
	d.found = true
	d.segments = append(d.segments, underrunSegment{start: start, end: end, channel: channel})

	count := end - start
	d.cfg.Emit.send(end, fmt.Sprintf("[%s] UNDERRUN     : CH:%d - %d samples (%06.3fs) %s -> %s",
		report.FrameLabel(end, d.digits), channel, count,
		float64(count)/float64(d.cfg.SampleRate),
		d.timestamp(start), d.timestamp(end)))
}

// Contribute adds the underrun section when any run was recorded.
func (d *Underruns) Contribute(rep *report.Report) {
	if len(d.segments) == 0 {
		return
	}
	section := &report.UnderrunSection{Threshold: d.cfg.MinSamples}
	for _, seg := range d.segments {
		section.Results = append(section.Results, report.ChannelSegment{
			Segment: report.NewSegment(seg.start, seg.end, d.cfg.SampleRate),
			Channel: seg.channel,
		})
	}
	rep.Analysis.Underruns = section
}

func (d *Underruns) timestamp(frame int) string {
	return report.FormatTimestamp(float64(frame) / float64(d.cfg.SampleRate))
}
