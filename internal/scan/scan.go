// Package scan drives a full analysis run over one audio file: derive
// output paths, open the stream, build the detectors the settings ask
// for, pump every frame through the pipeline and assemble the report.
package scan

import (
	"log/slog"
	"math"
	"time"

	"github.com/audioqc/wavescan/internal/analysis"
	"github.com/audioqc/wavescan/internal/audio"
	"github.com/audioqc/wavescan/internal/config"
	"github.com/audioqc/wavescan/internal/report"
)

// Suffixes for sink paths derived from the report or input stem.
const (
	suffixFFTRaw = "-fft.png"
	suffixFFTVis = "-fft-vis.png"
	suffixPeaks  = "-peaks.png"
	suffixLog    = "-analysis.log"
)

// Options carries the resolved settings plus explicit output paths for
// one run. Empty paths derive from the JSON path or the input path.
type Options struct {
	Settings config.Settings

	JSONPath   string
	FFTRawPath string
	FFTVisPath string
	PeaksPath  string

	// HumTimezone names the zone the hum frequency was resolved from,
	// empty when the frequency was forced by flag.
	HumTimezone string
}

// Callbacks deliver progress and detector events to the caller while a
// run is in flight. Any field may be nil.
type Callbacks struct {
	// Start fires once the stream header has been read.
	Start func(meta audio.Metadata)

	// Progress fires on a coarse cadence with the frame count and the
	// integrated loudness measured so far. The loudness is NaN when no
	// loudness meter is running.
	Progress func(frame, total int, integrated float64)

	// Event receives silence edges and underruns as they are found.
	Event analysis.EventFunc
}

// Result is the outcome of scanning one file.
type Result struct {
	Path   string
	Status analysis.Status
	Report *report.Report

	// Integrated is the whole-stream integrated loudness, NaN when no
	// loudness meter ran.
	Integrated float64

	// Outputs lists every file written, in write order.
	Outputs []string

	Elapsed time.Duration
}

// sinkPaths is the resolved set of output files for one input.
type sinkPaths struct {
	json   string
	log    string
	fftRaw string
	fftVis string
	peaks  string
}

// Run analyses one file with the detectors enabled in opts. Detector
// construction and unresolvable sink paths fail before any audio is
// read; a sink write failure after analysis is logged but does not fail
// the run.
func Run(path string, opts Options, cb Callbacks) (*Result, error) {
	start := time.Now()

	sinks, err := deriveSinks(path, opts)
	if err != nil {
		return nil, err
	}

	src, meta, err := audio.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if cb.Start != nil {
		cb.Start(*meta)
	}

	detectors, loud, err := buildDetectors(*meta, opts, sinks, cb.Event)
	if err != nil {
		return nil, err
	}

	pipe, err := analysis.NewPipeline(src, detectors...)
	if err != nil {
		return nil, err
	}

	var progress analysis.ProgressFunc
	if cb.Progress != nil {
		progress = func(frame, total int) {
			integrated := math.NaN()
			if loud != nil {
				integrated = loud.Integrated()
			}
			cb.Progress(frame, total, integrated)
		}
	}

	status, err := pipe.Run(progress)
	if err != nil {
		return nil, err
	}

	rep := report.New(path, meta.SampleRate, meta.Channels, meta.NumFrames)
	pipe.Contribute(rep)

	res := &Result{
		Path:       path,
		Status:     status,
		Report:     rep,
		Integrated: math.NaN(),
	}
	if loud != nil {
		res.Integrated = rep.IntegratedLUFS
	}

	// The spectrogram and peaks detectors write their own files during
	// Finish; collect what actually landed on disk.
	if fft := rep.Analysis.FFT; fft != nil {
		if fft.Results.Output != "" {
			res.Outputs = append(res.Outputs, fft.Results.Output)
		}
		if fft.Results.Visualization != "" {
			res.Outputs = append(res.Outputs, fft.Results.Visualization)
		}
	}
	if pk := rep.Analysis.Peaks; pk != nil && pk.Output != "" {
		res.Outputs = append(res.Outputs, pk.Output)
	}

	if sinks.json != "" {
		if err := rep.Write(sinks.json); err != nil {
			slog.Error("failed to write JSON report", "path", sinks.json, "error", err)
		} else {
			res.Outputs = append(res.Outputs, sinks.json)
		}
	}
	if sinks.log != "" {
		if err := report.GenerateLog(rep, sinks.log, start, time.Now()); err != nil {
			slog.Error("failed to write analysis log", "path", sinks.log, "error", err)
		} else {
			res.Outputs = append(res.Outputs, sinks.log)
		}
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

// deriveSinks resolves every enabled output path up front, so a doomed
// run fails before any audio is read.
func deriveSinks(path string, opts Options) (sinkPaths, error) {
	s := opts.Settings
	sinks := sinkPaths{json: opts.JSONPath}

	var err error
	if s.FFT {
		if sinks.fftRaw, err = report.DerivePath(opts.FFTRawPath, opts.JSONPath, path, suffixFFTRaw); err != nil {
			return sinks, err
		}
		if sinks.fftVis, err = report.DerivePath(opts.FFTVisPath, opts.JSONPath, path, suffixFFTVis); err != nil {
			return sinks, err
		}
	}
	if s.Peaks {
		if sinks.peaks, err = report.DerivePath(opts.PeaksPath, opts.JSONPath, path, suffixPeaks); err != nil {
			return sinks, err
		}
	}
	if s.Logs {
		if sinks.log, err = report.DerivePath("", opts.JSONPath, path, suffixLog); err != nil {
			return sinks, err
		}
	}
	return sinks, nil
}

// buildDetectors constructs the detector set the settings enable. The
// loudness detector is also returned directly so the caller can poll
// its integrated level.
func buildDetectors(meta audio.Metadata, opts Options, sinks sinkPaths, emit analysis.EventFunc) ([]analysis.Detector, *analysis.Loudness, error) {
	s := opts.Settings

	var (
		detectors []analysis.Detector
		loud      *analysis.Loudness
	)

	if s.Underrun {
		d, err := analysis.NewUnderruns(analysis.UnderrunConfig{
			SampleRate: meta.SampleRate,
			Channels:   meta.Channels,
			NumFrames:  meta.NumFrames,
			MinSamples: s.Samples,
			Emit:       emit,
		})
		if err != nil {
			return nil, nil, err
		}
		detectors = append(detectors, d)
	}

	if s.Silence || s.Loudness {
		d, err := analysis.NewLoudness(analysis.LoudnessConfig{
			SampleRate:     meta.SampleRate,
			Channels:       meta.Channels,
			NumFrames:      meta.NumFrames,
			WindowSeconds:  s.WindowSeconds,
			RecordWindows:  s.Loudness,
			Silence:        s.Silence,
			SilenceLUFS:    s.LUFS,
			SilencePercent: s.SilencePercent,
			Emit:           emit,
		})
		if err != nil {
			return nil, nil, err
		}
		loud = d
		detectors = append(detectors, d)
	}

	if s.FFT {
		d, err := analysis.NewSpectrogram(analysis.SpectrogramConfig{
			SampleRate: meta.SampleRate,
			Channels:   meta.Channels,
			NumFrames:  meta.NumFrames,
			Size:       s.FFTSize,
			Mode:       s.FFTMode,
			RawPath:    sinks.fftRaw,
			VisPath:    sinks.fftVis,
		})
		if err != nil {
			return nil, nil, err
		}
		detectors = append(detectors, d)
	}

	if s.Peaks {
		d, err := analysis.NewPeaks(analysis.PeaksConfig{
			SampleRate: meta.SampleRate,
			Channels:   meta.Channels,
			NumFrames:  meta.NumFrames,
			Path:       sinks.peaks,
		})
		if err != nil {
			return nil, nil, err
		}
		detectors = append(detectors, d)
	}

	if s.Hum {
		d, err := analysis.NewHum(analysis.HumConfig{
			SampleRate: meta.SampleRate,
			Channels:   meta.Channels,
			NumFrames:  meta.NumFrames,
			Frequency:  s.HumFrequency,
			Timezone:   opts.HumTimezone,
		})
		if err != nil {
			return nil, nil, err
		}
		detectors = append(detectors, d)
	}

	return detectors, loud, nil
}
