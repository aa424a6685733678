// Package report assembles detector results into the JSON report,
// console summary and plain-text analysis log.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// LUFS is a loudness value that serializes as null when not finite,
// matching how silent windows appear in the report.
type LUFS float64

// MarshalJSON implements json.Marshaler.
func (l LUFS) MarshalJSON() ([]byte, error) {
	f := float64(l)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// Report is the JSON document produced for one analyzed input.
type Report struct {
	Analysis    Analysis `json:"analysis"`
	Duration    float64  `json:"duration"`
	NumChannels int      `json:"num_channels"`
	NumSamples  int      `json:"num_samples"`
	SampleRate  int      `json:"sample_rate"`

	// Console and log extras, not part of the JSON document.
	Path           string  `json:"-"`
	IntegratedLUFS float64 `json:"-"`
}

// Analysis groups the per-detector sections; empty sections are omitted.
type Analysis struct {
	Loudness  *LoudnessSection `json:"loudness,omitempty"`
	Silence   *SilenceSection  `json:"silence,omitempty"`
	Underruns *UnderrunSection `json:"underruns,omitempty"`
	FFT       *FFTSection      `json:"fft,omitempty"`
	Peaks     *PeaksSection    `json:"peaks,omitempty"`
	Hum       *HumSection      `json:"hum,omitempty"`
}

// Segment is a half-open [start, end) interval, serialized both in
// seconds and in per-channel sample indices.
type Segment struct {
	Start           float64 `json:"start"`
	End             float64 `json:"end"`
	Duration        float64 `json:"duration"`
	StartSample     int     `json:"startSample"`
	EndSample       int     `json:"endSample"`
	DurationSamples int     `json:"durationSamples"`
}

// ChannelSegment is a Segment tagged with the channel it occurred on.
type ChannelSegment struct {
	Segment
	Channel int `json:"channel"`
}

// NewSegment builds a segment from frame indices at a sample rate.
func NewSegment(start, end, sampleRate int) Segment {
	rate := float64(sampleRate)
	return Segment{
		Start:           float64(start) / rate,
		End:             float64(end) / rate,
		Duration:        float64(end-start) / rate,
		StartSample:     start,
		EndSample:       end,
		DurationSamples: end - start,
	}
}

// Window is one loudness measurement window in seconds.
type Window struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Loudness LUFS    `json:"loudness"`
}

// LoudnessSection records per-window loudness measurements.
type LoudnessSection struct {
	Results    []Window `json:"results"`
	WindowSize float64  `json:"windowSize"` // seconds
}

// SilenceSection records detected silence segments.
type SilenceSection struct {
	Results    []Segment `json:"results"`
	Threshold  float64   `json:"threshold"` // LUFS
	WindowSize float64   `json:"windowSize"`

	// Limit is the excessive-silence verdict percentage, kept for the
	// summary but not part of the JSON document.
	Limit float64 `json:"-"`
}

// UnderrunSection records zero-sample runs per channel.
type UnderrunSection struct {
	Results   []ChannelSegment `json:"results"`
	Threshold int              `json:"threshold"` // samples
}

// FFTOutputs names the spectrogram files that were written.
type FFTOutputs struct {
	Output        string `json:"output,omitempty"`
	Visualization string `json:"visualization,omitempty"`
}

// FFTSection records the spectrogram geometry and outputs.
type FFTSection struct {
	Size    int        `json:"size"`
	Results FFTOutputs `json:"results"`
}

// PeaksSection records the peaks image geometry.
type PeaksSection struct {
	Output      string `json:"output"`
	ChannelSize int    `json:"channelSize"`
	SquareSize  int    `json:"squareSize"`
	Padding     int    `json:"padding"`
}

// HumChannel is the hum-to-signal ratio measured on one channel.
type HumChannel struct {
	Channel int  `json:"channel"`
	Ratio   LUFS `json:"ratio"` // dB, hum power relative to total
}

// HumSection records the mains hum scan.
type HumSection struct {
	Frequency int          `json:"frequency"` // Hz
	Timezone  string       `json:"timezone,omitempty"`
	Channels  []HumChannel `json:"channels"`
	Detected  bool         `json:"detected"`
}

// New creates a report shell with the source metadata filled in.
func New(path string, sampleRate, channels, numFrames int) *Report {
	return &Report{
		Duration:       float64(numFrames) / float64(sampleRate),
		NumChannels:    channels,
		NumSamples:     numFrames,
		SampleRate:     sampleRate,
		Path:           path,
		IntegratedLUFS: math.Inf(-1),
	}
}

// Write serializes the report as indented JSON to path.
func (r *Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// SilencePercent returns the share of the input covered by silence
// segments, in percent.
func (r *Report) SilencePercent() float64 {
	if r.Analysis.Silence == nil || r.NumSamples == 0 {
		return 0
	}
	total := 0
	for _, seg := range r.Analysis.Silence.Results {
		total += seg.DurationSamples
	}
	return float64(total) / float64(r.NumSamples) * 100.0
}

// DerivePath resolves an output file path. An explicit path wins; next
// the JSON report path stem, then the input path stem, each with the
// extension replaced by suffix. Stdin input has no stem, so every
// enabled sink then needs an explicit path.
func DerivePath(explicit, jsonPath, inputPath, suffix string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if jsonPath != "" {
		return stem(jsonPath) + suffix, nil
	}
	if inputPath != "" && inputPath != "-" {
		return stem(inputPath) + suffix, nil
	}
	return "", fmt.Errorf("no output path for %s: reading stdin needs an explicit path or a JSON report path", suffix)
}

func stem(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}
