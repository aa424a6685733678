package report

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleReport() *Report {
	r := New("show.wav", 48000, 2, 480000)
	r.IntegratedLUFS = -18.5
	r.Analysis.Silence = &SilenceSection{
		Results:    []Segment{NewSegment(0, 48000, 48000)},
		Threshold:  -70.0,
		WindowSize: 1.0,
		Limit:      99.0,
	}
	r.Analysis.Underruns = &UnderrunSection{
		Results: []ChannelSegment{
			{Segment: NewSegment(100, 132, 48000), Channel: 1},
		},
		Threshold: 16,
	}
	r.Analysis.Loudness = &LoudnessSection{
		Results: []Window{
			{Start: 0, End: 1, Loudness: -20.5},
			{Start: 1, End: 2, Loudness: LUFS(math.Inf(-1))},
		},
		WindowSize: 1.0,
	}
	return r
}

func TestReportJSONShape(t *testing.T) {
	data, err := json.MarshalIndent(sampleReport(), "", "  ")
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	out := string(data)

	for _, key := range []string{
		`"analysis"`, `"loudness"`, `"silence"`, `"underruns"`,
		`"results"`, `"threshold"`, `"windowSize"`,
		`"startSample"`, `"endSample"`, `"durationSamples"`, `"channel"`,
		`"duration"`, `"num_channels"`, `"num_samples"`, `"sample_rate"`,
	} {
		if !strings.Contains(out, key) {
			t.Errorf("JSON missing key %s", key)
		}
	}

	// Disabled sections stay out of the document entirely.
	for _, key := range []string{`"fft"`, `"peaks"`, `"hum"`} {
		if strings.Contains(out, key) {
			t.Errorf("JSON should omit empty section %s", key)
		}
	}

	// Console-only fields never leak into the document.
	if strings.Contains(out, "show.wav") || strings.Contains(out, `"Limit"`) {
		t.Error("JSON should not carry console-only fields")
	}
}

func TestLUFSMarshalsInfinityAsNull(t *testing.T) {
	data, err := json.Marshal(sampleReport().Analysis.Loudness)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"loudness":null`) {
		t.Errorf("silent window should serialize as null, got %s", out)
	}
	if !strings.Contains(out, `"loudness":-20.5`) {
		t.Errorf("finite window should keep its value, got %s", out)
	}
}

func TestReportWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := sampleReport().Write(path); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("written report is not valid JSON: %v", err)
	}
	if decoded["sample_rate"].(float64) != 48000 {
		t.Errorf("sample_rate = %v, want 48000", decoded["sample_rate"])
	}
}

func TestNewSegment(t *testing.T) {
	seg := NewSegment(24000, 72000, 48000)
	if seg.Start != 0.5 || seg.End != 1.5 || seg.Duration != 1.0 {
		t.Errorf("seconds = [%v, %v) dur %v, want [0.5, 1.5) dur 1", seg.Start, seg.End, seg.Duration)
	}
	if seg.StartSample != 24000 || seg.EndSample != 72000 || seg.DurationSamples != 48000 {
		t.Errorf("samples = [%d, %d) dur %d", seg.StartSample, seg.EndSample, seg.DurationSamples)
	}
}

func TestSilencePercent(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		want     float64
	}{
		{"no section", nil, 0},
		{"half silent", []Segment{NewSegment(0, 240000, 48000)}, 50.0},
		{"fully silent", []Segment{NewSegment(0, 480000, 48000)}, 100.0},
		{"two segments", []Segment{
			NewSegment(0, 48000, 48000),
			NewSegment(96000, 144000, 48000),
		}, 20.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New("x.wav", 48000, 2, 480000)
			if tt.segments != nil {
				r.Analysis.Silence = &SilenceSection{Results: tt.segments}
			}
			if got := r.SilencePercent(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("SilencePercent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDerivePath(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		jsonPath string
		input    string
		suffix   string
		want     string
		wantErr  bool
	}{
		{"explicit wins", "/out/custom.png", "/r/rep.json", "in.wav", "-fft.png", "/out/custom.png", false},
		{"json stem", "", "/r/rep.json", "in.wav", "-fft.png", "/r/rep-fft.png", false},
		{"input stem", "", "", "/audio/in.wav", "-peaks.png", "/audio/in-peaks.png", false},
		{"stdin underivable", "", "", "-", "-fft.png", "", true},
		{"stdin with json", "", "cap.json", "-", "-vis.png", "cap-vis.png", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DerivePath(tt.explicit, tt.jsonPath, tt.input, tt.suffix)
			if tt.wantErr {
				if err == nil {
					t.Error("DerivePath() should have failed")
				}
				return
			}
			if err != nil {
				t.Fatalf("DerivePath() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DerivePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSummaryContents(t *testing.T) {
	out := sampleReport().Summary()

	for _, want := range []string{
		"show.wav", "stereo", "48000 Hz",
		"Integrated Loudness", "-18.5", "LUFS",
		"Silence", "Underruns", "1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Summary() missing %q\n%s", want, out)
		}
	}
}

func TestGenerateLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "show-analysis.log")
	start := time.Now().Add(-2 * time.Second)

	if err := GenerateLog(sampleReport(), path, start, time.Now()); err != nil {
		t.Fatalf("GenerateLog() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	out := string(data)

	for _, want := range []string{
		"Wavescan Analysis Report",
		"Timing", "Silence", "Underruns", "Loudness Windows",
		"CH1", "00:00:00.000 -> 00:00:01.000",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q", want)
		}
	}
}
