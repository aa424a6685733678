package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Summary renders the console summary for a completed analysis.
func (r *Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s, %d Hz, %s\n",
		filepath.Base(r.Path), channelName(r.NumChannels), r.SampleRate,
		FormatTimestamp(r.Duration))

	table := NewSummaryTable()

	if r.Analysis.Silence != nil || r.Analysis.Loudness != nil {
		table.AddRow("Integrated Loudness",
			[]string{formatMetricLUFS(r.IntegratedLUFS, 1)},
			"LUFS", interpretIntegrated(r.IntegratedLUFS))
	}
	if s := r.Analysis.Silence; s != nil {
		pct := r.SilencePercent()
		table.AddMetricRow("Silence", pct, 1, "%", interpretSilence(pct, s.Limit))
		table.AddRow("Silence Segments", []string{strconv.Itoa(len(s.Results))}, "", "")
	}
	if u := r.Analysis.Underruns; u != nil {
		table.AddRow("Underruns", []string{strconv.Itoa(len(u.Results))},
			"", interpretUnderruns(len(u.Results)))
	}
	if h := r.Analysis.Hum; h != nil {
		worst := worstHum(h)
		table.AddRow(fmt.Sprintf("Hum (%d Hz)", h.Frequency),
			[]string{formatMetric(worst, 1)}, "dB", interpretHum(worst))
	}
	sb.WriteString(table.String())

	if f := r.Analysis.FFT; f != nil {
		if f.Results.Output != "" {
			fmt.Fprintf(&sb, "spectrogram: %s\n", f.Results.Output)
		}
		if f.Results.Visualization != "" {
			fmt.Fprintf(&sb, "spectrogram visualization: %s\n", f.Results.Visualization)
		}
	}
	if p := r.Analysis.Peaks; p != nil && p.Output != "" {
		fmt.Fprintf(&sb, "peaks image: %s\n", p.Output)
	}
	return sb.String()
}

// worstHum returns the highest per-channel hum ratio in a section.
func worstHum(h *HumSection) float64 {
	worst := math.Inf(-1)
	for _, ch := range h.Channels {
		if float64(ch.Ratio) > worst {
			worst = float64(ch.Ratio)
		}
	}
	return worst
}

// GenerateLog writes the plain-text analysis log for a finished run.
func GenerateLog(r *Report, path string, start, end time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer f.Close()

	writeLogHeader(f, r, end)
	writeTiming(f, r, start, end)
	writeSilenceLog(f, r)
	writeUnderrunLog(f, r)
	writeLoudnessLog(f, r)
	writeHumLog(f, r)
	writeOutputsLog(f, r)
	return nil
}

// writeSection prints a dash-underlined section title.
func writeSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
}

func writeLogHeader(w io.Writer, r *Report, end time.Time) {
	fmt.Fprintln(w, "Wavescan Analysis Report")
	fmt.Fprintln(w, "========================")
	fmt.Fprintf(w, "File: %s\n", filepath.Base(r.Path))
	fmt.Fprintf(w, "Analyzed: %s\n", end.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Format: %s, %d Hz\n", channelName(r.NumChannels), r.SampleRate)
	fmt.Fprintf(w, "Duration: %s (%d samples per channel)\n",
		FormatTimestamp(r.Duration), r.NumSamples)
	fmt.Fprintln(w)
}

func writeTiming(w io.Writer, r *Report, start, end time.Time) {
	writeSection(w, "Timing")
	elapsed := end.Sub(start)
	fmt.Fprintf(w, "Analysis: %s", formatDuration(elapsed))
	if r.Duration > 0 && elapsed > 0 {
		rtf := r.Duration * float64(time.Second) / float64(elapsed)
		fmt.Fprintf(w, " (%.0fx real-time)", rtf)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)
}

func writeSilenceLog(w io.Writer, r *Report) {
	s := r.Analysis.Silence
	if s == nil {
		return
	}
	writeSection(w, "Silence")
	pct := r.SilencePercent()
	fmt.Fprintf(w, "Threshold: %.1f LUFS over %.2fs windows\n", s.Threshold, s.WindowSize)
	fmt.Fprintf(w, "Silent: %.1f%% of the input (%s)\n", pct, interpretSilence(pct, s.Limit))
	for i, seg := range s.Results {
		fmt.Fprintf(w, "  %2d. %s -> %s  (%.3fs, samples %d..%d)\n",
			i+1, FormatTimestamp(seg.Start), FormatTimestamp(seg.End),
			seg.Duration, seg.StartSample, seg.EndSample)
	}
	fmt.Fprintln(w)
}

func writeUnderrunLog(w io.Writer, r *Report) {
	u := r.Analysis.Underruns
	if u == nil {
		return
	}
	writeSection(w, "Underruns")
	fmt.Fprintf(w, "Threshold: %d consecutive zero samples\n", u.Threshold)
	if len(u.Results) == 0 {
		fmt.Fprintln(w, "None detected.")
	}
	for i, seg := range u.Results {
		fmt.Fprintf(w, "  %2d. CH%d %s -> %s  (%d samples)\n",
			i+1, seg.Channel, FormatTimestamp(seg.Start), FormatTimestamp(seg.End),
			seg.DurationSamples)
	}
	fmt.Fprintln(w)
}

func writeLoudnessLog(w io.Writer, r *Report) {
	l := r.Analysis.Loudness
	if l == nil {
		return
	}
	writeSection(w, "Loudness Windows")
	fmt.Fprintf(w, "Windows: %d of %.2fs, integrated %s LUFS\n",
		len(l.Results), l.WindowSize, formatMetricLUFS(r.IntegratedLUFS, 1))

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, win := range l.Results {
		v := float64(win.Loudness)
		if math.IsInf(v, -1) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if !math.IsInf(lo, 1) {
		fmt.Fprintf(w, "Range: %.1f .. %.1f LUFS\n", lo, hi)
	}
	fmt.Fprintln(w)
}

func writeHumLog(w io.Writer, r *Report) {
	h := r.Analysis.Hum
	if h == nil {
		return
	}
	writeSection(w, "Mains Hum")
	zone := h.Timezone
	if zone == "" {
		zone = "unknown"
	}
	fmt.Fprintf(w, "Fundamental: %d Hz (timezone %s)\n", h.Frequency, zone)
	for _, ch := range h.Channels {
		fmt.Fprintf(w, "  CH%d: %s dB (%s)\n",
			ch.Channel, formatMetric(float64(ch.Ratio), 1), interpretHum(float64(ch.Ratio)))
	}
	fmt.Fprintln(w)
}

func writeOutputsLog(w io.Writer, r *Report) {
	hasFFT := r.Analysis.FFT != nil
	hasPeaks := r.Analysis.Peaks != nil && r.Analysis.Peaks.Output != ""
	if !hasFFT && !hasPeaks {
		return
	}
	writeSection(w, "Outputs")
	if hasFFT {
		f := r.Analysis.FFT
		fmt.Fprintf(w, "Spectrogram (%d-point FFT): %s\n", f.Size, orNone(f.Results.Output))
		fmt.Fprintf(w, "Visualization: %s\n", orNone(f.Results.Visualization))
	}
	if hasPeaks {
		p := r.Analysis.Peaks
		side := int(math.Round(math.Sqrt(float64(p.SquareSize))))
		fmt.Fprintf(w, "Peaks (%dx%d per channel, %d padding samples): %s\n",
			side, side, p.Padding, p.Output)
	}
	fmt.Fprintln(w)
}

func orNone(path string) string {
	if path == "" {
		return "not written"
	}
	return path
}
