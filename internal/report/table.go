package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// Summary Table Infrastructure
// =============================================================================

// MetricRow is a single labelled row in a summary table. Values are
// pre-formatted so mixed precision and placeholders line up.
type MetricRow struct {
	Label          string
	Values         []string
	Unit           string
	Interpretation string
}

// MetricTable renders aligned metric rows under right-aligned value
// column headers.
type MetricTable struct {
	Headers []string
	Rows    []MetricRow
}

// NewSummaryTable creates a single value-column table for the analysis
// summary.
func NewSummaryTable() *MetricTable {
	return &MetricTable{Headers: []string{"Value"}}
}

// AddRow appends a row with pre-formatted values.
func (t *MetricTable) AddRow(label string, values []string, unit, interpretation string) {
	t.Rows = append(t.Rows, MetricRow{Label: label, Values: values, Unit: unit, Interpretation: interpretation})
}

// AddMetricRow appends a single-value row, formatting the number.
func (t *MetricTable) AddMetricRow(label string, value float64, decimals int, unit, interpretation string) {
	t.AddRow(label, []string{formatMetric(value, decimals)}, unit, interpretation)
}

// String renders the table. Labels align left, values align right under
// their headers; the interpretation column appears only when used.
func (t *MetricTable) String() string {
	if len(t.Rows) == 0 {
		return ""
	}

	labelWidth := 0
	unitWidth := 0
	hasInterp := false
	valueWidths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		valueWidths[i] = len(h)
	}
	for _, row := range t.Rows {
		labelWidth = max(labelWidth, len(row.Label))
		unitWidth = max(unitWidth, len(row.Unit))
		hasInterp = hasInterp || row.Interpretation != ""
		for i, v := range row.Values {
			if i < len(valueWidths) {
				valueWidths[i] = max(valueWidths[i], len(v))
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", labelWidth+2))
	for i, h := range t.Headers {
		fmt.Fprintf(&sb, "%*s  ", valueWidths[i], h)
	}
	if unitWidth > 0 {
		sb.WriteString(strings.Repeat(" ", unitWidth+1))
	}
	if hasInterp {
		sb.WriteString("Interpretation")
	}
	sb.WriteString("\n")

	for _, row := range t.Rows {
		fmt.Fprintf(&sb, "%-*s  ", labelWidth, row.Label)
		for i := range t.Headers {
			v := MissingValue
			if i < len(row.Values) && row.Values[i] != "" {
				v = row.Values[i]
			}
			fmt.Fprintf(&sb, "%*s  ", valueWidths[i], v)
		}
		if unitWidth > 0 {
			fmt.Fprintf(&sb, "%-*s ", unitWidth, row.Unit)
		}
		if hasInterp {
			sb.WriteString(row.Interpretation)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// =============================================================================
// Metric Formatting Helpers
// =============================================================================

// MissingValue is the placeholder for unavailable measurements.
const MissingValue = "-"

// LUFSFloor is the lowest loudness the meter reports reliably. Values
// below it render as "< -70".
const LUFSFloor = -70.0

// formatMetric formats a value to the given decimals; NaN and infinities
// render as the missing-value placeholder.
func formatMetric(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return MissingValue
	}
	if value != 0 && math.Abs(value) < 0.0001 {
		return fmt.Sprintf("%.2e", value)
	}
	return strconv.FormatFloat(value, 'f', decimals, 64)
}

// formatMetricLUFS formats a loudness value, clamping anything below the
// measurement floor.
func formatMetricLUFS(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 1) {
		return MissingValue
	}
	if value < LUFSFloor {
		return "< -70"
	}
	return strconv.FormatFloat(value, 'f', decimals, 64)
}

// formatDuration renders an elapsed duration compactly.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh %dm %ds", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
	}
}

// channelName returns a human-readable channel layout name.
func channelName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	case 6:
		return "5.1 surround"
	default:
		return fmt.Sprintf("%d channels", channels)
	}
}

// FormatTimestamp renders a position in seconds as HH:MM:SS.mmm.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := seconds - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}

// FrameLabel zero-pads a frame index to the given digit count, so event
// lines from one run align.
func FrameLabel(frame, digits int) string {
	return fmt.Sprintf("%0*d", digits, frame)
}

// LabelDigits returns the digit count needed for the last frame index.
func LabelDigits(numFrames int) int {
	return len(strconv.Itoa(numFrames))
}
