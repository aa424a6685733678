package analysis

import (
	"errors"
	"fmt"

	"github.com/audioqc/wavescan/internal/raster"
)

// ErrNoVisualData means every accumulated value was a sentinel, so there
// is nothing to scale a visualization against.
var ErrNoVisualData = errors.New("no valid data to visualize")

// Visualization turns rows of log-power values into a heat-map PNG. Rows
// accumulate in reading order; Render normalizes against the observed
// min/max, applies the colour ramp and rotates the image 90 degrees
// counter-clockwise so time runs left to right.
type Visualization struct {
	data     []float64
	min, max float64
	seen     bool
}

func NewVisualization() *Visualization {
	return &Visualization{}
}

// Extend appends values and folds them into the min/max scan. Sentinel
// values are kept in the data but never contribute to the scan.
func (v *Visualization) Extend(values []float64) {
	for _, value := range values {
		if value > Sentinel {
			if !v.seen || value < v.min {
				v.min = value
			}
			if !v.seen || value > v.max {
				v.max = value
			}
			v.seen = true
		}
		v.data = append(v.data, value)
	}
}

// Len returns the number of accumulated values.
func (v *Visualization) Len() int { return len(v.data) }

// Render writes the heat map for rows of the given width. The source
// image is width x height with height = len(data)/width; the written
// PNG is rotated, so its dimensions are height x width.
func (v *Visualization) Render(path string, width int) error {
	if !v.seen {
		return ErrNoVisualData
	}
	if width < 1 || len(v.data)%width != 0 {
		return fmt.Errorf("visualization rows of width %d do not cover %d values", width, len(v.data))
	}

	height := len(v.data) / width
	scale := v.max - v.min
	if scale <= 0 {
		scale = 1
	}

	rotatedWidth, rotatedHeight := height, width
	rgb := make([]byte, rotatedWidth*rotatedHeight*3)

	for i, value := range v.data {
		// Squaring after normalization lifts the contrast of the
		// louder end of the range.
		n := clampUnit((value - v.min) / scale)
		n *= n

		blue := min(n*3, 1)
		green := clampUnit((n - 0.33) * 3)
		red := clampUnit((n - 0.66) * 3)

		x := i % width
		y := i / width
		newX := y
		newY := (width - 1) - x
		at := (newY*rotatedWidth + newX) * 3

		rgb[at] = byte(red * 255)
		rgb[at+1] = byte(green * 255)
		rgb[at+2] = byte(blue * 255)
	}

	return raster.Write(path, rotatedWidth, rotatedHeight, 8, raster.ModeRGB, rgb)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
