package ui

import (
	"github.com/audioqc/wavescan/internal/analysis"
)

// FileStartMsg indicates a new file has started scanning
type FileStartMsg struct {
	FileIndex  int
	FileName   string
	SampleRate int
	Channels   int
	NumFrames  int
}

// ProgressMsg represents a progress update from the scanner
type ProgressMsg struct {
	Frame    int     // Frames scanned so far
	Total    int     // Total frames in the stream
	Loudness float64 // Integrated loudness so far in LUFS
}

// EventMsg carries a detector event such as a silence edge or underrun
type EventMsg struct {
	Frame   int
	Message string
}

// FileCompleteMsg indicates a file has finished scanning
type FileCompleteMsg struct {
	FileIndex int
	Status    analysis.Status
	Loudness  float64 // Integrated loudness in LUFS
	Silence   float64 // Silent share of the stream in percent
	Underruns int
	Outputs   []string // Paths of reports and images written
	Error     error
}

// AllCompleteMsg indicates all files have been scanned
type AllCompleteMsg struct{}
