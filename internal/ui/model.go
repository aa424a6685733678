// Package ui provides the Bubbletea terminal user interface for wavescan
package ui

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/audioqc/wavescan/internal/analysis"
)

// maxRecentEvents bounds the event lines shown for the active file.
const maxRecentEvents = 4

var debugLog *os.File

func init() {
	if os.Getenv("WAVESCAN_UI_DEBUG") != "" {
		debugLog, _ = os.OpenFile("wavescan-ui-debug.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	}
}

func log(format string, args ...interface{}) {
	if debugLog != nil {
		fmt.Fprintf(debugLog, format+"\n", args...)
	}
}

// FileStatus represents the scanning state of a single file
type FileStatus int

const (
	StatusQueued FileStatus = iota
	StatusScanning
	StatusComplete
	StatusError
)

// FileProgress tracks progress for a single audio file
type FileProgress struct {
	InputPath string
	Status    FileStatus

	// Stream metadata from the WAV header
	SampleRate int
	Channels   int

	// Progress tracking
	Frame       int
	Total       int
	Loudness    float64 // Integrated loudness so far in LUFS
	StartTime   time.Time
	ElapsedTime time.Duration

	// Recent detector events for the active file
	Events []string

	// Completion results
	Result     analysis.Status
	FinalLUFS  float64
	SilencePct float64
	Underruns  int
	Outputs    []string

	// Error tracking
	Error error
}

// Model is the Bubbletea model for the scanning UI
type Model struct {
	// File queue
	Files          []FileProgress
	CurrentIndex   int
	TotalFiles     int
	CompletedFiles int
	FlaggedFiles   int
	FailedFiles    int

	// Global state
	StartTime time.Time
	Done      bool

	// Channel for receiving progress updates from the scanner
	ProgressChan chan tea.Msg

	// Terminal dimensions
	Width  int
	Height int
}

// NewModel creates a new UI model with the given input files
func NewModel(inputFiles []string) Model {
	files := make([]FileProgress, len(inputFiles))
	for i, path := range inputFiles {
		files[i] = FileProgress{
			InputPath: path,
			Status:    StatusQueued,
		}
	}

	return Model{
		Files:        files,
		CurrentIndex: -1, // No file scanning yet
		TotalFiles:   len(inputFiles),
		StartTime:    time.Now(),
		ProgressChan: make(chan tea.Msg, 100), // Buffered channel
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return waitForProgress(m.ProgressChan)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		log("[DEBUG] Window size: %dx%d", m.Width, m.Height)

	case FileStartMsg:
		log("[DEBUG] FileStartMsg received: index=%d, file=%s", msg.FileIndex, msg.FileName)
		m.CurrentIndex = msg.FileIndex
		if m.CurrentIndex >= 0 && m.CurrentIndex < len(m.Files) {
			f := &m.Files[m.CurrentIndex]
			f.Status = StatusScanning
			f.SampleRate = msg.SampleRate
			f.Channels = msg.Channels
			f.Total = msg.NumFrames
			f.StartTime = time.Now()
		}
		return m, waitForProgress(m.ProgressChan)

	case ProgressMsg:
		log("[DEBUG] ProgressMsg received: frame %d/%d", msg.Frame, msg.Total)
		if m.CurrentIndex >= 0 && m.CurrentIndex < len(m.Files) {
			m.Files[m.CurrentIndex] = updateFileProgress(m.Files[m.CurrentIndex], msg)
		}
		return m, waitForProgress(m.ProgressChan)

	case EventMsg:
		log("[DEBUG] EventMsg received: frame %d: %s", msg.Frame, msg.Message)
		if m.CurrentIndex >= 0 && m.CurrentIndex < len(m.Files) {
			f := &m.Files[m.CurrentIndex]
			f.Events = append(f.Events, msg.Message)
			if len(f.Events) > maxRecentEvents {
				f.Events = f.Events[len(f.Events)-maxRecentEvents:]
			}
		}
		return m, waitForProgress(m.ProgressChan)

	case FileCompleteMsg:
		log("[DEBUG] FileCompleteMsg received: index=%d, status=%s", msg.FileIndex, msg.Status)
		if msg.FileIndex >= 0 && msg.FileIndex < len(m.Files) {
			f := &m.Files[msg.FileIndex]
			f.Status = StatusComplete
			f.Result = msg.Status
			f.FinalLUFS = msg.Loudness
			f.SilencePct = msg.Silence
			f.Underruns = msg.Underruns
			f.Outputs = msg.Outputs
			f.Error = msg.Error

			if msg.Error != nil {
				f.Status = StatusError
				m.FailedFiles++
			} else {
				m.CompletedFiles++
				if msg.Status != 0 {
					m.FlaggedFiles++
				}
			}
		}
		return m, waitForProgress(m.ProgressChan)

	case AllCompleteMsg:
		log("[DEBUG] AllCompleteMsg received")
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	// Debug: Show basic info even before window size is set
	if m.Width == 0 {
		return fmt.Sprintf("Initializing...\nFiles: %d\nCurrent: %d\n", len(m.Files), m.CurrentIndex)
	}

	if m.Done {
		return renderCompletionSummary(m)
	}

	return renderScanningView(m)
}

// updateFileProgress updates a FileProgress based on a ProgressMsg
func updateFileProgress(fp FileProgress, msg ProgressMsg) FileProgress {
	fp.Frame = msg.Frame
	if msg.Total > 0 {
		fp.Total = msg.Total
	}
	fp.Loudness = msg.Loudness
	fp.ElapsedTime = time.Since(fp.StartTime)
	fp.Status = StatusScanning
	return fp
}

// waitForProgress creates a command that waits for progress messages
func waitForProgress(progressChan chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-progressChan
	}
}
