package ui

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderScanningView renders the main scanning view
func renderScanningView(m Model) string {
	var b strings.Builder

	// Header
	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")

	// File queue
	b.WriteString(renderFileQueue(m))
	b.WriteString("\n\n")

	// Overall progress
	b.WriteString(renderOverallProgress(m))

	return b.String()
}

// renderHeader renders the application header
func renderHeader(m Model) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#A40000")).
		Render("Wavescan 📻 - Audio Quality Analyser")

	subtitle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Italic(true).
		Render(fmt.Sprintf("Analysing %d file(s)", m.TotalFiles))

	return title + "\n" + subtitle
}

// renderFileQueue renders the list of files with their status
func renderFileQueue(m Model) string {
	var b strings.Builder

	for i, file := range m.Files {
		b.WriteString(renderFileEntry(file, i, m.CurrentIndex))
		b.WriteString("\n")
	}

	return b.String()
}

// renderFileEntry renders a single file entry in the queue
func renderFileEntry(file FileProgress, index int, currentIndex int) string {
	fileName := filepath.Base(file.InputPath)

	switch file.Status {
	case StatusComplete:
		// ✓ clean file, ⚠ flagged file, each with a metrics summary
		icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00")).Render("✓")
		if file.Result != 0 {
			icon = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Render("⚠")
		}
		return fmt.Sprintf(" %s %s\n   %s", icon, fileName, renderFileMetrics(file))

	case StatusScanning:
		// ⚙ active file with detailed progress
		icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Render("⚙")
		return fmt.Sprintf(" %s %s\n%s", icon, fileName, renderFileDetails(file))

	case StatusError:
		// ✗ failed file
		icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#A40000")).Render("✗")
		return fmt.Sprintf(" %s %s\n   Error: %v", icon, fileName, file.Error)

	default:
		// ○ queued file
		icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render("○")
		return fmt.Sprintf(" %s %s\n   Queued...", icon, fileName)
	}
}

// renderFileMetrics renders the one-line result summary for a finished file
func renderFileMetrics(file FileProgress) string {
	summary := fmt.Sprintf("LUFS-I: %s | Silence: %.1f%% | Underruns: %d",
		formatLUFS(file.FinalLUFS), file.SilencePct, file.Underruns)
	if file.Result != 0 {
		flags := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Render(file.Result.String())
		summary += " | flags: " + flags
	}
	return summary
}

// renderFileDetails renders detailed progress for the active file
func renderFileDetails(file FileProgress) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#A40000")).
		Padding(0, 1).
		Width(60)

	var content strings.Builder

	content.WriteString(fmt.Sprintf("Scanning: frame %d of %d\n", file.Frame, file.Total))

	// Progress bar
	content.WriteString(renderProgressBar(fileFraction(file), 40))
	content.WriteString("\n\n")

	// Time estimates
	elapsed := file.ElapsedTime.Seconds()
	var remaining float64
	if frac := fileFraction(file); frac > 0 {
		remaining = (elapsed / frac) - elapsed
	}
	content.WriteString(fmt.Sprintf("⏱  Elapsed: %.1fs | Remaining: ~%.1fs", elapsed, remaining))

	// Integrated loudness so far, when a meter is running
	if !math.IsNaN(file.Loudness) {
		content.WriteString(fmt.Sprintf("\n📊 LUFS-I: %s", formatLUFS(file.Loudness)))
	}

	// Recent detector events
	if len(file.Events) > 0 {
		eventStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
		content.WriteString("\n")
		for _, ev := range file.Events {
			content.WriteString("\n")
			content.WriteString(eventStyle.Render(ev))
		}
	}

	return box.Render(content.String())
}

// renderProgressBar renders a progress bar
func renderProgressBar(progress float64, width int) string {
	filled := int(progress * float64(width))
	if filled > width {
		filled = width
	}
	empty := width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	percentage := int(progress * 100)

	return fmt.Sprintf("%s %d%%", bar, percentage)
}

// renderOverallProgress renders the overall progress footer
func renderOverallProgress(m Model) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#888888")).
		Padding(0, 1).
		Width(60)

	// Show current file being scanned
	var content string
	if m.CurrentIndex >= 0 && m.CurrentIndex < len(m.Files) {
		currentFile := m.CurrentIndex + 1 // 1-indexed for display
		content = fmt.Sprintf("Analysing file %d of %d (%d complete)",
			currentFile, m.TotalFiles, m.CompletedFiles)
	} else {
		content = fmt.Sprintf("Overall Progress: %d/%d complete", m.CompletedFiles, m.TotalFiles)
	}

	return box.Render(content)
}

// renderCompletionSummary renders the final completion summary
func renderCompletionSummary(m Model) string {
	var b strings.Builder

	// Completion header
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00AA00")).
		Render("✨ Analysis Complete!")
	b.WriteString(header)
	b.WriteString("\n\n")

	// Summary for each file
	for _, file := range m.Files {
		switch file.Status {
		case StatusComplete:
			b.WriteString(renderCompletedFile(file))
			b.WriteString("\n")
		case StatusError:
			icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#A40000")).Render("✗")
			b.WriteString(fmt.Sprintf(" %s %s\n   Error: %v\n", icon, filepath.Base(file.InputPath), file.Error))
		}
	}

	// Overall summary
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", 60))
	b.WriteString("\n")
	if m.FlaggedFiles == 0 && m.FailedFiles == 0 {
		b.WriteString("All files passed quality checks ✓\n")
	} else {
		b.WriteString(fmt.Sprintf("%d of %d file(s) flagged quality issues\n", m.FlaggedFiles, m.TotalFiles))
		if m.FailedFiles > 0 {
			b.WriteString(fmt.Sprintf("%d file(s) could not be analysed\n", m.FailedFiles))
		}
	}

	return b.String()
}

// renderCompletedFile renders a summary for a completed file
func renderCompletedFile(file FileProgress) string {
	fileName := filepath.Base(file.InputPath)

	icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00")).Render("✓")
	if file.Result != 0 {
		icon = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Render("⚠")
	}

	out := fmt.Sprintf(" %s %s\n   %s", icon, fileName, renderFileMetrics(file))

	if len(file.Outputs) > 0 {
		names := make([]string, len(file.Outputs))
		for i, path := range file.Outputs {
			names[i] = filepath.Base(path)
		}
		out += "\n   Outputs: " + strings.Join(names, ", ")
	}

	return out
}

// fileFraction converts frame progress to a 0..1 fraction
func fileFraction(file FileProgress) float64 {
	if file.Total <= 0 {
		return 0
	}
	return float64(file.Frame) / float64(file.Total)
}

// formatLUFS renders a loudness value, clamping the silence floor
func formatLUFS(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	if math.IsInf(v, -1) || v < -70 {
		return "< -70"
	}
	return fmt.Sprintf("%.1f", v)
}
