package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/audioqc/wavescan/internal/analysis"
	"github.com/audioqc/wavescan/internal/audio"
	"github.com/audioqc/wavescan/internal/cli"
	"github.com/audioqc/wavescan/internal/config"
	"github.com/audioqc/wavescan/internal/mains"
	"github.com/audioqc/wavescan/internal/report"
	"github.com/audioqc/wavescan/internal/scan"
	"github.com/audioqc/wavescan/internal/ui"
)

var (
	version = "0.1.0"
)

// CLI defines the command-line interface
type CLI struct {
	Underrun          bool     `short:"u" help:"Detect zero-sample dropouts (underruns)"`
	Samples           int      `default:"16" help:"Shortest zero run reported as an underrun"`
	Silence           bool     `short:"s" help:"Detect excessive silence"`
	LUFS              float64  `default:"-70.0" help:"Short-term loudness below which a window counts as silent"`
	SilencePercentage float64  `name:"silence-percentage" default:"99" help:"Silent share of the stream that raises the silence flag"`
	WindowSize        float64  `short:"w" name:"window-size" default:"1.0" help:"Loudness measurement window in seconds"`
	Loudness          bool     `short:"l" help:"Record every window's loudness in the JSON report"`
	FFT               bool     `short:"f" help:"Write a log-power spectrogram of the stream"`
	FFTSize           int      `name:"fft-size" default:"1024" help:"FFT window size, a power of two"`
	FFTMode           string   `name:"fft-mode" default:"stft" help:"Spectrogram mode: stft or framewise"`
	FFTRaw            string   `name:"fft-raw" type:"path" help:"Raw spectrogram output path"`
	FFTVis            string   `name:"fft-vis" type:"path" help:"Spectrogram visualization output path"`
	Peaks             bool     `short:"p" help:"Write a per-sample peak level image"`
	PeaksOut          string   `name:"peaks-out" type:"path" help:"Peaks image output path"`
	Hum               bool     `help:"Scan for electrical mains hum"`
	HumFreq           int      `name:"hum-freq" default:"0" help:"Mains fundamental in Hz; 0 resolves it from the timezone"`
	JSON              string   `short:"j" type:"path" help:"Write the JSON report to this path"`
	Logs              bool     `help:"Save detailed analysis logs"`
	NoProgress        bool     `name:"no-progress" help:"Plain log output instead of the progress UI"`
	Debug             bool     `help:"Enable debug logging"`
	Silent            bool     `help:"Only report errors"`
	Config            string   `short:"c" type:"path" help:"Path to YAML config file (optional)"`
	Version           bool     `short:"v" help:"Show version information"`
	Files             []string `arg:"" name:"files" help:"Audio files to analyse; - reads a WAV from stdin" optional:""`
}

func main() {
	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("wavescan"),
		kong.Description("Audio quality analyser for WAV streams"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	// Handle version flag
	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	// Validate input
	if len(cliArgs.Files) == 0 {
		cli.PrintError("No input files specified")
		ctx.PrintUsage(false)
		os.Exit(1)
	}

	settings := resolveSettings(cliArgs, ctx)
	if err := settings.Validate(); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}

	if !settings.DetectionActive() {
		fmt.Println("No detection is active, exiting.")
		os.Exit(1)
	}

	if len(cliArgs.Files) > 1 {
		if cliArgs.JSON != "" || cliArgs.FFTRaw != "" || cliArgs.FFTVis != "" || cliArgs.PeaksOut != "" {
			cli.PrintError("Explicit output paths need a single input file")
			os.Exit(1)
		}
		if containsStdin(cliArgs.Files) {
			cli.PrintError("Reading from stdin cannot be combined with other inputs")
			os.Exit(1)
		}
	}

	useTUI := !settings.NoProgress && !settings.Silent &&
		!containsStdin(cliArgs.Files) && isTerminal(os.Stdout)
	setupLogging(settings, useTUI)

	opts := scan.Options{
		Settings:   settings,
		JSONPath:   cliArgs.JSON,
		FFTRawPath: cliArgs.FFTRaw,
		FFTVisPath: cliArgs.FFTVis,
		PeaksPath:  cliArgs.PeaksOut,
	}

	// Resolve the mains fundamental once; it depends on the machine,
	// not the input.
	if settings.Hum && settings.HumFrequency == 0 {
		info := mains.Detect()
		opts.Settings.HumFrequency = info.Hz
		opts.HumTimezone = info.Timezone
		slog.Debug("resolved mains frequency",
			"hz", info.Hz, "timezone", info.Timezone, "country", info.Country)
	}

	var (
		status   analysis.Status
		failures int
	)
	if useTUI {
		status, failures = runTUI(cliArgs.Files, opts)
	} else {
		status, failures = runPlain(cliArgs.Files, opts)
	}

	if failures > 0 {
		os.Exit(1)
	}
	os.Exit(int(status))
}

// resolveSettings layers the configuration: kong already applied the
// flag defaults, the config file fills everything the user did not set
// on the command line.
func resolveSettings(cliArgs *CLI, ctx *kong.Context) config.Settings {
	settings := config.Settings{
		Underrun:       cliArgs.Underrun,
		Samples:        cliArgs.Samples,
		Silence:        cliArgs.Silence,
		LUFS:           cliArgs.LUFS,
		SilencePercent: cliArgs.SilencePercentage,
		WindowSeconds:  cliArgs.WindowSize,
		Loudness:       cliArgs.Loudness,
		FFT:            cliArgs.FFT,
		FFTSize:        cliArgs.FFTSize,
		FFTMode:        cliArgs.FFTMode,
		Peaks:          cliArgs.Peaks,
		Hum:            cliArgs.Hum,
		HumFrequency:   cliArgs.HumFreq,
		Logs:           cliArgs.Logs,
		NoProgress:     cliArgs.NoProgress,
		Debug:          cliArgs.Debug,
		Silent:         cliArgs.Silent,
	}

	if cliArgs.Config != "" {
		file, err := config.Load(cliArgs.Config)
		if err != nil {
			cli.PrintError(err.Error())
			os.Exit(1)
		}
		file.Apply(&settings, flagWasSet(ctx))
	}
	return settings
}

// flagWasSet reports, per long flag name, whether the user passed the
// flag explicitly on the command line.
func flagWasSet(ctx *kong.Context) func(string) bool {
	set := make(map[string]bool)
	for _, f := range ctx.Flags() {
		if f.Set {
			set[f.Name] = true
		}
	}
	return func(name string) bool { return set[name] }
}

// setupLogging routes slog output. The TUI owns the terminal, so logs
// go to a debug file or nowhere; plain mode logs to stderr.
func setupLogging(settings config.Settings, useTUI bool) {
	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}
	if settings.Silent {
		level = slog.LevelError
	}

	var w io.Writer = os.Stderr
	if useTUI {
		w = io.Discard
		if settings.Debug {
			if f, err := os.Create("wavescan-debug.log"); err == nil {
				w = f
			}
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// runPlain scans every file sequentially with line output, for pipes
// and terminals where the TUI cannot run.
func runPlain(files []string, opts scan.Options) (analysis.Status, int) {
	var combined analysis.Status
	failures := 0

	for _, path := range files {
		cb := scan.Callbacks{}
		if !opts.Settings.Silent {
			cb.Start = func(meta audio.Metadata) { printBanner(meta, opts.Settings) }
			cb.Event = func(ev analysis.Event) { fmt.Println(ev.Message) }
		}

		res, err := scan.Run(path, opts, cb)
		if err != nil {
			cli.PrintError(fmt.Sprintf("%s: %v", path, err))
			failures++
			continue
		}
		combined |= res.Status

		if !opts.Settings.Silent {
			fmt.Println(res.Report.Summary())
		}
	}

	return combined, failures
}

// printBanner prints the stream facts before scanning starts.
func printBanner(meta audio.Metadata, settings config.Settings) {
	fmt.Printf("[+] sample rate: %d Hz\n", meta.SampleRate)
	fmt.Printf("[+] channels: %d\n", meta.Channels)
	fmt.Printf("[+] duration: %s\n", report.FormatTimestamp(meta.Duration))
	fmt.Printf("[+] frames: %d\n", meta.NumFrames)
	fmt.Printf("[+] detectors: %s\n", strings.Join(activeDetectors(settings), ", "))
}

// activeDetectors names the enabled detectors for the banner.
func activeDetectors(s config.Settings) []string {
	var names []string
	if s.Underrun {
		names = append(names, "underrun")
	}
	if s.Silence {
		names = append(names, "silence")
	}
	if s.Loudness {
		names = append(names, "loudness")
	}
	if s.FFT {
		names = append(names, "fft")
	}
	if s.Peaks {
		names = append(names, "peaks")
	}
	if s.Hum {
		names = append(names, "hum")
	}
	return names
}

// runTUI scans every file in a worker goroutine feeding the Bubbletea
// model, and reads the per-file verdicts back from the final model.
func runTUI(files []string, opts scan.Options) (analysis.Status, int) {
	model := ui.NewModel(files)
	p := tea.NewProgram(model, tea.WithAltScreen())
	ch := model.ProgressChan

	go func() {
		for i, path := range files {
			ch <- ui.FileStartMsg{
				FileIndex: i,
				FileName:  filepath.Base(path),
			}

			cb := scan.Callbacks{
				Start: func(meta audio.Metadata) {
					ch <- ui.FileStartMsg{
						FileIndex:  i,
						FileName:   filepath.Base(path),
						SampleRate: meta.SampleRate,
						Channels:   meta.Channels,
						NumFrames:  meta.NumFrames,
					}
				},
				Progress: func(frame, total int, integrated float64) {
					// Drop stale progress rather than stall the scan.
					select {
					case ch <- ui.ProgressMsg{Frame: frame, Total: total, Loudness: integrated}:
					default:
					}
				},
				Event: func(ev analysis.Event) {
					ch <- ui.EventMsg{Frame: ev.Frame, Message: ev.Message}
				},
			}

			res, err := scan.Run(path, opts, cb)
			if err != nil {
				ch <- ui.FileCompleteMsg{FileIndex: i, Error: err}
				continue
			}

			ch <- ui.FileCompleteMsg{
				FileIndex: i,
				Status:    res.Status,
				Loudness:  res.Integrated,
				Silence:   res.Report.SilencePercent(),
				Underruns: underrunCount(res.Report),
				Outputs:   res.Outputs,
			}
		}

		ch <- ui.AllCompleteMsg{}
	}()

	final, err := p.Run()
	if err != nil {
		cli.PrintError(fmt.Sprintf("UI error: %v", err))
		return 0, 1
	}

	m, ok := final.(ui.Model)
	if !ok {
		return 0, 0
	}
	var combined analysis.Status
	for _, f := range m.Files {
		if f.Status == ui.StatusComplete {
			combined |= f.Result
		}
	}
	return combined, m.FailedFiles
}

func underrunCount(rep *report.Report) int {
	if rep.Analysis.Underruns == nil {
		return 0
	}
	return len(rep.Analysis.Underruns.Results)
}

func containsStdin(files []string) bool {
	for _, f := range files {
		if f == audio.StdinPath {
			return true
		}
	}
	return false
}

// isTerminal reports whether f is attached to a character device.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
