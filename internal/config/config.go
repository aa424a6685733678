// Package config resolves analysis settings from built-in defaults, an
// optional YAML file and command-line flags, in rising precedence.
package config

import (
	"errors"
	"fmt"
)

// Spectrogram modes.
const (
	ModeSTFT      = "stft"
	ModeFramewise = "framewise"
)

// Settings is the resolved configuration one analysis run works from.
type Settings struct {
	Underrun bool
	// Samples is the shortest zero run reported as an underrun.
	Samples int

	Silence bool
	// LUFS is the short-term loudness below which a window is silent.
	LUFS float64
	// SilencePercent is the silent share at which a stream fails.
	SilencePercent float64
	// WindowSeconds sets the loudness measurement window.
	WindowSeconds float64
	// Loudness records every window's level in the JSON report.
	Loudness bool

	FFT     bool
	FFTSize int
	FFTMode string

	Peaks bool

	Hum bool
	// HumFrequency forces the mains fundamental; zero resolves it from
	// the machine's timezone.
	HumFrequency int

	Logs       bool
	NoProgress bool
	Debug      bool
	Silent     bool
}

// Defaults returns the built-in settings, matching the flag defaults.
func Defaults() Settings {
	return Settings{
		Samples:        16,
		LUFS:           -70.0,
		SilencePercent: 99.0,
		WindowSeconds:  1.0,
		FFTSize:        1024,
		FFTMode:        ModeSTFT,
	}
}

// DetectionActive reports whether any detector is enabled.
func (s Settings) DetectionActive() bool {
	return s.Underrun || s.Silence || s.Loudness || s.FFT || s.Peaks || s.Hum
}

// Validate checks the resolved settings and returns a joined error
// listing every violation found.
func (s Settings) Validate() error {
	var errs []error

	if s.WindowSeconds <= 0 {
		errs = append(errs, fmt.Errorf("window size %v must be positive seconds", s.WindowSeconds))
	}
	if s.SilencePercent < 0 || s.SilencePercent > 100 {
		errs = append(errs, fmt.Errorf("silence percentage %v is out of range [0, 100]", s.SilencePercent))
	}
	if s.Samples < 1 {
		errs = append(errs, fmt.Errorf("underrun threshold %d must be at least 1 sample", s.Samples))
	}
	if s.FFTSize < 16 || s.FFTSize&(s.FFTSize-1) != 0 {
		errs = append(errs, fmt.Errorf("fft size %d must be a power of two, 16 or larger", s.FFTSize))
	}
	if s.FFTMode != ModeSTFT && s.FFTMode != ModeFramewise {
		errs = append(errs, fmt.Errorf("fft mode %q is invalid; valid values: %s, %s", s.FFTMode, ModeSTFT, ModeFramewise))
	}
	switch s.HumFrequency {
	case 0, 50, 60:
	default:
		errs = append(errs, fmt.Errorf("hum frequency %d is invalid; valid values: 0 (auto), 50, 60", s.HumFrequency))
	}

	return errors.Join(errs...)
}
