package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML configuration schema. Every field is optional and
// mirrors the command-line flag of the same name; absent fields leave
// the current setting untouched.
type File struct {
	Underrun          *bool    `yaml:"underrun"`
	Samples           *int     `yaml:"samples"`
	Silence           *bool    `yaml:"silence"`
	LUFS              *float64 `yaml:"lufs"`
	SilencePercentage *float64 `yaml:"silence-percentage"`
	WindowSize        *float64 `yaml:"window-size"`
	Loudness          *bool    `yaml:"loudness"`
	FFT               *bool    `yaml:"fft"`
	FFTSize           *int     `yaml:"fft-size"`
	FFTMode           *string  `yaml:"fft-mode"`
	Peaks             *bool    `yaml:"peaks"`
	Hum               *bool    `yaml:"hum"`
	HumFreq           *int     `yaml:"hum-freq"`
	Logs              *bool    `yaml:"logs"`
	NoProgress        *bool    `yaml:"no-progress"`
	Debug             *bool    `yaml:"debug"`
	Silent            *bool    `yaml:"silent"`
}

// Load reads and decodes the YAML file at path.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	file, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: %q: %w", path, err)
	}
	return file, nil
}

// LoadFromReader decodes YAML from r. Unknown keys are rejected so
// typos fail loudly instead of being ignored.
func LoadFromReader(r io.Reader) (*File, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return &file, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &file, nil
}

// Apply copies the file's values into s, skipping every flag the user
// set on the command line. set reports whether the named long flag was
// given explicitly.
func (f *File) Apply(s *Settings, set func(flag string) bool) {
	if f == nil {
		return
	}
	if set == nil {
		set = func(string) bool { return false }
	}

	applyBool(&s.Underrun, f.Underrun, "underrun", set)
	applyInt(&s.Samples, f.Samples, "samples", set)
	applyBool(&s.Silence, f.Silence, "silence", set)
	applyFloat(&s.LUFS, f.LUFS, "lufs", set)
	applyFloat(&s.SilencePercent, f.SilencePercentage, "silence-percentage", set)
	applyFloat(&s.WindowSeconds, f.WindowSize, "window-size", set)
	applyBool(&s.Loudness, f.Loudness, "loudness", set)
	applyBool(&s.FFT, f.FFT, "fft", set)
	applyInt(&s.FFTSize, f.FFTSize, "fft-size", set)
	applyString(&s.FFTMode, f.FFTMode, "fft-mode", set)
	applyBool(&s.Peaks, f.Peaks, "peaks", set)
	applyBool(&s.Hum, f.Hum, "hum", set)
	applyInt(&s.HumFrequency, f.HumFreq, "hum-freq", set)
	applyBool(&s.Logs, f.Logs, "logs", set)
	applyBool(&s.NoProgress, f.NoProgress, "no-progress", set)
	applyBool(&s.Debug, f.Debug, "debug", set)
	applyBool(&s.Silent, f.Silent, "silent", set)
}

func applyBool(dst *bool, src *bool, flag string, set func(string) bool) {
	if src != nil && !set(flag) {
		*dst = *src
	}
}

func applyInt(dst *int, src *int, flag string, set func(string) bool) {
	if src != nil && !set(flag) {
		*dst = *src
	}
}

func applyFloat(dst *float64, src *float64, flag string, set func(string) bool) {
	if src != nil && !set(flag) {
		*dst = *src
	}
}

func applyString(dst *string, src *string, flag string, set func(string) bool) {
	if src != nil && !set(flag) {
		*dst = *src
	}
}
