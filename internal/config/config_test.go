package config

import (
	"strings"
	"testing"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("default settings failed validation: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{
			name:    "zero_window",
			mutate:  func(s *Settings) { s.WindowSeconds = 0 },
			wantErr: "window size",
		},
		{
			name:    "negative_window",
			mutate:  func(s *Settings) { s.WindowSeconds = -1.5 },
			wantErr: "must be positive",
		},
		{
			name:    "percentage_below_range",
			mutate:  func(s *Settings) { s.SilencePercent = -1 },
			wantErr: "out of range",
		},
		{
			name:    "percentage_above_range",
			mutate:  func(s *Settings) { s.SilencePercent = 100.5 },
			wantErr: "out of range",
		},
		{
			name:    "zero_underrun_samples",
			mutate:  func(s *Settings) { s.Samples = 0 },
			wantErr: "at least 1 sample",
		},
		{
			name:    "fft_size_not_power_of_two",
			mutate:  func(s *Settings) { s.FFTSize = 1000 },
			wantErr: "power of two",
		},
		{
			name:    "fft_size_too_small",
			mutate:  func(s *Settings) { s.FFTSize = 8 },
			wantErr: "power of two",
		},
		{
			name:    "unknown_fft_mode",
			mutate:  func(s *Settings) { s.FFTMode = "dft" },
			wantErr: `fft mode "dft"`,
		},
		{
			name:    "unsupported_hum_frequency",
			mutate:  func(s *Settings) { s.HumFrequency = 45 },
			wantErr: "hum frequency 45",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(&s)
			err := s.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateJoinsAllViolations(t *testing.T) {
	s := Defaults()
	s.WindowSeconds = 0
	s.Samples = 0
	s.FFTMode = "wavelet"

	err := s.Validate()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, want := range []string{"window size", "underrun threshold", "fft mode"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error %q does not mention %q", err, want)
		}
	}
}

func TestValidateAcceptsMainsFrequencies(t *testing.T) {
	for _, freq := range []int{0, 50, 60} {
		s := Defaults()
		s.HumFrequency = freq
		if err := s.Validate(); err != nil {
			t.Errorf("frequency %d rejected: %v", freq, err)
		}
	}
}

func TestDetectionActive(t *testing.T) {
	if Defaults().DetectionActive() {
		t.Error("no detector enabled, but DetectionActive reported true")
	}

	enable := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"underrun", func(s *Settings) { s.Underrun = true }},
		{"silence", func(s *Settings) { s.Silence = true }},
		{"loudness", func(s *Settings) { s.Loudness = true }},
		{"fft", func(s *Settings) { s.FFT = true }},
		{"peaks", func(s *Settings) { s.Peaks = true }},
		{"hum", func(s *Settings) { s.Hum = true }},
	}
	for _, tt := range enable {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(&s)
			if !s.DetectionActive() {
				t.Error("detector enabled, but DetectionActive reported false")
			}
		})
	}
}
