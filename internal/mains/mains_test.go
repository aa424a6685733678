package mains

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		timezone    string
		wantHz      int
		wantCountry string
	}{
		{"Europe/London", 50, "United Kingdom"},
		{"Europe/Berlin", 50, "Germany"},
		{"Australia/Sydney", 50, "Australia"},
		{"Asia/Shanghai", 50, "China"},
		{"Asia/Tokyo", 50, "Japan"}, // split grid, 50 Hz default

		{"America/New_York", 60, "United States"},
		{"America/Toronto", 60, "Canada"},
		{"America/Mexico_City", 60, "Mexico"},
		{"America/Bogota", 60, "Colombia"},
		{"America/Sao_Paulo", 60, "Brazil"},
		{"Asia/Seoul", 60, "South Korea"},
		{"Asia/Manila", 60, "Philippines"},

		{"UTC", 50, ""},
		{"GMT", 50, ""},
		{"Etc/UTC", 50, ""},
	}

	for _, tt := range tests {
		t.Run(tt.timezone, func(t *testing.T) {
			info := Lookup(tt.timezone)
			if info.Hz != tt.wantHz {
				t.Errorf("Lookup(%q).Hz = %d, want %d", tt.timezone, info.Hz, tt.wantHz)
			}
			if info.Timezone != tt.timezone {
				t.Errorf("Lookup(%q).Timezone = %q", tt.timezone, info.Timezone)
			}
			if tt.wantCountry != "" && info.Country != tt.wantCountry {
				t.Errorf("Lookup(%q).Country = %q, want %q", tt.timezone, info.Country, tt.wantCountry)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	info := Detect()
	if info.Hz != 50 && info.Hz != 60 {
		t.Errorf("Detect().Hz = %d, want 50 or 60", info.Hz)
	}
}
