// Package mains resolves the electrical mains frequency for the
// machine's region. The hum scan targets this frequency and its
// harmonics.
package mains

import (
	"strings"

	tz "github.com/medama-io/go-timezone-country"
	"github.com/thlib/go-timezone-local/tzlocal"
)

// Info describes a resolved mains frequency and how it was determined.
type Info struct {
	Hz       int    // 50 or 60
	Timezone string // IANA zone used for the lookup, "" when unknown
	Country  string // resolved country name, "" when unknown
}

// Detect resolves the local mains frequency from the runtime timezone.
// Unknown or ambiguous regions fall back to 50 Hz, the majority grid.
func Detect() Info {
	zone, err := tzlocal.RuntimeTZ()
	if err != nil {
		return Info{Hz: 50}
	}
	return Lookup(zone)
}

// Lookup resolves the mains frequency for an IANA timezone name.
func Lookup(timezone string) Info {
	info := Info{Hz: 50, Timezone: timezone}

	// UTC, GMT and the Etc/ zones carry no country association.
	if timezone == "UTC" || timezone == "GMT" || strings.HasPrefix(timezone, "Etc/") {
		return info
	}

	zoneMap, err := tz.NewTimezoneCountryMap()
	if err != nil {
		return info
	}
	country, err := zoneMap.GetCountry(timezone)
	if err != nil {
		return info
	}

	info.Country = country
	if sixtyHz[country] {
		info.Hz = 60
	}
	return info
}

// sixtyHz lists countries on 60 Hz grids; everywhere else runs 50 Hz.
// Japan is split by region and stays on the 50 Hz default (Tokyo grid).
var sixtyHz = func() map[string]bool {
	countries := []string{
		"United States", "Canada", "Mexico",
		"Belize", "Costa Rica", "El Salvador", "Guatemala", "Honduras",
		"Nicaragua", "Panama",
		"Bahamas", "Barbados", "Cayman Islands", "Cuba",
		"Dominican Republic", "Haiti", "Jamaica", "Puerto Rico",
		"Trinidad and Tobago", "U.S. Virgin Islands",
		"Brazil", "Colombia", "Ecuador", "Guyana", "Peru", "Suriname",
		"Venezuela",
		"South Korea", "Taiwan", "Philippines", "Saudi Arabia",
		"Guam", "American Samoa", "Marshall Islands", "Micronesia",
		"Palau",
	}
	m := make(map[string]bool, len(countries))
	for _, c := range countries {
		m[c] = true
	}
	return m
}()
