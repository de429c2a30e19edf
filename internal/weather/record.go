// Package weather turns raw upstream observations into display-ready weather
// records. It owns the two-step city→coordinates→conditions call chain
// ([Resolver]), the unit and string normalization rules, and the pure
// formatting helpers used for spoken summaries and on-glasses cards.
package weather

import (
	"math"
	"strings"
	"unicode"

	weatherapi "github.com/skylens/skylens/pkg/provider/weather"
)

// Record is an immutable, display-ready weather reading produced per fetch.
// Temperatures are Fahrenheit and wind speeds mph: observations are requested
// in the upstream's imperial unit system, which is fixed rather than
// user-configurable.
type Record struct {
	// Location is "<city>, <country-code>" (e.g., "Tokyo, JP").
	Location string

	// TemperatureF is the current temperature, rounded to the nearest degree.
	TemperatureF int

	// FeelsLikeF is the apparent temperature, rounded to the nearest degree.
	FeelsLikeF int

	// Description is the condition text with each word capitalized
	// (e.g., "Light Rain").
	Description string

	// HumidityPct is the relative humidity percentage (0–100).
	HumidityPct int

	// WindSpeedMph is the wind speed, rounded to the nearest mph.
	WindSpeedMph int

	// WindDirectionDeg is the wind direction (0–359), when reported.
	WindDirectionDeg *int

	// PressureHPa is the atmospheric pressure in hPa, when reported.
	PressureHPa *int

	// VisibilityKm is the visibility in whole kilometers, when reported.
	// Derived from the upstream meters value by integer division.
	VisibilityKm *int
}

// FromObservation normalizes a raw upstream observation into a [Record].
func FromObservation(obs weatherapi.Observation) Record {
	rec := Record{
		Location:         obs.Name + ", " + obs.Sys.Country,
		TemperatureF:     roundToInt(obs.Main.Temp),
		FeelsLikeF:       roundToInt(obs.Main.FeelsLike),
		HumidityPct:      obs.Main.Humidity,
		WindSpeedMph:     roundToInt(obs.Wind.Speed),
		WindDirectionDeg: obs.Wind.Deg,
		PressureHPa:      obs.Main.Pressure,
	}

	if len(obs.Weather) > 0 {
		rec.Description = titleCase(obs.Weather[0].Description)
	}

	if obs.Visibility != nil {
		km := *obs.Visibility / 1000
		rec.VisibilityKm = &km
	}

	return rec
}

// roundToInt rounds half away from zero, matching the upstream display
// convention.
func roundToInt(f float64) int {
	return int(math.Round(f))
}

// titleCase upper-cases the first letter of each word, leaves the remainder
// unchanged, and rejoins words with single spaces.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
