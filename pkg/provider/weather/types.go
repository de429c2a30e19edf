package weather

// Observation is the raw current-conditions payload as reported by the
// upstream API. Field shapes mirror the OpenWeather current weather response;
// optional upstream fields are pointers so that "absent" survives the decode.
type Observation struct {
	// Name is the upstream's resolved place name.
	Name string `json:"name"`

	// Sys carries country metadata.
	Sys SysInfo `json:"sys"`

	// Main carries temperature, humidity, and pressure readings.
	Main MainInfo `json:"main"`

	// Weather is the list of active conditions; the first entry is primary.
	Weather []Condition `json:"weather"`

	// Wind carries wind speed and optional direction.
	Wind WindInfo `json:"wind"`

	// Visibility is the visibility in meters, when reported.
	Visibility *int `json:"visibility,omitempty"`
}

// SysInfo holds location metadata from the upstream payload.
type SysInfo struct {
	// Country is the ISO 3166 country code (e.g., "JP").
	Country string `json:"country"`
}

// MainInfo holds the primary meteorological readings.
type MainInfo struct {
	// Temp is the current temperature in the requested unit system.
	Temp float64 `json:"temp"`

	// FeelsLike is the apparent temperature in the requested unit system.
	FeelsLike float64 `json:"feels_like"`

	// Humidity is the relative humidity percentage (0–100).
	Humidity int `json:"humidity"`

	// Pressure is the atmospheric pressure in hPa, when reported.
	Pressure *int `json:"pressure,omitempty"`
}

// Condition describes one active weather condition.
type Condition struct {
	// Main is the condition group (e.g., "Rain").
	Main string `json:"main"`

	// Description is the lower-cased detail text (e.g., "light rain").
	Description string `json:"description"`
}

// WindInfo holds wind readings.
type WindInfo struct {
	// Speed is the wind speed in the requested unit system.
	Speed float64 `json:"speed"`

	// Deg is the wind direction in degrees (0–359), when reported.
	Deg *int `json:"deg,omitempty"`
}
