// Package config provides the configuration schema, loader, and provider
// registry for the SkyLens weather client.
package config

import "time"

// LogLevel controls log verbosity for the SkyLens process.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Accuracy is the location accuracy hint passed to the glasses host when
// subscribing to location updates.
type Accuracy string

const (
	AccuracyHigh     Accuracy = "high"
	AccuracyBalanced Accuracy = "balanced"
	AccuracyLow      Accuracy = "low"
)

// IsValid reports whether a is a recognised accuracy hint.
func (a Accuracy) IsValid() bool {
	switch a {
	case AccuracyHigh, AccuracyBalanced, AccuracyLow:
		return true
	}
	return false
}

// Config is the root configuration structure for SkyLens.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Host      HostConfig      `yaml:"host"`
	Weather   WeatherConfig   `yaml:"weather"`
	Parser    ParserConfig    `yaml:"parser"`
	Session   SessionConfig   `yaml:"session"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// ServerConfig holds network and logging settings for the ops HTTP server.
type ServerConfig struct {
	// ListenAddr is the TCP address the ops server (metrics, health) listens
	// on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// HostConfig describes how to reach the glasses host runtime.
type HostConfig struct {
	// URL is the WebSocket endpoint of the host runtime
	// (e.g., "wss://host.example.com/app/ws").
	URL string `yaml:"url"`

	// AppID identifies this app to the host runtime.
	AppID string `yaml:"app_id"`

	// AppKey authenticates this app to the host runtime. Usually injected
	// via the SKYLENS_APP_KEY environment variable rather than the file.
	AppKey string `yaml:"app_key"`
}

// WeatherConfig selects and configures the upstream weather data provider.
type WeatherConfig struct {
	// Provider selects the registered provider implementation. Defaults to
	// "openweather".
	Provider string `yaml:"provider"`

	// APIKey is the provider API key. Usually injected via the
	// OPENWEATHER_API_KEY environment variable rather than the file.
	APIKey string `yaml:"api_key"`

	// GeocodeBaseURL overrides the geocoding endpoint. Leave empty to use the
	// provider's built-in default.
	GeocodeBaseURL string `yaml:"geocode_base_url"`

	// WeatherBaseURL overrides the current-weather endpoint. Leave empty to
	// use the provider's built-in default.
	WeatherBaseURL string `yaml:"weather_base_url"`
}

// ParserConfig tunes voice command recognition.
type ParserConfig struct {
	// RequireExplicitCity disables the bare "what's the weather" fallback
	// phrasings so every command must name a city or use a generic
	// here-term. Default false.
	RequireExplicitCity bool `yaml:"require_explicit_city"`
}

// SessionConfig tunes per-session caching and command handling.
type SessionConfig struct {
	// FreshnessWindow is how long a fetched weather record may be served
	// from cache. Default 5m.
	FreshnessWindow time.Duration `yaml:"freshness_window"`

	// LocationTimeout bounds the wait for the first location fix when a
	// current-location command has no fresh cache. Default 10s.
	LocationTimeout time.Duration `yaml:"location_timeout"`

	// LocationAccuracy is the accuracy hint for location subscriptions.
	// Default "high".
	LocationAccuracy Accuracy `yaml:"location_accuracy"`

	// ErrorRevertDelay is how long an error message stays on the display
	// before the welcome text is restored. Default 3s.
	ErrorRevertDelay time.Duration `yaml:"error_revert_delay"`
}

// DashboardConfig tunes the background dashboard refresh loop.
type DashboardConfig struct {
	// UpdateInterval is how often the dashboard line is re-written from the
	// session cache. Default 60s.
	UpdateInterval time.Duration `yaml:"update_interval"`
}

// applyDefaults fills zero-valued fields with their documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Weather.Provider == "" {
		cfg.Weather.Provider = "openweather"
	}
	if cfg.Session.FreshnessWindow == 0 {
		cfg.Session.FreshnessWindow = 5 * time.Minute
	}
	if cfg.Session.LocationTimeout == 0 {
		cfg.Session.LocationTimeout = 10 * time.Second
	}
	if cfg.Session.LocationAccuracy == "" {
		cfg.Session.LocationAccuracy = AccuracyHigh
	}
	if cfg.Session.ErrorRevertDelay == 0 {
		cfg.Session.ErrorRevertDelay = 3 * time.Second
	}
	if cfg.Dashboard.UpdateInterval == 0 {
		cfg.Dashboard.UpdateInterval = time.Minute
	}
}
