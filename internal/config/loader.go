package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known weather provider names. Used by [Validate]
// to warn about unrecognised names.
var ValidProviderNames = []string{"openweather"}

// Environment variable names recognised by the secrets overlay.
const (
	EnvWeatherAPIKey = "OPENWEATHER_API_KEY"
	EnvHostURL       = "SKYLENS_HOST_URL"
	EnvAppID         = "SKYLENS_APP_ID"
	EnvAppKey        = "SKYLENS_APP_KEY"
)

// Load reads the YAML configuration file at path, overlays secrets from the
// environment (and a .env file if one exists), and returns a validated
// [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, overlays environment secrets,
// applies defaults, and validates the result. Useful in tests where configs
// are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	overlayEnv(cfg)
	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlayEnv fills credential fields from the process environment. A .env
// file in the working directory is loaded first when present; real
// environment variables win over .env entries. Environment values override
// anything in the YAML file so secrets never need to live on disk in the
// config.
func overlayEnv(cfg *Config) {
	// godotenv does not overwrite variables that are already set.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Debug("config: no .env file loaded", "err", err)
	}

	if v := os.Getenv(EnvWeatherAPIKey); v != "" {
		cfg.Weather.APIKey = v
	}
	if v := os.Getenv(EnvHostURL); v != "" {
		cfg.Host.URL = v
	}
	if v := os.Getenv(EnvAppID); v != "" {
		cfg.Host.AppID = v
	}
	if v := os.Getenv(EnvAppKey); v != "" {
		cfg.Host.AppKey = v
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Host credentials are required: without them the app cannot register
	// with the glasses host at all.
	if cfg.Host.URL == "" {
		errs = append(errs, fmt.Errorf("host.url is required (or set %s)", EnvHostURL))
	}
	if cfg.Host.AppID == "" {
		errs = append(errs, fmt.Errorf("host.app_id is required (or set %s)", EnvAppID))
	}
	if cfg.Host.AppKey == "" {
		errs = append(errs, fmt.Errorf("host.app_key is required (or set %s)", EnvAppKey))
	}

	// Weather provider
	if cfg.Weather.APIKey == "" {
		errs = append(errs, fmt.Errorf("weather.api_key is required (or set %s)", EnvWeatherAPIKey))
	}
	if cfg.Weather.Provider != "" && !slices.Contains(ValidProviderNames, cfg.Weather.Provider) {
		slog.Warn("unknown weather provider name — may be a typo or third-party provider",
			"name", cfg.Weather.Provider,
			"known", ValidProviderNames,
		)
	}

	// Session timings
	if cfg.Session.FreshnessWindow < 0 {
		errs = append(errs, fmt.Errorf("session.freshness_window %v must not be negative", cfg.Session.FreshnessWindow))
	}
	if cfg.Session.LocationTimeout < 0 {
		errs = append(errs, fmt.Errorf("session.location_timeout %v must not be negative", cfg.Session.LocationTimeout))
	}
	if cfg.Session.ErrorRevertDelay < 0 {
		errs = append(errs, fmt.Errorf("session.error_revert_delay %v must not be negative", cfg.Session.ErrorRevertDelay))
	}
	if cfg.Session.LocationAccuracy != "" && !cfg.Session.LocationAccuracy.IsValid() {
		errs = append(errs, fmt.Errorf("session.location_accuracy %q is invalid; valid values: high, balanced, low", cfg.Session.LocationAccuracy))
	}
	if cfg.Dashboard.UpdateInterval < 0 {
		errs = append(errs, fmt.Errorf("dashboard.update_interval %v must not be negative", cfg.Dashboard.UpdateInterval))
	}

	return errors.Join(errs...)
}
