package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; host and provider
// credentials require a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// ParserChanged is true when the explicit-city policy flipped.
	ParserChanged bool

	// SessionChanged is true when any session timing (freshness window,
	// location timeout, accuracy hint, error revert delay) changed.
	SessionChanged bool

	// DashboardChanged is true when the dashboard update interval changed.
	DashboardChanged bool
}

// Any reports whether the diff contains at least one change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.ParserChanged || d.SessionChanged || d.DashboardChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Parser != new.Parser {
		d.ParserChanged = true
	}

	if old.Session != new.Session {
		d.SessionChanged = true
	}

	if old.Dashboard != new.Dashboard {
		d.DashboardChanged = true
	}

	return d
}
