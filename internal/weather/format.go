package weather

import (
	"fmt"

	"github.com/skylens/skylens/pkg/host"
)

// SummaryText renders rec as the one-sentence spoken summary.
func SummaryText(rec Record) string {
	return fmt.Sprintf("Current weather in %s: %d°F, %s. Humidity %d%%, wind %d mph.",
		rec.Location, rec.TemperatureF, rec.Description, rec.HumidityPct, rec.WindSpeedMph)
}

// DisplayCard renders rec as the title + multi-line card shown on the
// glasses' main layout.
func DisplayCard(rec Record) host.Card {
	return host.Card{
		Title: rec.Location,
		Content: fmt.Sprintf("%d°F • %s\nFeels like %d°F\nHumidity: %d%%\nWind: %d mph",
			rec.TemperatureF, rec.Description, rec.FeelsLikeF, rec.HumidityPct, rec.WindSpeedMph),
	}
}

// DashboardLine renders rec as the condensed single-line dashboard entry.
func DashboardLine(rec Record) string {
	return fmt.Sprintf("%d°F %s", rec.TemperatureF, rec.Description)
}
