package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/skylens/skylens/internal/config"
	"github.com/skylens/skylens/internal/observe"
	"github.com/skylens/skylens/internal/session"
	"github.com/skylens/skylens/internal/weather"
	"github.com/skylens/skylens/pkg/host"
	hostmock "github.com/skylens/skylens/pkg/host/mock"
	"github.com/skylens/skylens/pkg/provider/geocode"
	geocodemock "github.com/skylens/skylens/pkg/provider/geocode/mock"
	weatherapi "github.com/skylens/skylens/pkg/provider/weather"
	weathermock "github.com/skylens/skylens/pkg/provider/weather/mock"
)

// testConfig returns a config tuned for fast tests.
func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{ListenAddr: ":0", LogLevel: config.LogInfo},
		Host:   config.HostConfig{URL: "wss://test/ws", AppID: "test", AppKey: "k"},
		Weather: config.WeatherConfig{
			Provider: "openweather",
			APIKey:   "k",
		},
		Session: config.SessionConfig{
			FreshnessWindow:  5 * time.Minute,
			LocationTimeout:  200 * time.Millisecond,
			LocationAccuracy: config.AccuracyHigh,
			ErrorRevertDelay: 50 * time.Millisecond,
		},
		Dashboard: config.DashboardConfig{UpdateInterval: time.Hour},
	}
}

// tokyoObservation is a canned upstream payload used across tests.
func tokyoObservation() weatherapi.Observation {
	return weatherapi.Observation{
		Name: "Tokyo",
		Sys:  weatherapi.SysInfo{Country: "JP"},
		Main: weatherapi.MainInfo{Temp: 72.4, FeelsLike: 70.1, Humidity: 65},
		Weather: []weatherapi.Condition{
			{Main: "Clear", Description: "clear sky"},
		},
		Wind: weatherapi.WindInfo{Speed: 5.1},
	}
}

// fixture bundles a running App with its mocks.
type fixture struct {
	app      *App
	platform *hostmock.Platform
	geocoder *geocodemock.Provider
	weather  *weathermock.Provider
	cancel   context.CancelFunc
	done     chan error
}

// newFixture starts an App over mock providers and returns it with a cleanup
// registered on t.
func newFixture(t *testing.T, cfg *config.Config, opts ...Option) *fixture {
	t.Helper()

	if cfg == nil {
		cfg = testConfig()
	}

	m, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	f := &fixture{
		platform: hostmock.NewPlatform(),
		geocoder: &geocodemock.Provider{},
		weather:  &weathermock.Provider{},
		done:     make(chan error, 1),
	}
	opts = append([]Option{WithMetrics(m)}, opts...)
	f.app = New(cfg, f.platform, f.geocoder, f.weather, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go func() { f.done <- f.app.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-f.done:
		case <-time.After(2 * time.Second):
			t.Error("Run did not return after cancel")
		}
	})
	return f
}

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	sess := hostmock.NewSession("sess-1")

	f.platform.EmitStarted(sess)
	waitFor(t, func() bool { return len(sess.Cards()) == 1 }, "welcome card shown")

	if got := sess.Cards()[0].Title; got != "SkyLens" {
		t.Errorf("welcome card title = %q, want SkyLens", got)
	}
	if f.app.ActiveSessions() != 1 {
		t.Errorf("ActiveSessions = %d, want 1", f.app.ActiveSessions())
	}
	if _, ok := f.app.Cache().Get("sess-1"); !ok {
		t.Error("cache entry missing after session start")
	}

	f.platform.EmitStopped(sess)
	waitFor(t, func() bool { return f.app.ActiveSessions() == 0 }, "session deregistered")
	waitFor(t, func() bool { _, ok := f.app.Cache().Get("sess-1"); return !ok }, "cache entry cleared")
}

func TestCityLookup(t *testing.T) {
	f := newFixture(t, nil)
	f.geocoder.LookupResult = []geocode.Result{
		{Name: "Tokyo", Lat: 35.68, Lon: 139.69, Country: "JP"},
	}
	f.weather.CurrentResult = tokyoObservation()

	sess := hostmock.NewSession("sess-1")
	f.platform.EmitStarted(sess)
	waitFor(t, func() bool { return len(sess.Cards()) == 1 }, "welcome card shown")

	sess.TranscriptionsCh <- host.TranscriptionEvent{Text: "What's the weather in Tokyo?", IsFinal: true}
	waitFor(t, func() bool { return len(sess.Spoken()) == 1 }, "summary spoken")

	wantSummary := "Current weather in Tokyo, JP: 72°F, Clear Sky. Humidity 65%, wind 5 mph."
	if got := sess.Spoken()[0]; got != wantSummary {
		t.Errorf("spoken = %q, want %q", got, wantSummary)
	}

	cards := sess.Cards()
	if len(cards) != 2 {
		t.Fatalf("cards = %d, want 2 (welcome + weather)", len(cards))
	}
	if cards[1].Title != "Tokyo, JP" {
		t.Errorf("card title = %q, want Tokyo, JP", cards[1].Title)
	}

	dashboards := sess.Dashboards()
	if len(dashboards) != 1 || dashboards[0] != "72°F Clear Sky" {
		t.Errorf("dashboards = %v, want one line 72°F Clear Sky", dashboards)
	}

	// Cache now holds the record.
	state, ok := f.app.Cache().Get("sess-1")
	if !ok || state.Record == nil || state.Record.Location != "Tokyo, JP" {
		t.Errorf("cache state = %+v, want Tokyo record", state)
	}

	// The geocoder received the lowercased captured city.
	if got := f.geocoder.Calls()[0].Query; got != "tokyo" {
		t.Errorf("geocode query = %q, want tokyo", got)
	}
}

func TestPartialTranscriptIgnored(t *testing.T) {
	f := newFixture(t, nil)
	sess := hostmock.NewSession("sess-1")
	f.platform.EmitStarted(sess)
	waitFor(t, func() bool { return len(sess.Cards()) == 1 }, "welcome card shown")

	sess.TranscriptionsCh <- host.TranscriptionEvent{Text: "weather in tokyo", IsFinal: false}

	// Follow with a final unrecognized event so we know the partial was
	// processed (ordering guarantee of the channel).
	sess.TranscriptionsCh <- host.TranscriptionEvent{Text: "blah", IsFinal: true}
	waitFor(t, func() bool { return len(sess.Spoken()) == 1 }, "error spoken")

	if len(f.geocoder.Calls()) != 0 {
		t.Errorf("geocoder called %d times for partial transcript", len(f.geocoder.Calls()))
	}
}

func TestUnrecognizedRevertsToWelcome(t *testing.T) {
	f := newFixture(t, nil)
	sess := hostmock.NewSession("sess-1")
	f.platform.EmitStarted(sess)
	waitFor(t, func() bool { return len(sess.Cards()) == 1 }, "welcome card shown")

	sess.TranscriptionsCh <- host.TranscriptionEvent{Text: "play some music", IsFinal: true}
	waitFor(t, func() bool { return len(sess.Texts()) == 1 }, "error displayed")

	if got := sess.Texts()[0]; got != msgUnrecognized {
		t.Errorf("displayed = %q, want %q", got, msgUnrecognized)
	}
	if got := sess.Spoken()[0]; got != msgUnrecognized {
		t.Errorf("spoken = %q, want %q", got, msgUnrecognized)
	}

	// After the revert delay the welcome card is restored.
	waitFor(t, func() bool { return len(sess.Cards()) == 2 }, "welcome card restored")
	if got := sess.Cards()[1].Title; got != "SkyLens" {
		t.Errorf("restored card title = %q, want SkyLens", got)
	}
}

func TestCityNotFound(t *testing.T) {
	f := newFixture(t, nil)
	// Geocoder returns no results.
	f.geocoder.LookupResult = nil

	sess := hostmock.NewSession("sess-1")
	f.platform.EmitStarted(sess)
	waitFor(t, func() bool { return len(sess.Cards()) == 1 }, "welcome card shown")

	sess.TranscriptionsCh <- host.TranscriptionEvent{Text: "weather in atlantis", IsFinal: true}
	waitFor(t, func() bool { return len(sess.Texts()) == 1 }, "error displayed")

	if got := sess.Texts()[0]; !strings.Contains(got, "atlantis") {
		t.Errorf("error %q does not name the city", got)
	}
	if len(f.weather.Calls()) != 0 {
		t.Error("conditions endpoint called despite unknown city")
	}
}

func TestCurrentLocationFlow(t *testing.T) {
	f := newFixture(t, nil)
	f.weather.CurrentResult = tokyoObservation()

	sess := hostmock.NewSession("sess-1")
	f.platform.EmitStarted(sess)
	waitFor(t, func() bool { return len(sess.Cards()) == 1 }, "welcome card shown")

	sess.TranscriptionsCh <- host.TranscriptionEvent{Text: "what's the weather", IsFinal: true}
	waitFor(t, func() bool { return sess.ActiveSubscriptions() == 1 }, "location subscription made")

	if got := sess.SubscribeAccuracies[0]; got != "high" {
		t.Errorf("accuracy hint = %q, want high", got)
	}

	sess.PushLocation(host.Location{Lat: 35.68, Lng: 139.69, Accuracy: 10})
	waitFor(t, func() bool { return len(sess.Spoken()) == 1 }, "summary spoken")

	call := f.weather.Calls()[0]
	if call.Lat != 35.68 || call.Lon != 139.69 {
		t.Errorf("conditions call = (%v, %v), want (35.68, 139.69)", call.Lat, call.Lon)
	}
	if len(f.geocoder.Calls()) != 0 {
		t.Error("geocoder called for a current-location command")
	}

	// Subscription was cancelled once the fix arrived.
	waitFor(t, func() bool { return sess.ActiveSubscriptions() == 0 }, "subscription cancelled")
}

func TestLocationTimeout(t *testing.T) {
	f := newFixture(t, nil)

	sess := hostmock.NewSession("sess-1")
	f.platform.EmitStarted(sess)
	waitFor(t, func() bool { return len(sess.Cards()) == 1 }, "welcome card shown")

	// Never push a location; the 200ms timeout should fire.
	sess.TranscriptionsCh <- host.TranscriptionEvent{Text: "current weather", IsFinal: true}
	waitFor(t, func() bool { return len(sess.Texts()) == 1 }, "timeout error displayed")

	if got := sess.Texts()[0]; got != msgLocationTimeout {
		t.Errorf("displayed = %q, want %q", got, msgLocationTimeout)
	}
	if len(f.weather.Calls()) != 0 {
		t.Error("conditions endpoint called despite missing location")
	}
	// The losing subscription was unsubscribed.
	waitFor(t, func() bool { return sess.ActiveSubscriptions() == 0 }, "subscription cancelled")
}

func TestFreshCacheServedWithoutFetch(t *testing.T) {
	now := time.Now()
	f := newFixture(t, nil, WithClock(func() time.Time { return now }))

	sess := hostmock.NewSession("sess-1")
	f.platform.EmitStarted(sess)
	waitFor(t, func() bool { return len(sess.Cards()) == 1 }, "welcome card shown")

	rec := weather.Record{Location: "Tokyo, JP", TemperatureF: 72, Description: "Clear Sky", HumidityPct: 65, WindSpeedMph: 5}
	f.app.Cache().Put("sess-1",
		&session.Coordinates{Lat: 35.68, Lng: 139.69},
		&rec,
		now.Add(-4*time.Minute),
	)

	sess.TranscriptionsCh <- host.TranscriptionEvent{Text: "what's the weather", IsFinal: true}
	waitFor(t, func() bool { return len(sess.Spoken()) == 1 }, "cached summary spoken")

	if !strings.Contains(sess.Spoken()[0], "Tokyo, JP") {
		t.Errorf("spoken = %q, want cached Tokyo record", sess.Spoken()[0])
	}
	if len(sess.SubscribeAccuracies) != 0 {
		t.Error("location requested despite fresh cache")
	}
	if len(f.weather.Calls()) != 0 {
		t.Error("conditions endpoint called despite fresh cache")
	}
}

func TestStaleCacheTriggersRefetch(t *testing.T) {
	now := time.Now()
	f := newFixture(t, nil, WithClock(func() time.Time { return now }))
	f.weather.CurrentResult = tokyoObservation()

	sess := hostmock.NewSession("sess-1")
	f.platform.EmitStarted(sess)
	waitFor(t, func() bool { return len(sess.Cards()) == 1 }, "welcome card shown")

	rec := weather.Record{Location: "Tokyo, JP", TemperatureF: 72}
	f.app.Cache().Put("sess-1",
		&session.Coordinates{Lat: 35.68, Lng: 139.69},
		&rec,
		now.Add(-6*time.Minute),
	)

	sess.TranscriptionsCh <- host.TranscriptionEvent{Text: "what's the weather", IsFinal: true}
	waitFor(t, func() bool { return sess.ActiveSubscriptions() == 1 }, "location requested for stale cache")

	sess.PushLocation(host.Location{Lat: 1, Lng: 2})
	waitFor(t, func() bool { return len(f.weather.Calls()) == 1 }, "fresh fetch performed")
}

func TestPrimaryButtonRefreshes(t *testing.T) {
	now := time.Now()
	f := newFixture(t, nil, WithClock(func() time.Time { return now }))

	sess := hostmock.NewSession("sess-1")
	f.platform.EmitStarted(sess)
	waitFor(t, func() bool { return len(sess.Cards()) == 1 }, "welcome card shown")

	rec := weather.Record{Location: "Tokyo, JP", TemperatureF: 72, Description: "Clear Sky", HumidityPct: 65, WindSpeedMph: 5}
	f.app.Cache().Put("sess-1",
		&session.Coordinates{Lat: 35.68, Lng: 139.69},
		&rec,
		now.Add(-time.Minute),
	)

	sess.ButtonsCh <- host.ButtonEvent{Button: host.ButtonPrimary, Action: host.ActionPress}
	waitFor(t, func() bool { return len(sess.Spoken()) == 1 }, "button refresh spoken")

	if !strings.Contains(sess.Spoken()[0], "Tokyo, JP") {
		t.Errorf("spoken = %q, want Tokyo record", sess.Spoken()[0])
	}
}

func TestOtherButtonsIgnored(t *testing.T) {
	f := newFixture(t, nil)

	sess := hostmock.NewSession("sess-1")
	f.platform.EmitStarted(sess)
	waitFor(t, func() bool { return len(sess.Cards()) == 1 }, "welcome card shown")

	sess.ButtonsCh <- host.ButtonEvent{Button: host.ButtonSecondary, Action: host.ActionPress}
	sess.ButtonsCh <- host.ButtonEvent{Button: host.ButtonPrimary, Action: host.ActionLong}

	// Follow with a recognizable command to prove the loop is still alive.
	f.geocoder.LookupResult = []geocode.Result{{Name: "Paris", Lat: 48.85, Lon: 2.35, Country: "FR"}}
	f.weather.CurrentResult = tokyoObservation()
	sess.TranscriptionsCh <- host.TranscriptionEvent{Text: "weather in paris", IsFinal: true}
	waitFor(t, func() bool { return len(sess.Spoken()) == 1 }, "command after ignored buttons")

	if len(sess.SubscribeAccuracies) != 0 {
		t.Error("ignored buttons triggered a location request")
	}
}

func TestFetchFailurePresentsError(t *testing.T) {
	f := newFixture(t, nil)
	f.geocoder.LookupErr = context.DeadlineExceeded

	sess := hostmock.NewSession("sess-1")
	f.platform.EmitStarted(sess)
	waitFor(t, func() bool { return len(sess.Cards()) == 1 }, "welcome card shown")

	sess.TranscriptionsCh <- host.TranscriptionEvent{Text: "weather in tokyo", IsFinal: true}
	waitFor(t, func() bool { return len(sess.Texts()) == 1 }, "error displayed")

	if got := sess.Texts()[0]; got != msgFetchFailed {
		t.Errorf("displayed = %q, want %q", got, msgFetchFailed)
	}
	// The session stays alive after a failure.
	if f.app.ActiveSessions() != 1 {
		t.Errorf("ActiveSessions = %d, want 1", f.app.ActiveSessions())
	}
}
