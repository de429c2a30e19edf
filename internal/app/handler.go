package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skylens/skylens/internal/command"
	"github.com/skylens/skylens/internal/observe"
	"github.com/skylens/skylens/internal/session"
	"github.com/skylens/skylens/internal/weather"
	"github.com/skylens/skylens/pkg/host"
)

// ErrLocationTimeout is returned when the location stream does not deliver a
// fix within the configured timeout.
var ErrLocationTimeout = errors.New("app: location fix timed out")

// User-facing messages, spoken and displayed on command failures.
const (
	msgUnrecognized    = "Sorry, I didn't catch a weather question. Try: what's the weather in Paris?"
	msgLocationTimeout = "I couldn't get a location fix. Try asking for a specific city."
	msgFetchFailed     = "The weather service is not responding right now. Please try again in a moment."
)

// cityNotFoundMessage names the city the user asked for so a mis-heard
// transcript is visible on the display.
func cityNotFoundMessage(city string) string {
	return fmt.Sprintf("I couldn't find a city called %s.", city)
}

// welcomeCard is the idle display shown on session start and restored after
// an error message times out.
func welcomeCard() host.Card {
	return host.Card{
		Title:   "SkyLens",
		Content: "Ask: \"What's the weather?\"\nOr name a city: \"Weather in Tokyo\"",
	}
}

// sessionHandler runs the event loop for one glasses session. Commands are
// handled strictly one at a time; the loop does not read the next event until
// the current command finishes.
type sessionHandler struct {
	app    *App
	sess   host.Session
	cancel context.CancelFunc

	// revertMu guards the pending error-revert timer.
	revertMu    sync.Mutex
	revertTimer *time.Timer
}

// run shows the welcome card, starts the dashboard loop, and processes
// transcription and button events until ctx is cancelled or both streams
// close. It always returns nil: command-level failures never tear down the
// session, and a session ending is not an application error.
func (h *sessionHandler) run(ctx context.Context) error {
	defer h.cancel()
	defer h.stopRevert()

	if err := h.sess.ShowCard(ctx, welcomeCard()); err != nil {
		slog.Warn("failed to show welcome card", "session", h.sess.ID(), "err", err)
	}

	go h.dashboardLoop(ctx)

	trans := h.sess.Transcriptions()
	buttons := h.sess.Buttons()

	for trans != nil || buttons != nil {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-trans:
			if !ok {
				trans = nil
				continue
			}
			h.handleTranscription(ctx, ev)
		case ev, ok := <-buttons:
			if !ok {
				buttons = nil
				continue
			}
			h.handleButton(ctx, ev)
		}
	}
	return nil
}

// handleTranscription parses a final transcript and dispatches the resulting
// command. Partial transcripts are ignored.
func (h *sessionHandler) handleTranscription(ctx context.Context, ev host.TranscriptionEvent) {
	if !ev.IsFinal {
		return
	}

	ctx, span := observe.StartSpan(ctx, "voice_command")
	defer span.End()

	log := observe.Logger(ctx).With(
		slog.String("session", h.sess.ID()),
		slog.String("command_id", uuid.NewString()),
	)

	parseStart := time.Now()
	cmd, err := h.app.parser.Parse(ev.Text)
	h.app.metrics.ParseDuration.Record(ctx, time.Since(parseStart).Seconds())

	if err != nil {
		log.Debug("unrecognized speech", "text", ev.Text)
		h.app.metrics.RecordCommand(ctx, "unrecognized", "error")
		h.app.stats.IncrErrors()
		h.presentError(ctx, log, msgUnrecognized)
		return
	}

	h.app.stats.IncrCommands()
	log.Info("command parsed",
		"kind", cmd.Kind.String(),
		"pattern", cmd.Pattern,
		"city", cmd.City,
	)

	switch cmd.Kind {
	case command.KindCityLookup:
		h.cityWeather(ctx, log, cmd.City)
	case command.KindCurrentLocation:
		h.currentWeather(ctx, log)
	}
}

// handleButton treats a primary-button press as a current-weather refresh.
// All other buttons and actions are logged and ignored.
func (h *sessionHandler) handleButton(ctx context.Context, ev host.ButtonEvent) {
	log := slog.With(
		slog.String("session", h.sess.ID()),
		slog.String("button", string(ev.Button)),
		slog.String("action", string(ev.Action)),
	)

	if ev.Button != host.ButtonPrimary || ev.Action != host.ActionPress {
		log.Debug("ignoring button event")
		return
	}

	ctx, span := observe.StartSpan(ctx, "button_refresh")
	defer span.End()

	log.Info("button refresh")
	h.app.stats.IncrCommands()
	h.currentWeather(ctx, observe.Logger(ctx).With(slog.String("session", h.sess.ID())))
}

// cityWeather resolves a named city and presents the result.
func (h *sessionHandler) cityWeather(ctx context.Context, log *slog.Logger, city string) {
	fetchStart := time.Now()
	rec, err := h.app.resolver.FetchByCity(ctx, city)
	elapsed := time.Since(fetchStart)
	h.app.metrics.FetchDuration.Record(ctx, elapsed.Seconds())

	if err != nil {
		h.app.stats.IncrErrors()

		if errors.Is(err, weather.ErrCityNotFound) {
			log.Info("city not found", "city", city)
			h.app.metrics.RecordCommand(ctx, "city_lookup", "not_found")
			h.presentError(ctx, log, cityNotFoundMessage(city))
			return
		}

		var fe *weather.FetchError
		if errors.As(err, &fe) {
			h.app.metrics.RecordProviderError(ctx, fe.Op)
		}
		log.Error("city fetch failed", "city", city, "err", err)
		h.app.metrics.RecordCommand(ctx, "city_lookup", "error")
		h.presentError(ctx, log, msgFetchFailed)
		return
	}

	log.Info("city weather fetched", "city", city, "location", rec.Location, "duration", elapsed)
	h.app.metrics.RecordCommand(ctx, "city_lookup", "ok")
	h.app.cache.Put(h.sess.ID(), nil, &rec, h.app.now())
	h.present(ctx, log, rec)
}

// currentWeather serves the cached record when fresh, otherwise acquires a
// location fix and fetches by coordinates.
func (h *sessionHandler) currentWeather(ctx context.Context, log *slog.Logger) {
	id := h.sess.ID()
	now := h.app.now()

	if state, ok := h.app.cache.Get(id); ok && state.Fresh(now, h.app.cfg.Session.FreshnessWindow) {
		log.Info("serving cached weather", "age", now.Sub(state.UpdatedAt))
		h.app.metrics.RecordCacheLookup(ctx, true)
		h.app.metrics.RecordCommand(ctx, "current_location", "ok")
		h.present(ctx, log, *state.Record)
		return
	}
	h.app.metrics.RecordCacheLookup(ctx, false)

	waitStart := time.Now()
	loc, err := h.waitForLocation(ctx)
	waited := time.Since(waitStart)
	h.app.metrics.LocationWaitDuration.Record(ctx, waited.Seconds())
	h.app.stats.RecordLocationWait(waited)

	if err != nil {
		h.app.stats.IncrErrors()
		log.Warn("location acquisition failed", "err", err, "waited", waited)
		h.app.metrics.RecordCommand(ctx, "current_location", "timeout")
		h.presentError(ctx, log, msgLocationTimeout)
		return
	}

	log.Debug("location fix acquired", "lat", loc.Lat, "lng", loc.Lng, "accuracy", loc.Accuracy, "waited", waited)
	h.app.cache.Put(id, &session.Coordinates{Lat: loc.Lat, Lng: loc.Lng, Accuracy: loc.Accuracy}, nil, time.Time{})

	fetchStart := time.Now()
	rec, err := h.app.resolver.FetchByCoordinates(ctx, loc.Lat, loc.Lng)
	h.app.metrics.FetchDuration.Record(ctx, time.Since(fetchStart).Seconds())

	if err != nil {
		h.app.stats.IncrErrors()
		var fe *weather.FetchError
		if errors.As(err, &fe) {
			h.app.metrics.RecordProviderError(ctx, fe.Op)
		}
		log.Error("coordinate fetch failed", "err", err)
		h.app.metrics.RecordCommand(ctx, "current_location", "error")
		h.presentError(ctx, log, msgFetchFailed)
		return
	}

	log.Info("current weather fetched", "location", rec.Location)
	h.app.metrics.RecordCommand(ctx, "current_location", "ok")
	h.app.cache.Put(id, nil, &rec, h.app.now())
	h.present(ctx, log, rec)
}

// waitForLocation subscribes to the location stream and waits for the first
// fix or the configured timeout, whichever comes first. The subscription is
// always cancelled before returning, so the loser of the race never leaks a
// callback.
func (h *sessionHandler) waitForLocation(ctx context.Context) (host.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, h.app.cfg.Session.LocationTimeout)
	defer cancel()

	fix := make(chan host.Location, 1)
	unsubscribe, err := h.sess.SubscribeLocation(ctx, string(h.app.cfg.Session.LocationAccuracy), func(loc host.Location) {
		select {
		case fix <- loc:
		default:
		}
	})
	if err != nil {
		return host.Location{}, fmt.Errorf("subscribe location: %w", err)
	}
	defer unsubscribe()

	select {
	case loc := <-fix:
		return loc, nil
	case <-ctx.Done():
		return host.Location{}, ErrLocationTimeout
	}
}

// present pushes a fetched record to all three output sinks: spoken summary,
// display card, and dashboard line. Sink errors are logged, never escalated.
func (h *sessionHandler) present(ctx context.Context, log *slog.Logger, rec weather.Record) {
	h.stopRevert()

	if err := h.sess.Speak(ctx, weather.SummaryText(rec)); err != nil {
		log.Warn("speak failed", "err", err)
	}
	if err := h.sess.ShowCard(ctx, weather.DisplayCard(rec)); err != nil {
		log.Warn("show card failed", "err", err)
	}
	if err := h.sess.WriteDashboard(ctx, weather.DashboardLine(rec)); err != nil {
		log.Warn("dashboard write failed", "err", err)
	}
}

// presentError speaks and displays msg, then restores the welcome card after
// the configured revert delay. A newer command cancels a pending revert.
func (h *sessionHandler) presentError(ctx context.Context, log *slog.Logger, msg string) {
	if err := h.sess.Speak(ctx, msg); err != nil {
		log.Warn("speak failed", "err", err)
	}
	if err := h.sess.ShowText(ctx, msg); err != nil {
		log.Warn("show text failed", "err", err)
	}

	h.revertMu.Lock()
	defer h.revertMu.Unlock()
	if h.revertTimer != nil {
		h.revertTimer.Stop()
	}
	h.revertTimer = time.AfterFunc(h.app.cfg.Session.ErrorRevertDelay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := h.sess.ShowCard(ctx, welcomeCard()); err != nil {
			log.Warn("welcome revert failed", "err", err)
		}
	})
}

// stopRevert cancels any pending welcome-card revert.
func (h *sessionHandler) stopRevert() {
	h.revertMu.Lock()
	defer h.revertMu.Unlock()
	if h.revertTimer != nil {
		h.revertTimer.Stop()
		h.revertTimer = nil
	}
}
