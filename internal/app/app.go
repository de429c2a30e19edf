// Package app wires all SkyLens subsystems into a running application.
//
// The App owns the command pipeline: it watches the host platform for session
// lifecycle events, runs one event loop per active glasses session, and turns
// final voice transcripts and button presses into weather fetches, display
// cards, spoken summaries, and dashboard updates.
//
// For testing, inject a mock platform and mock providers; WithClock pins the
// freshness clock.
package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skylens/skylens/internal/command"
	"github.com/skylens/skylens/internal/config"
	"github.com/skylens/skylens/internal/observe"
	"github.com/skylens/skylens/internal/session"
	"github.com/skylens/skylens/internal/weather"
	"github.com/skylens/skylens/pkg/host"
	"github.com/skylens/skylens/pkg/provider/geocode"
	weatherapi "github.com/skylens/skylens/pkg/provider/weather"
)

// App owns the per-session handlers and the shared command pipeline.
type App struct {
	cfg      *config.Config
	platform host.Platform
	parser   *command.Parser
	resolver *weather.Resolver
	cache    *session.Cache
	metrics  *observe.Metrics
	stats    *Stats
	now      func() time.Time

	mu       sync.Mutex
	handlers map[string]*sessionHandler
}

// Option is a functional option for [New]. Use these to inject test doubles.
type Option func(*App)

// WithMetrics injects a metric instrument set instead of the package default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithClock injects the time source used for cache freshness decisions.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// New creates an App over the given platform and weather providers.
func New(cfg *config.Config, platform host.Platform, geocoder geocode.Provider, conditions weatherapi.Provider, opts ...Option) *App {
	a := &App{
		cfg:      cfg,
		platform: platform,
		parser:   command.New(cfg.Parser.RequireExplicitCity),
		cache:    session.NewCache(),
		stats:    NewStats(100),
		now:      time.Now,
		handlers: make(map[string]*sessionHandler),
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	a.resolver = weather.NewResolver(geocoder, conditions,
		weather.WithObserver(func(op string, seconds float64) {
			switch op {
			case "geocode":
				a.metrics.GeocodeDuration.Record(context.Background(), seconds)
				a.stats.RecordGeocode(time.Duration(seconds * float64(time.Second)))
			case "conditions":
				a.stats.RecordConditions(time.Duration(seconds * float64(time.Second)))
			}
		}),
	)

	return a
}

// Stats returns the latency/counter collector for debug surfaces.
func (a *App) Stats() *Stats { return a.stats }

// Cache returns the session cache. Exposed for the ops debug endpoints.
func (a *App) Cache() *session.Cache { return a.cache }

// Run processes session lifecycle events until ctx is cancelled or the
// platform's event channel closes. It blocks; each active session gets its
// own event-loop goroutine managed by an errgroup.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	events := a.platform.Events()

	slog.Info("app running")

loop:
	for {
		select {
		case <-gctx.Done():
			break loop
		case ev, ok := <-events:
			if !ok {
				slog.Info("platform event stream closed")
				break loop
			}
			switch ev.Type {
			case host.SessionStarted:
				a.startSession(gctx, g, ev.Session)
			case host.SessionStopped:
				a.stopSession(ev.Session.ID())
			default:
				slog.Warn("unknown session event", "type", ev.Type)
			}
		}
	}

	// Cancel any handlers still running, then wait for them to drain.
	a.mu.Lock()
	for _, h := range a.handlers {
		h.cancel()
	}
	a.mu.Unlock()

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// startSession registers a cache entry and starts the per-session event loop.
func (a *App) startSession(ctx context.Context, g *errgroup.Group, sess host.Session) {
	id := sess.ID()

	a.mu.Lock()
	if _, exists := a.handlers[id]; exists {
		a.mu.Unlock()
		slog.Warn("duplicate session start ignored", "session", id)
		return
	}

	hctx, cancel := context.WithCancel(ctx)
	h := &sessionHandler{app: a, sess: sess, cancel: cancel}
	a.handlers[id] = h
	a.mu.Unlock()

	a.cache.Create(id)
	a.metrics.ActiveSessions.Add(ctx, 1)
	slog.Info("session started", "session", id)

	g.Go(func() error {
		defer a.finishSession(id)
		return h.run(hctx)
	})
}

// stopSession cancels the handler for id, if one is running. Cache cleanup
// happens in finishSession once the event loop drains.
func (a *App) stopSession(id string) {
	a.mu.Lock()
	h, ok := a.handlers[id]
	a.mu.Unlock()

	if !ok {
		slog.Debug("stop for unknown session", "session", id)
		return
	}
	h.cancel()
	slog.Info("session stopped", "session", id)
}

// finishSession runs when a session's event loop exits: it discards the
// cache entry and deregisters the handler.
func (a *App) finishSession(id string) {
	a.mu.Lock()
	delete(a.handlers, id)
	a.mu.Unlock()

	a.cache.Clear(id)
	a.metrics.ActiveSessions.Add(context.Background(), -1)
	slog.Debug("session cleaned up", "session", id)
}

// ActiveSessions returns the number of sessions with a running event loop.
func (a *App) ActiveSessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.handlers)
}
