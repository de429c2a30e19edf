// Command skylens is the main entry point for the SkyLens weather client.
//
// It connects to the lens host runtime over WebSocket, serves voice-driven
// weather commands for each glasses session, and exposes an ops HTTP server
// with health probes and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skylens/skylens/internal/app"
	"github.com/skylens/skylens/internal/config"
	"github.com/skylens/skylens/internal/health"
	"github.com/skylens/skylens/internal/observe"
	"github.com/skylens/skylens/pkg/host/lenshost"
	"github.com/skylens/skylens/pkg/provider/geocode"
	geocodeow "github.com/skylens/skylens/pkg/provider/geocode/openweather"
	"github.com/skylens/skylens/pkg/provider/weather"
	weatherow "github.com/skylens/skylens/pkg/provider/weather/openweather"
)

// logLevel is mutable so config hot-reload can adjust verbosity at runtime.
var logLevel = new(slog.LevelVar)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "skylens: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "skylens: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("skylens starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"host_url", cfg.Host.URL,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "skylens",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Weather providers ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	geocoder, err := reg.CreateGeocode(cfg.Weather)
	if err != nil {
		slog.Error("failed to create geocode provider", "provider", cfg.Weather.Provider, "err", err)
		return 1
	}
	conditions, err := reg.CreateWeather(cfg.Weather)
	if err != nil {
		slog.Error("failed to create weather provider", "provider", cfg.Weather.Provider, "err", err)
		return 1
	}
	slog.Info("weather providers created", "provider", cfg.Weather.Provider)

	// ── Host runtime connection ───────────────────────────────────────────────
	dialCtx, dialCancel := context.WithTimeout(ctx, 30*time.Second)
	platform, err := lenshost.Dial(dialCtx, cfg.Host.URL, cfg.Host.AppID, cfg.Host.AppKey)
	dialCancel()
	if err != nil {
		slog.Error("failed to connect to host runtime", "url", cfg.Host.URL, "err", err)
		return 1
	}
	defer platform.Close()
	slog.Info("connected to host runtime", "url", cfg.Host.URL)

	// ── Ops HTTP server ───────────────────────────────────────────────────────
	opsServer := newOpsServer(cfg.Server.ListenAddr, platform, geocoder, conditions)
	go func() {
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ops server error", "err", err)
		}
	}()

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, onConfigChange)
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Run ───────────────────────────────────────────────────────────────────
	printStartupSummary(cfg)
	slog.Info("skylens ready — press Ctrl+C to shut down")

	application := app.New(cfg, platform, geocoder, conditions)
	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := platform.Close(); err != nil {
		slog.Warn("host connection close error", "err", err)
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("ops server shutdown error", "err", err)
	}

	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires the provider factories that ship with
// SkyLens into reg. Each factory constructs its client from the weather
// section of the configuration.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterGeocode("openweather", func(cfg config.WeatherConfig) (geocode.Provider, error) {
		var opts []geocodeow.Option
		if cfg.GeocodeBaseURL != "" {
			opts = append(opts, geocodeow.WithBaseURL(cfg.GeocodeBaseURL))
		}
		return geocodeow.New(cfg.APIKey, opts...)
	})

	reg.RegisterWeather("openweather", func(cfg config.WeatherConfig) (weather.Provider, error) {
		var opts []weatherow.Option
		if cfg.WeatherBaseURL != "" {
			opts = append(opts, weatherow.WithBaseURL(cfg.WeatherBaseURL))
		}
		return weatherow.New(cfg.APIKey, opts...)
	})
}

// ── Ops server ────────────────────────────────────────────────────────────────

// newOpsServer builds the operational HTTP server: /healthz, /readyz and
// /metrics, instrumented with the request middleware.
func newOpsServer(addr string, platform *lenshost.Platform, geocoder geocode.Provider, conditions weather.Provider) *http.Server {
	checkers := []health.Checker{health.HostCheck(platform)}
	if b, ok := geocoder.(health.BreakerState); ok {
		checkers = append(checkers, health.ProviderCheck("geocode", b))
	}
	if b, ok := conditions.(health.BreakerState); ok {
		checkers = append(checkers, health.ProviderCheck("weather", b))
	}

	mux := http.NewServeMux()
	health.New(checkers...).Register(mux)
	mux.Handle("/metrics", promhttp.Handler())

	handler := observe.Middleware(observe.DefaultMetrics())(mux)

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ── Config hot reload ─────────────────────────────────────────────────────────

// onConfigChange applies the reloadable parts of a config update. Only the
// log level takes effect live; everything else needs a restart.
func onConfigChange(old, updated *config.Config) {
	diff := config.Diff(old, updated)
	if !diff.Any() {
		return
	}

	if diff.LogLevelChanged {
		logLevel.Set(slogLevel(diff.NewLogLevel))
		slog.Info("log level updated", "level", diff.NewLogLevel)
	}
	if diff.ParserChanged || diff.SessionChanged || diff.DashboardChanged {
		slog.Warn("config changed in sections that require a restart to take effect",
			"parser", diff.ParserChanged,
			"session", diff.SessionChanged,
			"dashboard", diff.DashboardChanged,
		)
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         SkyLens — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printLine("Provider", cfg.Weather.Provider)
	printLine("Host URL", cfg.Host.URL)
	printLine("Freshness", cfg.Session.FreshnessWindow.String())
	printLine("Accuracy", string(cfg.Session.LocationAccuracy))
	printLine("Listen addr", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printLine(name, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", name, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
