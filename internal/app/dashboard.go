package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/skylens/skylens/internal/weather"
)

// dashboardLoop periodically re-writes the session's dashboard line from the
// cache so the glasses dashboard keeps showing the last fetch, and blanks it
// once the record goes stale. Runs until ctx is cancelled.
func (h *sessionHandler) dashboardLoop(ctx context.Context) {
	interval := h.app.cfg.Dashboard.UpdateInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.refreshDashboard(ctx)
		}
	}
}

// refreshDashboard writes the current cache state to the dashboard sink.
func (h *sessionHandler) refreshDashboard(ctx context.Context) {
	id := h.sess.ID()
	state, ok := h.app.cache.Get(id)
	if !ok || state.Record == nil {
		return
	}

	line := ""
	if h.app.now().Sub(state.UpdatedAt) < h.app.cfg.Session.FreshnessWindow {
		line = weather.DashboardLine(*state.Record)
	}

	if err := h.sess.WriteDashboard(ctx, line); err != nil {
		slog.Warn("dashboard refresh failed", "session", id, "err", err)
	}
}
