package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tickstream/tick-ingestor/internal/ingest"
	"github.com/tickstream/tick-ingestor/internal/metrics"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type connState interface {
	IsConnected() bool
}

type statsSource interface {
	Stats() ingest.Stats
}

// newHealthHandler creates the HTTP handler for health checks and metrics.
func newHealthHandler(db pinger, feed connState, pipeline statsSource, metricsPath string, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		// Check database
		if err := db.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["timescaledb"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["timescaledb"] = "connected"
		}

		// Check feed
		if feed.IsConnected() {
			health.Components["feed"] = "connected"
		} else {
			health.Status = "unhealthy"
			health.Components["feed"] = "disconnected"
		}

		stats := pipeline.Stats()
		health.Components["batch"] = map[string]any{
			"pending": stats.BatchSize,
			"flushes": stats.Flushes,
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(health); err != nil {
			logger.Warn("write health response", "error", err)
		}
	})

	mux.HandleFunc("/debug/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(pipeline.Stats())
	})

	mux.Handle(metricsPath, metrics.Handler())

	return mux
}
