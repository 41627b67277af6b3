// Package router configures HTTP routes for the monitor's HTTP API.
//
// The monitor exposes an HTTP server on port 8085 (configurable) that serves
// the latest decoded frame, health checks, and Prometheus metrics. This
// package sets up the routes for that HTTP server.
//
// Routes configured:
//   - GET /frame/current?device=<code> - Retrieve the latest decoded frame summary
//   - GET /healthz - Health check endpoint (returns 200 OK)
//   - GET /metrics - Prometheus metrics endpoint
//
// The /frame/current endpoint returns frame summaries in JSON format,
// including per-frame temperature statistics and metadata (sample time,
// receive time, channel, point count). Snapshots older than the stale
// threshold include an X-Dtstail-Stale header.
package router

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HatiCode/dtstail/pkg/httpx"
	"github.com/HatiCode/dtstail/pkg/storage"
)

// SetupRoutes configures HTTP endpoints for the monitor.
func SetupRoutes(store storage.Store, staleAfter time.Duration, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.Handle("/healthz", httpx.HealthHandler())

	// Latest decoded frame endpoint
	mux.HandleFunc("/frame/current", handleGetFrame(store, staleAfter, logger))

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// handleGetFrame returns a handler for GET /frame/current?device=<code>.
func handleGetFrame(store storage.Store, staleAfter time.Duration, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		device := r.URL.Query().Get("device")
		if device == "" {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "device parameter required")
			return
		}

		snapshot, found, err := store.GetLatest(device)
		if err != nil {
			logger.Error("failed to get frame snapshot", "device", device, "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if !found {
			httpx.WriteErrorMessage(w, http.StatusNotFound, fmt.Sprintf("no frame decoded yet for device %q", device))
			return
		}

		if time.Since(snapshot.ReceivedAt) > staleAfter {
			w.Header().Set("X-Dtstail-Stale", "true")
		}

		resp := map[string]any{
			"deviceCode": snapshot.DeviceCode,
			"sampleTime": snapshot.SampleTime,
			"receivedAt": snapshot.ReceivedAt.Format(time.RFC3339),
			"summary":    snapshot.Summary,
		}

		httpx.WriteJSON(w, http.StatusOK, resp)
	}
}
