// Package api serves the dashboard over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/chrisdamba/urbanwatch/internal/aggregator"
	"github.com/chrisdamba/urbanwatch/internal/dashboard"
	"github.com/chrisdamba/urbanwatch/internal/httpx"
	"github.com/chrisdamba/urbanwatch/internal/models"
)

const requestTimeout = 15 * time.Second

// Dashboard is what the handlers read from and refresh.
type Dashboard interface {
	Refresh(ctx context.Context) (*dashboard.Snapshot, error)
	Snapshot() *dashboard.Snapshot
	Cameras() []models.Camera
	Categories() models.CategoryTable
	Status() dashboard.Status
}

type eventsResponse struct {
	SnapshotID  string         `json:"snapshotId"`
	GeneratedAt time.Time      `json:"generatedAt"`
	Count       int            `json:"count"`
	Events      []models.Event `json:"events"`
	Bounds      *models.Bounds `json:"bounds,omitempty"`
}

type statsResponse struct {
	SnapshotID string             `json:"snapshotId"`
	LastUpdate time.Time          `json:"lastUpdate"`
	Summary    aggregator.Summary `json:"summary"`
}

// NewRouter wires the dashboard routes. metricsHandler may be nil.
func NewRouter(d Dashboard, metricsHandler http.Handler, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(httpx.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(requestTimeout))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "urbanwatch"})
	})
	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler)
	}

	router.Route("/api", func(r chi.Router) {
		r.Get("/categories", func(w http.ResponseWriter, _ *http.Request) {
			httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": d.Categories()})
		})

		r.Get("/cameras", func(w http.ResponseWriter, _ *http.Request) {
			cameras := d.Cameras()
			httpx.WriteJSON(w, http.StatusOK, map[string]any{"count": len(cameras), "items": cameras})
		})

		r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
			snap := d.Snapshot()
			events := snap.Events
			if types, ok := r.URL.Query()["types"]; ok {
				events = aggregator.FilterByType(events, splitTypes(types))
			}

			resp := eventsResponse{
				SnapshotID:  snap.ID,
				GeneratedAt: snap.GeneratedAt,
				Count:       len(events),
				Events:      events,
			}
			if b, ok := aggregator.Bounds(events); ok {
				resp.Bounds = &b
			}
			httpx.WriteJSON(w, http.StatusOK, resp)
		})

		r.Get("/events/latest", func(w http.ResponseWriter, _ *http.Request) {
			latest, ok := aggregator.MostRecent(d.Snapshot().Events)
			if !ok {
				httpx.WriteError(w, http.StatusNotFound, "no events")
				return
			}
			httpx.WriteJSON(w, http.StatusOK, latest)
		})

		r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
			snap := d.Snapshot()
			httpx.WriteJSON(w, http.StatusOK, statsResponse{
				SnapshotID: snap.ID,
				LastUpdate: snap.GeneratedAt,
				Summary:    snap.Summary,
			})
		})

		r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
			httpx.WriteJSON(w, http.StatusOK, d.Status())
		})

		r.Post("/refresh", func(w http.ResponseWriter, r *http.Request) {
			snap, err := d.Refresh(r.Context())
			if err != nil {
				handleRefreshError(w, logger, err)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, snap)
		})
	})

	return router
}

// splitTypes flattens repeated and comma separated ?types= values.
func splitTypes(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func handleRefreshError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, dashboard.ErrRefreshInProgress):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(w, http.StatusServiceUnavailable, "refresh cancelled")
	default:
		logger.Error("refresh failed", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
