// Package httpapi assembles the service's HTTP surface.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"checkpoint/internal/events"
	"checkpoint/internal/platform/metrics"
	"checkpoint/internal/platform/middleware"
	"checkpoint/pkg/platform/httputil"
	"checkpoint/pkg/platform/middleware/metadata"
	"checkpoint/pkg/platform/middleware/request"
	"checkpoint/pkg/platform/middleware/requesttime"
)

// Publisher is what /health reports about the event publisher.
type Publisher interface {
	IsEnabled() bool
	State() events.State
}

// HealthCheck checks one dependency.
type HealthCheck func(ctx context.Context) error

// Routes is something that mounts its endpoints on a router.
type Routes interface {
	Register(r chi.Router)
}

// Deps are the pieces the router needs.
type Deps struct {
	Logger      *slog.Logger
	ServiceID   string
	Publisher   Publisher
	Checks      map[string]HealthCheck
	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTP
	Routes      []Routes
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Publisher PublisherHealth   `json:"publisher"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// PublisherHealth describes the event publisher.
type PublisherHealth struct {
	Enabled bool   `json:"enabled"`
	State   string `json:"state"`
}

// NewRouter wires middleware, operational endpoints and domain routes.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.LatencyMiddleware(d.HTTPMetrics))

	r.Get("/health", healthHandler(d))
	if d.Registry != nil {
		r.Handle("/metrics", metrics.Handler(d.Registry))
	}
	for _, routes := range d.Routes {
		routes.Register(r)
	}
	return r
}

func healthHandler(d Deps) http.HandlerFunc {
	names := make([]string, 0, len(d.Checks))
	for name := range d.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok", Service: d.ServiceID}
		if d.Publisher != nil {
			resp.Publisher = PublisherHealth{
				Enabled: d.Publisher.IsEnabled(),
				State:   d.Publisher.State().String(),
			}
		}

		status := http.StatusOK
		if len(names) > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			resp.Checks = make(map[string]string, len(names))
			for _, name := range names {
				if err := d.Checks[name](ctx); err != nil {
					resp.Checks[name] = err.Error()
					resp.Status = "degraded"
					status = http.StatusServiceUnavailable
					continue
				}
				resp.Checks[name] = "ok"
			}
		}
		httputil.WriteJSON(w, status, resp)
	}
}
