package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"checkpoint/internal/registration/metrics"
	"checkpoint/internal/registration/models"
	"checkpoint/pkg/platform/sentinel"
	"checkpoint/pkg/requestcontext"
)

// Gateway is the persistence API used by the registration service. Write and
// stats failures are logged and reduced to booleans or zero values.
type Gateway struct {
	backend  Backend
	logger   *slog.Logger
	metrics  *metrics.Metrics
	location *time.Location
	newID    func() string
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) GatewayOption {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithLocation sets the zone whose midnight starts "today" in stats.
func WithLocation(loc *time.Location) GatewayOption {
	return func(g *Gateway) {
		g.location = loc
	}
}

// WithIDFunc overrides the UUID generator used for records without an id.
func WithIDFunc(fn func() string) GatewayOption {
	return func(g *Gateway) {
		g.newID = fn
	}
}

// NewGateway wraps backend.
func NewGateway(backend Backend, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		backend:  backend,
		logger:   slog.Default(),
		location: time.Local,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Save fills in a missing id and timestamp, then inserts r. A duplicate id
// fails like any other write error.
func (g *Gateway) Save(ctx context.Context, r *models.Registration) bool {
	if r == nil {
		return false
	}
	if !r.Type.IsValid() {
		g.logger.ErrorContext(ctx, "refusing to save registration with invalid type",
			"registration_id", r.RegistrationID,
			"type", r.Type,
		)
		g.metrics.IncrementStoreOperation("save", false)
		return false
	}
	if r.RegistrationID == "" {
		r.RegistrationID = g.newID()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = requestcontext.Now(ctx).UTC()
	}

	if err := g.backend.Insert(ctx, r); err != nil {
		g.logger.ErrorContext(ctx, "failed to save registration",
			"registration_id", r.RegistrationID,
			"duplicate", errors.Is(err, sentinel.ErrConflict),
			"error", err,
		)
		g.metrics.IncrementStoreOperation("save", false)
		return false
	}
	g.metrics.IncrementStoreOperation("save", true)
	return true
}

// FindByID returns the registration and whether it exists. Read failures are
// logged and reported as absent.
func (g *Gateway) FindByID(ctx context.Context, id string) (*models.Registration, bool) {
	r, err := g.backend.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			g.logger.ErrorContext(ctx, "failed to find registration", "registration_id", id, "error", err)
			g.metrics.IncrementStoreOperation("find", false)
		}
		return nil, false
	}
	g.metrics.IncrementStoreOperation("find", true)
	return r, true
}

// FindAll returns every registration in no particular order; callers sort.
func (g *Gateway) FindAll(ctx context.Context) ([]*models.Registration, error) {
	rs, err := g.backend.List(ctx)
	g.metrics.IncrementStoreOperation("find_all", err == nil)
	return rs, err
}

// DeleteByID reports whether a registration was removed.
func (g *Gateway) DeleteByID(ctx context.Context, id string) bool {
	if err := g.backend.Delete(ctx, id); err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			g.logger.ErrorContext(ctx, "failed to delete registration", "registration_id", id, "error", err)
		}
		g.metrics.IncrementStoreOperation("delete", false)
		return false
	}
	g.metrics.IncrementStoreOperation("delete", true)
	return true
}

// Search returns registrations matching q, newest first.
func (g *Gateway) Search(ctx context.Context, q models.Query) ([]*models.Registration, error) {
	rs, err := g.backend.Search(ctx, q)
	g.metrics.IncrementStoreOperation("search", err == nil)
	return rs, err
}

// ComputeStats summarizes the collection. Failures yield zero counts and a
// nil latest timestamp.
func (g *Gateway) ComputeStats(ctx context.Context) models.Stats {
	todayStart := models.StartOfDay(requestcontext.Now(ctx).In(g.location))
	stats, err := g.backend.Stats(ctx, todayStart)
	if err != nil {
		g.logger.ErrorContext(ctx, "failed to compute registration stats", "error", err)
		g.metrics.IncrementStoreOperation("stats", false)
		return models.Stats{}
	}
	g.metrics.IncrementStoreOperation("stats", true)
	return stats
}
