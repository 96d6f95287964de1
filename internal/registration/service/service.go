// Package service coordinates a checkpoint submission: aggregation first,
// then persistence and event publication, each best-effort and independent.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"checkpoint/internal/events"
	"checkpoint/internal/registration/aggregator"
	"checkpoint/internal/registration/models"
	dErrors "checkpoint/pkg/domain-errors"
	"checkpoint/pkg/requestcontext"
)

// Aggregator turns a submission into a merged outcome.
type Aggregator interface {
	Process(ctx context.Context, req aggregator.Request) (*aggregator.Outcome, error)
}

// Store is the persistence gateway.
type Store interface {
	Save(ctx context.Context, r *models.Registration) bool
	FindByID(ctx context.Context, id string) (*models.Registration, bool)
	FindAll(ctx context.Context) ([]*models.Registration, error)
	DeleteByID(ctx context.Context, id string) bool
	Search(ctx context.Context, q models.Query) ([]*models.Registration, error)
	ComputeStats(ctx context.Context) models.Stats
}

// Publisher emits registration, notification and error events.
type Publisher interface {
	PublishRegistration(ctx context.Context, r *models.Registration) bool
	PublishNotification(ctx context.Context, message string, level events.Level, metadata map[string]any) bool
	PublishError(ctx context.Context, errMsg, source string, details map[string]any) bool
}

// Result reports what happened to a submission after aggregation.
type Result struct {
	Outcome   *aggregator.Outcome
	Saved     bool
	Published bool
}

// Service is the registration front-door coordinator.
type Service struct {
	aggregator Aggregator
	store      Store
	publisher  Publisher
	logger     *slog.Logger
	// followUpTimeout bounds the save and publish step of Register.
	followUpTimeout time.Duration
}

const defaultFollowUpTimeout = 30 * time.Second

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithFollowUpTimeout bounds how long Register spends storing and publishing
// a recognized registration.
func WithFollowUpTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.followUpTimeout = d
	}
}

// New wires the coordinator.
func New(agg Aggregator, store Store, publisher Publisher, opts ...Option) *Service {
	s := &Service{
		aggregator: agg,
		store:      store,
		publisher:  publisher,
		logger:     slog.Default(),

		followUpTimeout: defaultFollowUpTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register aggregates req and, when recognition succeeded, stores and
// announces the record. extra is copied onto the record's open fields. Only
// validation errors are returned; everything else is reported in Result.
// Storing and publishing do not stop when ctx is cancelled: once recognition
// has run, the caller hanging up does not discard the record.
func (s *Service) Register(ctx context.Context, req aggregator.Request, extra map[string]any) (*Result, error) {
	outcome, err := s.aggregator.Process(ctx, req)
	if err != nil {
		return nil, err
	}
	result := &Result{Outcome: outcome}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.followUpTimeout)
	defer cancel()

	if !outcome.Success {
		details := map[string]any{
			"type":       string(req.Direction),
			"request_id": requestcontext.RequestID(ctx),
		}
		if outcome.Registration != nil {
			details["registrationId"] = outcome.Registration.RegistrationID
		}
		s.publisher.PublishError(ctx, outcome.Error, "aggregator", details)
		return result, nil
	}

	r := outcome.Registration
	if len(extra) > 0 {
		if r.Extra == nil {
			r.Extra = make(map[string]any, len(extra))
		}
		maps.Copy(r.Extra, extra)
	}

	result.Saved = s.store.Save(ctx, r)
	if !result.Saved {
		s.logger.ErrorContext(ctx, "registration not persisted",
			"request_id", requestcontext.RequestID(ctx),
			"registration_id", r.RegistrationID,
		)
	}

	result.Published = s.publisher.PublishRegistration(ctx, r)
	s.publisher.PublishNotification(ctx, registeredMessage(r), events.LevelInfo, map[string]any{
		"registrationId": r.RegistrationID,
		"type":           string(r.Type),
		"plateNumber":    r.PlateData.PlateNumber,
		"idNumber":       r.IdentityData.IDNumber,
	})

	s.logger.InfoContext(ctx, "registration processed",
		"request_id", requestcontext.RequestID(ctx),
		"registration_id", r.RegistrationID,
		"saved", result.Saved,
		"published", result.Published,
	)
	return result, nil
}

func registeredMessage(r *models.Registration) string {
	plate := r.PlateData.PlateNumber
	if plate == "" {
		plate = "unknown plate"
	}
	verb := "entered"
	if r.Type == models.DirectionExit {
		verb = "left"
	}
	return fmt.Sprintf("Vehicle %s %s the checkpoint", plate, verb)
}

// List returns every registration, newest first.
func (s *Service) List(ctx context.Context) ([]*models.Registration, error) {
	rs, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	sortNewestFirst(rs)
	return rs, nil
}

// Get returns one registration.
func (s *Service) Get(ctx context.Context, id string) (*models.Registration, error) {
	r, ok := s.store.FindByID(ctx, id)
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
	}
	return r, nil
}

// Delete removes one registration and announces the removal.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !s.store.DeleteByID(ctx, id) {
		return dErrors.New(dErrors.CodeNotFound, "registration not found")
	}
	s.publisher.PublishNotification(ctx, fmt.Sprintf("Registration %s deleted", id), events.LevelWarning,
		map[string]any{"registrationId": id})
	return nil
}

// Search filters by plate and/or id number. An empty query is rejected.
func (s *Service) Search(ctx context.Context, q models.Query) ([]*models.Registration, error) {
	if q.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "plate or idNumber is required")
	}
	rs, err := s.store.Search(ctx, q)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search registrations")
	}
	sortNewestFirst(rs)
	return rs, nil
}

// Stats summarizes the collection.
func (s *Service) Stats(ctx context.Context) models.Stats {
	return s.store.ComputeStats(ctx)
}

func sortNewestFirst(rs []*models.Registration) {
	slices.SortStableFunc(rs, func(a, b *models.Registration) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}
