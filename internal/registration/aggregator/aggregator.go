// Package aggregator fans a registration request out to the identity and
// plate recognizers and merges both answers into one registration record.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"checkpoint/internal/recognition"
	"checkpoint/internal/registration/metrics"
	"checkpoint/internal/registration/models"
	dErrors "checkpoint/pkg/domain-errors"
	pstrings "checkpoint/pkg/platform/strings"
	"checkpoint/pkg/requestcontext"
)

// Recognizer extracts structured data from one image.
type Recognizer interface {
	Recognize(ctx context.Context, img recognition.Image) (*recognition.Result, error)
}

// IDGenerator derives a registration id from direction and creation time.
type IDGenerator func(direction models.Direction, at time.Time) string

// DirectionTimestampID renders ids as {DIRECTION}-{epochMillis}. Two requests
// with the same direction in the same millisecond collide; the store's unique
// key rejects the second save.
func DirectionTimestampID(direction models.Direction, at time.Time) string {
	return fmt.Sprintf("%s-%d", strings.ToUpper(string(direction)), at.UnixMilli())
}

// Request is one checkpoint submission.
type Request struct {
	IdentityImage recognition.Image
	VehicleImage  recognition.Image
	Direction     models.Direction
}

// Validate rejects requests that must not reach the recognizers.
func (r Request) Validate() error {
	if r.IdentityImage.Empty() {
		return dErrors.New(dErrors.CodeBadRequest, "identity card image is required")
	}
	if r.VehicleImage.Empty() {
		return dErrors.New(dErrors.CodeBadRequest, "vehicle image is required")
	}
	if !r.Direction.IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "type must be entry or exit")
	}
	return nil
}

// Outcome is the merged aggregation result. Registration is nil when a
// recognition call failed at the transport level.
type Outcome struct {
	Success      bool
	Registration *models.Registration
	Verdict      Verdict
	Error        string
	Latencies    Latencies
}

// Latencies records how long each recognizer took.
type Latencies struct {
	Identity time.Duration
	Plate    time.Duration
}

// Aggregator runs both recognitions concurrently and merges them.
type Aggregator struct {
	identity Recognizer
	plate    Recognizer
	policy   Policy
	newID    IDGenerator
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// Option configures an Aggregator.
type Option func(*Aggregator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(a *Aggregator) {
		a.tracer = tracer
	}
}

// WithPolicy replaces the merge policy.
func WithPolicy(p Policy) Option {
	return func(a *Aggregator) {
		a.policy = p
	}
}

// WithIDGenerator replaces DirectionTimestampID.
func WithIDGenerator(gen IDGenerator) Option {
	return func(a *Aggregator) {
		a.newID = gen
	}
}

// New creates an aggregator over the two recognizers.
func New(identity, plate Recognizer, opts ...Option) *Aggregator {
	a := &Aggregator{
		identity: identity,
		plate:    plate,
		policy:   DefaultPolicy(),
		newID:    DirectionTimestampID,
		logger:   slog.Default(),
		tracer:   otel.Tracer("checkpoint/aggregator"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Process validates req, calls both recognizers concurrently and merges the
// answers. The only error it returns is a validation error; recognition
// failures are reported through a failed Outcome.
func (a *Aggregator) Process(ctx context.Context, req Request) (*Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := a.tracer.Start(ctx, "aggregator.Process",
		trace.WithAttributes(attribute.String("registration.type", string(req.Direction))))
	defer span.End()

	start := time.Now()
	createdAt := requestcontext.Now(ctx).UTC().Truncate(time.Millisecond)

	got, err := a.gather(ctx, req)
	a.metrics.ObserveAggregation(time.Since(start))
	if err != nil {
		msg := recognition.Describe(err)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, msg)
		a.metrics.IncrementOutcome(string(req.Direction), "transport_error")
		a.logger.ErrorContext(ctx, "aggregation failed",
			"request_id", requestcontext.RequestID(ctx),
			"type", req.Direction,
			"category", recognition.CategoryOf(err),
			"error", err,
		)
		return &Outcome{Success: false, Error: msg, Latencies: got.latencies}, nil
	}

	verdict := a.policy.Evaluate(got.identity, got.plate)
	outcome := &Outcome{
		Success:      verdict.Success(),
		Registration: merge(a.newID(req.Direction, createdAt), req.Direction, createdAt, got.identity, got.plate),
		Verdict:      verdict,
		Latencies:    got.latencies,
	}
	if !outcome.Success {
		outcome.Error = incompleteMessage(verdict, got.identity, got.plate)
	}

	result := "success"
	if !outcome.Success {
		result = "incomplete"
	}
	a.metrics.IncrementOutcome(string(req.Direction), result)
	span.SetAttributes(
		attribute.Bool("registration.success", outcome.Success),
		attribute.String("registration.id", outcome.Registration.RegistrationID),
	)
	a.logger.InfoContext(ctx, "aggregation completed",
		"request_id", requestcontext.RequestID(ctx),
		"registration_id", outcome.Registration.RegistrationID,
		"type", req.Direction,
		"success", outcome.Success,
		"identity_ok", verdict.IdentityOK,
		"plate_ok", verdict.PlateOK,
		"identity_ms", got.latencies.Identity.Milliseconds(),
		"plate_ms", got.latencies.Plate.Milliseconds(),
	)
	return outcome, nil
}

type gathered struct {
	identity  *recognition.Result
	plate     *recognition.Result
	latencies Latencies
}

// gather runs both recognitions and waits for both. The first transport
// error wins; no partial result is kept.
func (a *Aggregator) gather(ctx context.Context, req Request) (gathered, error) {
	var out gathered
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		start := time.Now()
		res, err := a.identity.Recognize(gctx, req.IdentityImage)
		out.latencies.Identity = time.Since(start)
		a.metrics.ObserveRecognition(string(recognition.DomainIdentity), resultLabel(err), out.latencies.Identity)
		if err != nil {
			return err
		}
		out.identity = res
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		res, err := a.plate.Recognize(gctx, req.VehicleImage)
		out.latencies.Plate = time.Since(start)
		a.metrics.ObserveRecognition(string(recognition.DomainPlate), resultLabel(err), out.latencies.Plate)
		if err != nil {
			return err
		}
		out.plate = res
		return nil
	})

	if err := g.Wait(); err != nil {
		return gathered{latencies: out.latencies}, err
	}
	return out, nil
}

func resultLabel(err error) string {
	if err != nil {
		return string(recognition.CategoryOf(err))
	}
	return "ok"
}

func merge(id string, direction models.Direction, at time.Time, identity, plate *recognition.Result) *models.Registration {
	first := identity.Field(recognition.FieldFirstName)
	last := identity.Field(recognition.FieldLastName)
	return &models.Registration{
		RegistrationID: id,
		Type:           direction,
		Timestamp:      at,
		IdentityData: models.IdentityData{
			IDNumber:  identity.Field(recognition.FieldIDNumber),
			FirstName: first,
			LastName:  last,
			FullName:  pstrings.JoinNonEmpty(first, last),
			Confidence: models.IdentityConfidence{
				IDNumber:  identity.Confidence(recognition.FieldIDNumber),
				FirstName: identity.Confidence(recognition.FieldFirstName),
				LastName:  identity.Confidence(recognition.FieldLastName),
			},
		},
		PlateData: models.PlateData{
			PlateNumber: plate.Field(recognition.FieldPlateNumber),
			Confidence:  plate.Confidence(recognition.FieldPlateNumber),
		},
	}
}

func incompleteMessage(v Verdict, identity, plate *recognition.Result) string {
	var parts []string
	if !v.IdentityOK {
		parts = append(parts, sideMessage("identity card", identity))
	}
	if !v.PlateOK {
		parts = append(parts, sideMessage("licence plate", plate))
	}
	return strings.Join(parts, "; ")
}

func sideMessage(what string, res *recognition.Result) string {
	if res != nil && res.ErrorMessage != "" {
		return fmt.Sprintf("%s not recognized: %s", what, res.ErrorMessage)
	}
	return what + " not recognized"
}
