// Package grpc adapts the identity and plate recognition backends to the
// recognition result model.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	recognitionpb "checkpoint/api/proto/recognition"
	"checkpoint/internal/recognition"
	"checkpoint/pkg/requestcontext"
)

const tracerName = "checkpoint/recognition"

// Option configures a recognition client.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	tracer      trace.Tracer
	dialOptions []grpc.DialOption
}

// WithLogger sets the logger used for call diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracer overrides the global otel tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithDialOptions appends gRPC dial options, e.g. a bufconn dialer in tests.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) {
		o.dialOptions = append(o.dialOptions, opts...)
	}
}

// conn is the part both clients share: one multiplexed channel, a fixed
// per-call deadline and error normalization.
type conn struct {
	cc      *grpc.ClientConn
	addr    string
	timeout time.Duration
	domain  recognition.Domain
	logger  *slog.Logger
	tracer  trace.Tracer
}

func newConn(domain recognition.Domain, addr string, timeout time.Duration, opts []Option) (*conn, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}

	// TODO: switch to TLS credentials once the recognizers terminate TLS.
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		recognitionpb.DialOption(),
	}, o.dialOptions...)

	cc, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s recognition service: %w", domain, err)
	}

	return &conn{
		cc:      cc,
		addr:    addr,
		timeout: timeout,
		domain:  domain,
		logger:  o.logger,
		tracer:  o.tracer,
	}, nil
}

// callContext detaches ctx from upstream cancellation, applies the call
// deadline and forwards the request id.
func (c *conn) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-request-id", requestID)
	}
	return ctx, cancel
}

func (c *conn) logResult(ctx context.Context, start time.Time, filename string, err error) {
	attrs := []any{
		"domain", string(c.domain),
		"addr", c.addr,
		"filename", filename,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		c.logger.WarnContext(ctx, "recognition call failed", append(attrs, "error", err)...)
		return
	}
	c.logger.DebugContext(ctx, "recognition call completed", attrs...)
}

func (c *conn) close() error {
	return c.cc.Close()
}

// mapGRPCError turns a gRPC failure into a categorized recognition error
// carrying the operator-facing message.
func (c *conn) mapGRPCError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return recognition.NewError(c.domain, recognition.ErrorInternal,
			fmt.Sprintf("Client-side error: %v", err), err)
	}

	msg := "gRPC error: " + codeName(st.Code())
	if details := st.Message(); details != "" {
		msg += " (" + details + ")"
	}

	category := recognition.ErrorInternal
	switch st.Code() {
	case codes.DeadlineExceeded:
		msg += " - The request timed out."
		category = recognition.ErrorTimeout
	case codes.Unavailable:
		msg += fmt.Sprintf(" - The server at %s might not be running or is unreachable.", c.addr)
		category = recognition.ErrorUnavailable
	case codes.InvalidArgument, codes.DataLoss, codes.OutOfRange:
		category = recognition.ErrorBadData
	}
	return recognition.NewError(c.domain, category, msg, err)
}

// codeName renders a status code the way gRPC spells it on the wire docs,
// e.g. DEADLINE_EXCEEDED.
func codeName(code codes.Code) string {
	name := code.String()
	var b strings.Builder
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(rune(name[i-1])) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// widen converts a wire float to float64 without exposing float32 rounding
// noise (0.95 stays 0.95).
func widen(f float32) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	if err != nil {
		return float64(f)
	}
	return v
}
