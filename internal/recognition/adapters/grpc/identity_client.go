package grpc

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"

	recognitionpb "checkpoint/api/proto/recognition"
	"checkpoint/internal/recognition"
)

// IdentityClient extracts identity fields from ID-card images.
type IdentityClient struct {
	*conn
	client recognitionpb.CinExtractionServiceClient
}

// NewIdentityClient creates a client for the identity extractor at addr.
// The connection is established lazily on the first call.
func NewIdentityClient(addr string, timeout time.Duration, opts ...Option) (*IdentityClient, error) {
	c, err := newConn(recognition.DomainIdentity, addr, timeout, opts)
	if err != nil {
		return nil, err
	}
	return &IdentityClient{
		conn:   c,
		client: recognitionpb.NewCinExtractionServiceClient(c.cc),
	}, nil
}

// Recognize sends img to the extractor. A transport failure returns a
// *recognition.Error and no result.
func (c *IdentityClient) Recognize(ctx context.Context, img recognition.Image) (*recognition.Result, error) {
	ctx, span := c.tracer.Start(ctx, "recognition.identity.ExtractCinData")
	defer span.End()
	span.SetAttributes(
		attribute.String("recognition.addr", c.addr),
		attribute.Int("recognition.image_bytes", len(img.Data)),
	)

	start := time.Now()
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.client.ExtractCinData(callCtx, &recognitionpb.CinRequest{
		ImageData: img.Data,
		Filename:  img.Filename,
	})
	if err != nil {
		mapped := c.mapGRPCError(err)
		span.RecordError(mapped)
		span.SetStatus(otelcodes.Error, mapped.Error())
		c.logResult(ctx, start, img.Filename, mapped)
		return nil, mapped
	}
	c.logResult(ctx, start, img.Filename, nil)
	span.SetAttributes(attribute.Bool("recognition.success", resp.Success))

	return identityResult(resp), nil
}

// Close releases the underlying connection.
func (c *IdentityClient) Close() error {
	return c.close()
}

func identityResult(resp *recognitionpb.CinResponse) *recognition.Result {
	r := &recognition.Result{
		Domain:  recognition.DomainIdentity,
		Success: resp.Success,
		Fields: map[string]string{
			recognition.FieldIDNumber:  resp.IdNumber,
			recognition.FieldFirstName: resp.Name,
			recognition.FieldLastName:  resp.Lastname,
		},
		Confidences: map[string]float64{
			recognition.FieldIDNumber:  widen(resp.ConfidenceId),
			recognition.FieldFirstName: widen(resp.ConfidenceName),
			recognition.FieldLastName:  widen(resp.ConfidenceLastname),
		},
	}
	if !resp.Success {
		r.ErrorMessage = resp.ErrorMessage
	}
	return r
}
