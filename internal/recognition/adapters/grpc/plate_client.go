package grpc

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"

	recognitionpb "checkpoint/api/proto/recognition"
	"checkpoint/internal/recognition"
)

// PlateClient reads licence plates from vehicle images.
type PlateClient struct {
	*conn
	client recognitionpb.PlateDetectionServiceClient
}

// NewPlateClient creates a client for the plate detector at addr.
func NewPlateClient(addr string, timeout time.Duration, opts ...Option) (*PlateClient, error) {
	c, err := newConn(recognition.DomainPlate, addr, timeout, opts)
	if err != nil {
		return nil, err
	}
	return &PlateClient{
		conn:   c,
		client: recognitionpb.NewPlateDetectionServiceClient(c.cc),
	}, nil
}

// Recognize sends img to the detector. A transport failure returns a
// *recognition.Error and no result.
func (c *PlateClient) Recognize(ctx context.Context, img recognition.Image) (*recognition.Result, error) {
	ctx, span := c.tracer.Start(ctx, "recognition.plate.DetectPlate")
	defer span.End()
	span.SetAttributes(
		attribute.String("recognition.addr", c.addr),
		attribute.Int("recognition.image_bytes", len(img.Data)),
	)

	start := time.Now()
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.client.DetectPlate(callCtx, &recognitionpb.PlateRequest{
		Image:    img.Data,
		Filename: img.Filename,
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

	return plateResult(resp), nil
}

// Close releases the underlying connection.
func (c *PlateClient) Close() error {
	return c.close()
}

func plateResult(resp *recognitionpb.PlateResponse) *recognition.Result {
	r := &recognition.Result{
		Domain:      recognition.DomainPlate,
		Success:     resp.Success,
		Fields:      map[string]string{recognition.FieldPlateNumber: resp.PlateNumber},
		Confidences: map[string]float64{recognition.FieldPlateNumber: widen(resp.Confidence)},
	}
	if !resp.Success {
		r.ErrorMessage = resp.ErrorMessage
	}
	return r
}
