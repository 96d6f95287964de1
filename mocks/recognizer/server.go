package main

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	recognitionpb "checkpoint/api/proto/recognition"
)

type person struct {
	idNumber  string
	firstName string
	lastName  string
}

var people = []person{
	{"AB123456", "Amina", "Benali"},
	{"CD789012", "Youssef", "El Idrissi"},
	{"EE345678", "Salma", "Ouazzani"},
	{"FG901234", "Karim", "Tazi"},
	{"JK567890", "Nadia", "Cherkaoui"},
}

var plates = []string{
	"12345-A-6",
	"67890-B-1",
	"24680-D-33",
	"13579-H-7",
	"11223-W-40",
}

// recognizer answers both services deterministically: the same image bytes
// always yield the same person or plate. Filenames steer the failure modes:
// "unreadable" gives an empty unsuccessful answer, "partial" gives data with
// success unset, "corrupt" is rejected as invalid.
type recognizer struct {
	logger  *slog.Logger
	latency time.Duration
}

func (r *recognizer) ExtractCinData(ctx context.Context, in *recognitionpb.CinRequest) (*recognitionpb.CinResponse, error) {
	if err := r.prepare(ctx, "identity", in.ImageData, in.Filename); err != nil {
		return nil, err
	}

	name := strings.ToLower(in.Filename)
	if strings.Contains(name, "unreadable") {
		return &recognitionpb.CinResponse{ErrorMessage: "no identity card detected"}, nil
	}

	p := people[pick(in.ImageData, len(people))]
	return &recognitionpb.CinResponse{
		Success:            !strings.Contains(name, "partial"),
		IdNumber:           p.idNumber,
		Name:               p.firstName,
		Lastname:           p.lastName,
		ConfidenceId:       0.97,
		ConfidenceName:     0.91,
		ConfidenceLastname: 0.89,
	}, nil
}

func (r *recognizer) DetectPlate(ctx context.Context, in *recognitionpb.PlateRequest) (*recognitionpb.PlateResponse, error) {
	if err := r.prepare(ctx, "plate", in.Image, in.Filename); err != nil {
		return nil, err
	}

	name := strings.ToLower(in.Filename)
	if strings.Contains(name, "unreadable") {
		return &recognitionpb.PlateResponse{ErrorMessage: "no plate detected"}, nil
	}

	return &recognitionpb.PlateResponse{
		Success:     !strings.Contains(name, "partial"),
		PlateNumber: plates[pick(in.Image, len(plates))],
		Confidence:  0.93,
	}, nil
}

func (r *recognizer) prepare(ctx context.Context, kind string, image []byte, filename string) error {
	r.logger.InfoContext(ctx, "recognition request", "kind", kind, "filename", filename, "bytes", len(image))

	if len(image) == 0 {
		return status.Error(codes.InvalidArgument, "empty image")
	}
	if strings.Contains(strings.ToLower(filename), "corrupt") {
		return status.Error(codes.InvalidArgument, "image could not be decoded")
	}
	if r.latency > 0 {
		select {
		case <-time.After(r.latency):
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		}
	}
	return nil
}

func pick(data []byte, n int) int {
	sum := sha256.Sum256(data)
	return int(binary.BigEndian.Uint32(sum[:4]) % uint32(n))
}
