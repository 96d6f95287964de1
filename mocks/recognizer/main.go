// Command recognizer serves deterministic identity-card and plate recognition
// over gRPC for local development against the checkpoint service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	recognitionpb "checkpoint/api/proto/recognition"
	"checkpoint/internal/platform/logger"
)

func main() {
	cinAddr := flag.String("cin-addr", envOr("CIN_MOCK_ADDR", ":50052"), "identity extraction listen address")
	plateAddr := flag.String("plate-addr", envOr("PLATE_MOCK_ADDR", ":50051"), "plate detection listen address")
	latency := flag.Duration("latency", 0, "artificial delay added to every call")
	flag.Parse()

	log := logger.New(envOr("LOG_LEVEL", "info"), envOr("LOG_FORMAT", "text"), "recognizer-mock")
	rec := &recognizer{logger: log, latency: *latency}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cin := grpc.NewServer(recognitionpb.ServerOption())
	recognitionpb.RegisterCinExtractionServiceServer(cin, rec)
	plate := grpc.NewServer(recognitionpb.ServerOption())
	recognitionpb.RegisterPlateDetectionServiceServer(plate, rec)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(log, cin, *cinAddr, "CinExtractionService") })
	g.Go(func() error { return serve(log, plate, *plateAddr, "PlateDetectionService") })
	g.Go(func() error {
		<-ctx.Done()
		stopGracefully(cin, 5*time.Second)
		stopGracefully(plate, 5*time.Second)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("recognizer mock stopped", "error", err)
		os.Exit(1)
	}
}

func serve(log *slog.Logger, srv *grpc.Server, addr, service string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	log.Info("serving", "service", service, "addr", lis.Addr().String())
	return srv.Serve(lis)
}

func stopGracefully(srv *grpc.Server, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		srv.Stop()
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
