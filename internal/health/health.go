// Package health exposes the intake loop's state over the standard gRPC
// health protocol.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
)

// IntakeService is the service name whose status tracks the intake loop.
// It is NOT_SERVING while a rollover is verifying, since taps queue up
// rather than being handled.
const IntakeService = "rollcall.intake"

type Server struct {
	grpc   *grpc.Server
	health *grpchealth.Server
	logger *slog.Logger
}

func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{health: grpchealth.NewServer(), logger: logger}
	s.grpc = grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			s.recoveryInterceptor,
			s.loggingInterceptor,
		),
	)

	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(IntakeService, healthpb.HealthCheckResponse_SERVING)
	return s
}

// Observe updates the intake status from a loop snapshot.  It has the
// signature of the engine's state-change hook.
func (s *Server) Observe(snap types.RunSnapshot) {
	st := healthpb.HealthCheckResponse_SERVING
	if snap.Verifying {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(IntakeService, st)
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Shutdown marks every service NOT_SERVING and stops gracefully, forcing a
// stop if ctx ends first.
func (s *Server) Shutdown(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}
}

func (s *Server) loggingInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.WarnContext(ctx, "rpc completed", "method", info.FullMethod, "duration", time.Since(start), "err", err)
	} else {
		s.logger.DebugContext(ctx, "rpc completed", "method", info.FullMethod, "duration", time.Since(start))
	}
	return resp, err
}

// recoveryInterceptor turns a handler panic into codes.Internal.
func (s *Server) recoveryInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "panic recovered in gRPC handler",
				"method", info.FullMethod,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}
