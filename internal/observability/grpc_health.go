package observability

import (
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCHealth serves the standard grpc.health.v1 service so that container
// orchestrators can check the process over gRPC
type GRPCHealth struct {
	server *grpc.Server
	health *health.Server
	lis    net.Listener
}

// StartGRPCHealth listens on addr and starts serving in the background.
// Serve failures are reported through logger.
func StartGRPCHealth(addr string, logger zerolog.Logger) (*GRPCHealth, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for grpc health on %s: %w", addr, err)
	}

	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)

	go func() {
		if err := srv.Serve(lis); err != nil && err != grpc.ErrServerStopped {
			logger.Error().Err(err).Msg("gRPC health server stopped")
		}
	}()

	return &GRPCHealth{server: srv, health: hs, lis: lis}, nil
}

// Addr returns the bound listen address
func (g *GRPCHealth) Addr() string {
	return g.lis.Addr().String()
}

// SetServing flips both the overall and the named service status
func (g *GRPCHealth) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(serviceName, status)
}

// Stop marks the service as shutting down and stops the server
func (g *GRPCHealth) Stop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}
