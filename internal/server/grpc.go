package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthhandler "github.com/meisaku0/backend/internal/health/handler"
)

// NewGRPCServer returns a gRPC server serving grpc.health.v1.Health, instrumented with
// OpenTelemetry. Load balancers and Kubernetes probe it alongside /healthz.
func NewGRPCServer(health *healthhandler.Server) *grpc.Server {
	s := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthpb.RegisterHealthServer(s, health)
	return s
}
