package httpapi

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"surveyhub.org/internal/obs"
)

// GRPCServer exposes the standard gRPC health service beside the HTTP API so
// orchestrators can probe readiness without HTTP.
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	probe  ReadyProbe
}

// NewGRPCServer wires the stock health service.
func NewGRPCServer(probe ReadyProbe) *GRPCServer {
	s := grpc.NewServer()
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)
	return &GRPCServer{server: s, health: h, probe: probe}
}

// Serve listens on addr and re-evaluates readiness every few seconds until
// the context ends.
func (g *GRPCServer) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		g.refresh(ctx)
		for {
			select {
			case <-ctx.Done():
				g.server.GracefulStop()
				return
			case <-ticker.C:
				g.refresh(ctx)
			}
		}
	}()

	return g.server.Serve(lis)
}

func (g *GRPCServer) refresh(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := g.probe.Check(checkCtx); err != nil {
		g.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		obs.SetReady(false)
		return
	}
	g.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	obs.SetReady(true)
}
