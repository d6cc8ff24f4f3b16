package api

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/miradorstack/posture-dashboard/internal/config"
	"github.com/miradorstack/posture-dashboard/internal/models"
)

func TestDatasetHealth(t *testing.T) {
	srv, err := NewServer(config.ServerConfig{OpsAddress: "127.0.0.1:0", GracefulTimeout: time.Second})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	go srv.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), srv.GracefulTimeout())
		defer cancel()
		srv.Shutdown(ctx)
	}()

	conn, err := grpc.NewClient(srv.Address(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	check := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			t.Fatalf("check %q: %v", service, err)
		}
		return resp.GetStatus()
	}

	if got := check(""); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected overall SERVING, got %v", got)
	}
	kpis := DatasetServiceName(models.DatasetKPIs)
	if got := check(kpis); got != healthpb.HealthCheckResponse_UNKNOWN {
		t.Fatalf("expected UNKNOWN before first cycle, got %v", got)
	}
	srv.SetDatasetHealth(models.DatasetKPIs, false)
	if got := check(kpis); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING, got %v", got)
	}
	srv.SetDatasetHealth(models.DatasetKPIs, true)
	if got := check(kpis); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %v", got)
	}
}
