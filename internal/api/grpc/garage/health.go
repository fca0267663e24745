package garage

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/garage-sentinel/internal/clock"
	"github.com/oshokin/garage-sentinel/internal/domain/door"
	"github.com/oshokin/garage-sentinel/internal/logger"
)

// StatusSource provides the state snapshot.
type StatusSource interface {
	Snapshot() *door.Status
}

// HealthReporter mirrors the fault flags into the standard health service.
type HealthReporter struct {
	server   *health.Server
	source   StatusSource
	clock    clock.Clock
	interval time.Duration
}

// NewHealthReporter creates a reporter updating server every interval.
func NewHealthReporter(server *health.Server, source StatusSource, clk clock.Clock, interval time.Duration) *HealthReporter {
	return &HealthReporter{
		server:   server,
		source:   source,
		clock:    clk,
		interval: interval,
	}
}

// Name identifies the loop in logs.
func (r *HealthReporter) Name() string {
	return "health-reporter"
}

// Run updates the health status until ctx is done.
func (r *HealthReporter) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, r.Name())

	last := healthpb.HealthCheckResponse_UNKNOWN

	for {
		current := r.Update()
		if current != last {
			logger.InfoKV(ctx, "Health status changed", "status", current.String())
			last = current
		}

		if err := r.clock.Sleep(ctx, r.interval); err != nil {
			return nil
		}
	}
}

// Update sets the health status from the current snapshot and returns it.
func (r *HealthReporter) Update() healthpb.HealthCheckResponse_ServingStatus {
	current := ServingStatus(r.source.Snapshot())

	r.server.SetServingStatus("", current)
	r.server.SetServingStatus(ServiceName, current)

	return current
}

// ServingStatus maps a snapshot to a health status.
func ServingStatus(s *door.Status) healthpb.HealthCheckResponse_ServingStatus {
	if s == nil || !s.Healthy() {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}

	return healthpb.HealthCheckResponse_SERVING
}
