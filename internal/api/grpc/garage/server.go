package garage

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/garage-sentinel/internal/domain/door"
	"github.com/oshokin/garage-sentinel/internal/logger"
	"github.com/oshokin/garage-sentinel/internal/notify"
)

// Report is everything the status API exposes.
type Report struct {
	// Status is the state snapshot.
	Status *door.Status
	// Indicator names the LED pattern for the status.
	Indicator string
	// Restarts counts loop restarts by loop name.
	Restarts map[string]int
	// Notifications are the dispatcher counters.
	Notifications notify.Stats
	// Version is the daemon build version.
	Version string
	// StartedAt is when the daemon started.
	StartedAt time.Time
}

// Service abstracts the daemon the transport reads from.
type Service interface {
	Report(ctx context.Context) *Report
}

// Server implements the status service.
type Server struct {
	// service provides the reports.
	service Service
}

// NewServer wires the provided service into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// GetStatus returns the current report.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	report := s.service.Report(ctx)
	if report == nil || report.Status == nil {
		return nil, status.Error(codes.Unavailable, "status is not available yet")
	}

	result, err := ToStruct(report)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode status", "error", err)

		return nil, status.Error(codes.Internal, "unable to encode status")
	}

	return result, nil
}

// ToStruct converts a report into its wire form.
func ToStruct(report *Report) (*structpb.Struct, error) {
	s := report.Status

	restarts := make(map[string]any, len(report.Restarts))
	for name, count := range report.Restarts {
		restarts[name] = count
	}

	return structpb.NewStruct(map[string]any{
		"taken_at":              formatTime(s.TakenAt),
		"position":              s.Position.String(),
		"user_enabled":          s.UserEnabled,
		"long_open_alert":       s.LongOpenAlert,
		"long_open_since":       formatTime(s.LongOpenSince),
		"open_for_seconds":      s.OpenFor().Seconds(),
		"notified_this_episode": s.NotifiedThisEpisode,
		"actuation_taken":       s.ActuationTaken,
		"actuation_time":        formatTime(s.ActuationTime),
		"system_failure":        s.SystemFailure,
		"hardware_fault":        s.HardwareFault,
		"internet_live":         s.InternetLive,
		"healthy":               s.Healthy(),
		"indicator":             report.Indicator,
		"restarts":              restarts,
		"notifications": map[string]any{
			"delivered": report.Notifications.Delivered,
			"failed":    report.Notifications.Failed,
			"dropped":   report.Notifications.Dropped,
		},
		"version":    report.Version,
		"started_at": formatTime(report.StartedAt),
	})
}

// formatTime renders t as RFC 3339; the zero time becomes an empty string.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(time.RFC3339)
}
