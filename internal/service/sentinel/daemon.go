package sentinel

import (
	"context"
	"time"

	api "github.com/oshokin/garage-sentinel/internal/api/grpc/garage"
	"github.com/oshokin/garage-sentinel/internal/indicator"
	"github.com/oshokin/garage-sentinel/internal/monitor"
	"github.com/oshokin/garage-sentinel/internal/notify"
)

// daemon exposes the running sentinel to the status API.
type daemon struct {
	// state is the shared status block.
	state *monitor.State
	// supervisor restarts failed loops.
	supervisor *monitor.Supervisor
	// dispatcher delivers notifications.
	dispatcher *notify.Dispatcher
	// version is the build version.
	version string
	// startedAt is when Run started.
	startedAt time.Time
}

// Report assembles the current status report.
func (d *daemon) Report(context.Context) *api.Report {
	status := d.state.Snapshot()

	report := &api.Report{
		Status:    status,
		Indicator: indicator.Select(status).Name,
		Version:   d.version,
		StartedAt: d.startedAt,
	}

	if d.supervisor != nil {
		report.Restarts = d.supervisor.Restarts()
	}

	if d.dispatcher != nil {
		report.Notifications = d.dispatcher.Stats()
	}

	return report
}
