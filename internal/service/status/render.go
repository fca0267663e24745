package status

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
)

// printHuman writes the report as aligned lines.
func printHuman(
	out io.Writer,
	address string,
	serving healthpb.HealthCheckResponse_ServingStatus,
	report *structpb.Struct,
) error {
	fields := report.GetFields()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	line := func(name, value string) {
		_, _ = fmt.Fprintf(w, "%s:\t%s\n", name, value)
	}

	line("Sentinel", fmt.Sprintf("%s (version %s)", address, str(fields, "version")))
	line("Health", serving.String())
	line("Door", describeDoor(fields))
	line("Enabled", yesNo(fields, "user_enabled"))
	line("Long-open alert", yesNo(fields, "long_open_alert"))
	line("Auto-closed", describeActuation(fields))
	line("System failure", yesNo(fields, "system_failure"))
	line("Sensor fault", yesNo(fields, "hardware_fault"))
	line("Internet", yesNo(fields, "internet_live"))
	line("Indicator", str(fields, "indicator"))
	line("Notifications", describeNotifications(fields))
	line("Restarts", describeRestarts(fields))
	line("Taken at", str(fields, "taken_at"))

	return w.Flush()
}

// describeDoor renders the position and how long the door has been open.
func describeDoor(fields map[string]*structpb.Value) string {
	position := str(fields, "position")

	seconds := fields["open_for_seconds"].GetNumberValue()
	if position != "open" || seconds <= 0 {
		return position
	}

	openFor := time.Duration(seconds * float64(time.Second)).Round(time.Second)

	return fmt.Sprintf("%s for %s", position, openFor)
}

// describeActuation renders whether and when the relay was pulsed.
func describeActuation(fields map[string]*structpb.Value) string {
	if !fields["actuation_taken"].GetBoolValue() {
		return "no"
	}

	return "yes, at " + str(fields, "actuation_time")
}

// describeNotifications renders the dispatcher counters.
func describeNotifications(fields map[string]*structpb.Value) string {
	counters := fields["notifications"].GetStructValue().GetFields()

	return fmt.Sprintf("%d delivered, %d failed, %d dropped",
		int64(counters["delivered"].GetNumberValue()),
		int64(counters["failed"].GetNumberValue()),
		int64(counters["dropped"].GetNumberValue()))
}

// describeRestarts renders loop restart counters sorted by loop name.
func describeRestarts(fields map[string]*structpb.Value) string {
	restarts := fields["restarts"].GetStructValue().GetFields()
	if len(restarts) == 0 {
		return "none"
	}

	names := make([]string, 0, len(restarts))
	for name := range restarts {
		names = append(names, name)
	}

	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", name, int64(restarts[name].GetNumberValue())))
	}

	return strings.Join(parts, ", ")
}

func str(fields map[string]*structpb.Value, key string) string {
	value := fields[key].GetStringValue()
	if value == "" {
		return "-"
	}

	return value
}

func yesNo(fields map[string]*structpb.Value, key string) string {
	if fields[key].GetBoolValue() {
		return "yes"
	}

	return "no"
}
