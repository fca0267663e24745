package status

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/garage-sentinel/internal/api/grpc/garage"
	"github.com/oshokin/garage-sentinel/internal/config"
	"github.com/oshokin/garage-sentinel/internal/discovery"
	"github.com/oshokin/garage-sentinel/internal/logger"
)

// DefaultWatchInterval is the polling interval of --watch.
const DefaultWatchInterval = 5 * time.Second

// ErrStatusDisabled is returned when the local configuration disables the
// status API and no address was given.
var ErrStatusDisabled = errors.New("status API is disabled in the configuration, pass an address or --discover")

// Options controls the status client.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file; a missing file is fine.
	ConfigPath string
	// Address is the sentinel host:port; empty means discover or use the local daemon.
	Address string
	// Discover browses mDNS before falling back to the local daemon.
	Discover bool
	// Instance selects an mDNS instance name.
	Instance string
	// JSON prints the report as JSON.
	JSON bool
	// Watch keeps polling until interrupted.
	Watch bool
	// Interval is the --watch polling interval.
	Interval time.Duration
	// Timeout specifies the per-call timeout.
	Timeout time.Duration
	// Out receives the output; stdout when nil.
	Out io.Writer
}

// Run prints the sentinel status once, or every interval with Watch.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "garage-status")

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	address, err := resolveAddress(ctx, opts, cfg)
	if err != nil {
		return err
	}

	client, err := api.Dial(address, api.WithCallTimeout(opts.Timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	if !opts.Watch {
		return printOnce(ctx, out, client, address, opts.JSON)
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultWatchInterval
	}

	logger.DebugKV(ctx, "Watching sentinel status", "address", address, "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err = printOnce(ctx, out, client, address, opts.JSON); err != nil {
			logger.ErrorKV(ctx, "Status request failed", "address", address, "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// loadConfig reads the settings; a missing file yields the defaults.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	return cfg, nil
}

// resolveAddress picks the sentinel address: the explicit one, an mDNS
// answer, or the local daemon on the configured port.
func resolveAddress(ctx context.Context, opts *Options, cfg *config.Config) (string, error) {
	if opts.Address != "" {
		return opts.Address, nil
	}

	if opts.Discover {
		endpoint, err := discovery.NewScanner().First(ctx, opts.Instance)
		if err == nil {
			logger.DebugKV(ctx, "Sentinel discovered",
				"instance", endpoint.Instance,
				"address", endpoint.Address,
				"version", endpoint.Version)

			return endpoint.Address, nil
		}

		logger.WarnKV(ctx, "Discovery failed, using local sentinel", "error", err)
	}

	return localAddress(cfg.Status.ListenAddress)
}

// localAddress turns a listen address into a dialable loopback address.
func localAddress(listen string) (string, error) {
	if listen == "" {
		return "", ErrStatusDisabled
	}

	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "", fmt.Errorf("invalid status address %q: %w", listen, err)
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}

	return net.JoinHostPort(host, port), nil
}

// printOnce fetches the report and health and prints them.
func printOnce(ctx context.Context, out io.Writer, client *api.Client, address string, asJSON bool) error {
	report, err := client.GetStatus(ctx)
	if err != nil {
		return err
	}

	serving, err := client.Check(ctx)
	if err != nil {
		logger.WarnKV(ctx, "Health check failed", "error", err)

		serving = healthpb.HealthCheckResponse_UNKNOWN
	}

	if asJSON {
		return printJSON(out, report)
	}

	return printHuman(out, address, serving, report)
}

// printJSON writes the report as indented JSON.
func printJSON(out io.Writer, report *structpb.Struct) error {
	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	_, err = fmt.Fprintln(out, string(data))

	return err
}
