package sentinel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/mitchellh/go-ps"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	api "github.com/oshokin/garage-sentinel/internal/api/grpc/garage"
	"github.com/oshokin/garage-sentinel/internal/clock"
	"github.com/oshokin/garage-sentinel/internal/config"
	"github.com/oshokin/garage-sentinel/internal/connectivity"
	"github.com/oshokin/garage-sentinel/internal/discovery"
	"github.com/oshokin/garage-sentinel/internal/domain/door"
	"github.com/oshokin/garage-sentinel/internal/hardware"
	"github.com/oshokin/garage-sentinel/internal/indicator"
	"github.com/oshokin/garage-sentinel/internal/logger"
	"github.com/oshokin/garage-sentinel/internal/monitor"
	"github.com/oshokin/garage-sentinel/internal/notify"
	"github.com/oshokin/garage-sentinel/internal/version"
)

// healthInterval is how often the health service is refreshed.
const healthInterval = time.Second

// Options controls the sentinel process.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// LogLevel overrides the configured log level.
	LogLevel string
	// Driver overrides the configured hardware driver.
	Driver string
	// ListenAddress overrides the status API address.
	ListenAddress string
	// AllowMultiple skips the single-instance check.
	AllowMultiple bool
}

// Run starts the sentinel and blocks until ctx is cancelled.
// The opener relay is driven LOW before Run returns.
func Run(ctx context.Context, opts *Options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if err = configureLogger(ctx, cfg.Logging); err != nil {
		return err
	}

	ctx = logger.WithName(ctx, "garage-sentinel")

	if !opts.AllowMultiple {
		if err = ensureSingleInstance(ps.Processes, executableName(), os.Getpid()); err != nil {
			return err
		}
	}

	logger.InfoKV(ctx, "Starting garage sentinel",
		"version", version.Short(),
		"driver", cfg.Hardware.Driver,
		"notify_delay", cfg.Timing.NotifyDelay.String(),
		"pm_hour", cfg.Window.PMHour,
		"am_hour", cfg.Window.AMHour)

	driver, err := hardware.NewDriver(cfg.Hardware.Driver)
	if err != nil {
		return fmt.Errorf("hardware driver: %w", err)
	}

	warnSimulatedDriver(ctx, cfg.Hardware.Driver)

	devices, err := hardware.Open(ctx, driver, cfg.Hardware)
	if err != nil {
		return fmt.Errorf("open hardware: %w", err)
	}

	defer func() {
		if releaseErr := devices.Relay.Drive(context.WithoutCancel(ctx), door.Low); releaseErr != nil {
			logger.ErrorKV(ctx, "Failed to release opener relay on exit", "error", releaseErr)
		}
	}()

	notifier, closeNotifier, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		return fmt.Errorf("notification transports: %w", err)
	}

	defer closeNotifier()

	return serve(ctx, cfg, devices, notifier)
}

// warnSimulatedDriver logs a warning when no real pin is read or driven.
func warnSimulatedDriver(ctx context.Context, driver string) bool {
	if driver != config.DriverSimulated {
		return false
	}

	logger.WarnKV(ctx, "Simulated hardware driver active, GPIO is not used; set hardware.driver to periph on a board",
		"driver", driver)

	return true
}

// loadConfig reads the configuration and applies command line overrides.
func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}

	if opts.ListenAddress != "" {
		cfg.Status.ListenAddress = opts.ListenAddress
	}

	if opts.Driver != "" {
		cfg.Hardware.Driver = opts.Driver

		if err = config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("validate settings: %w", err)
		}
	}

	return cfg, nil
}

// serve runs the loops and the status API until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, devices *hardware.Devices, notifier notify.Notifier) error {
	settings, err := monitor.SettingsFromConfig(cfg)
	if err != nil {
		return err
	}

	clk := clock.System{}
	state := monitor.NewState(clk)

	// Assume a live connection until the first probe says otherwise.
	state.SetInternetLive(true)

	hostname, _ := os.Hostname()
	dispatcher := notify.NewDispatcher(notifier, cfg.Notify.QueueSize,
		notify.WithTimeout(cfg.Notify.Timeout),
		notify.WithSignature(hostname))

	runners := []monitor.Runner{
		dispatcher,
		monitor.NewEnablePoller(state, devices.Enable, clk, settings),
		monitor.NewSwitchMonitor(state, devices.Sensor, dispatcher, clk, settings),
		monitor.NewDurationMonitor(state, dispatcher, clk, settings),
		monitor.NewActuationMonitor(state, devices.Relay, dispatcher, clk, settings),
	}

	if devices.LED != nil {
		runners = append(runners, indicator.New(devices.LED, state, clk))
	}

	if cfg.Connectivity.Host != "" {
		runners = append(runners, connectivity.NewProber(
			cfg.Connectivity.Host,
			cfg.Connectivity.Interval,
			cfg.Connectivity.Timeout,
			state,
			clk))
	}

	healthServer := health.NewServer()
	runners = append(runners, api.NewHealthReporter(healthServer, state, clk, healthInterval))

	supervisor := monitor.NewSupervisor(clk, cfg.Timing.RestartBackoff, cfg.Timing.MaxRestartBackoff, runners...)

	d := &daemon{
		state:      state,
		supervisor: supervisor,
		dispatcher: dispatcher,
		version:    version.Short(),
		startedAt:  clk.Now(),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return supervisor.Run(groupCtx)
	})

	if cfg.Status.ListenAddress != "" {
		if err = startStatusAPI(groupCtx, group, cfg.Status, d, healthServer); err != nil {
			cancel()

			return errors.Join(err, group.Wait())
		}
	}

	if err = group.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "Garage sentinel stopped")

	return nil
}

// startStatusAPI listens on the status address and serves the API in group.
// The API is advertised over mDNS when enabled.
func startStatusAPI(
	ctx context.Context,
	group *errgroup.Group,
	cfg config.Status,
	d *daemon,
	healthServer *health.Server,
) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddress, err)
	}

	grpcServer := grpc.NewServer()
	api.RegisterStatusServiceServer(grpcServer, api.NewServer(d))
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	logger.InfoKV(ctx, "Status API listening", "listen_address", lis.Addr().String())

	group.Go(func() error {
		<-ctx.Done()
		healthServer.Shutdown()
		grpcServer.GracefulStop()

		return nil
	})

	group.Go(func() error {
		if serveErr := grpcServer.Serve(lis); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", serveErr)
		}

		return nil
	})

	if !cfg.Advertise {
		return nil
	}

	port := 0
	if addr, ok := lis.Addr().(*net.TCPAddr); ok {
		port = addr.Port
	}

	advertiser := discovery.NewAdvertiser(cfg.Instance, port, version.Short())

	group.Go(func() error {
		// Discovery is a convenience; the sentinel keeps running without it.
		if advertiseErr := advertiser.Run(ctx); advertiseErr != nil {
			logger.WarnKV(ctx, "mDNS advertisement unavailable", "error", advertiseErr)
		}

		return nil
	})

	return nil
}
