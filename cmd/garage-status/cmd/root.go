package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/garage-sentinel/internal/config"
	"github.com/oshokin/garage-sentinel/internal/service/status"
	"github.com/oshokin/garage-sentinel/internal/version"
)

var (
	// options collects the command line flags.
	options = new(status.Options)

	// rootCmd represents the base command for querying a sentinel.
	rootCmd = &cobra.Command{
		Use:   "garage-status [address]",
		Short: "Show the state of a garage sentinel.",
		Long: `Queries the status API of a garage sentinel and prints the door position,
alerts, fault flags and notification counters.

The address can be provided as argument. Otherwise, with --discover, the
sentinel is looked up over mDNS; the local daemon on the configured port is
used as a fallback. With --watch the status is printed every interval until
interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if len(args) > 0 {
				options.Address = args[0]
			}

			options.Out = cmd.OutOrStdout()

			return status.Run(ctx, options)
		},
	}
)

// Execute runs the garage-status CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&options.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.BoolVarP(&options.Discover, "discover", "d", false, "find the sentinel over mDNS")
	flags.StringVarP(&options.Instance, "instance", "i", "", "mDNS instance name to look for")
	flags.BoolVarP(&options.JSON, "json", "j", false, "print the report as JSON")
	flags.BoolVarP(&options.Watch, "watch", "w", false, "keep printing the status")
	flags.DurationVar(&options.Interval, "interval", status.DefaultWatchInterval, "polling interval for --watch")
	flags.DurationVarP(&options.Timeout, "timeout", "t", 0, "per-call timeout")
}
