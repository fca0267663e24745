package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/garage-sentinel/internal/config"
	"github.com/oshokin/garage-sentinel/internal/service/sentinel"
	"github.com/oshokin/garage-sentinel/internal/version"
)

var (
	// options collects the command line overrides.
	options = new(sentinel.Options)

	// rootCmd represents the base command for running the sentinel daemon.
	rootCmd = &cobra.Command{
		Use:   "garage-sentinel",
		Short: "Watch the garage door and close it when left open at night.",
		Long: `Runs the garage door sentinel.

The daemon polls the door reed switch, sends a notification when the door has
been open longer than the notify delay and, during the suspicious window
(evening to early morning), pulses the door opener relay once per open episode.
If the door is still open after the close timeout a system failure is reported.

A read-only gRPC status API is served on the configured address and can be
advertised over mDNS for garage-status.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return sentinel.Run(ctx, options)
		},
	}

	// initCmd writes a default configuration file.
	initCmd = &cobra.Command{
		Use:   "init-config",
		Short: "Write a default configuration file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Save(options.ConfigPath, config.Default()); err != nil {
				return err
			}

			cmd.Printf("Configuration written to %s\n", options.ConfigPath)

			return nil
		},
	}
)

// Execute runs the garage-sentinel CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(initCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&options.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")

	rootCmd.Flags().StringVarP(&options.LogLevel, "log-level", "l", "", "override the configured log level")
	rootCmd.Flags().StringVar(&options.Driver, "driver", "", "override the hardware driver (periph or simulated)")
	rootCmd.Flags().StringVar(&options.ListenAddress, "listen", "", "override the status API listen address")
	rootCmd.Flags().BoolVar(&options.AllowMultiple, "allow-multiple", false, "skip the single-instance check")

	err := rootCmd.Flags().MarkHidden("allow-multiple")
	if err != nil {
		panic(err)
	}
}
