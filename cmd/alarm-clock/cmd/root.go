package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/service/alarmclock"
	"github.com/oshokin/alarm-clock/internal/version"
)

// Environment variables consulted for flags left at their defaults.
const (
	envConfigPath = "ALARM_CLOCK_CONFIG"
	envLogLevel   = "ALARM_CLOCK_LOG_LEVEL"
	envFile       = ".env"
)

var (
	// configPath stores the path to the alarm YAML file.
	configPath string
	// logLevel is the minimum level of log messages.
	logLevel string
	// options collects the run flags.
	options alarmclock.Options

	// rootCmd runs the clock.
	rootCmd = &cobra.Command{
		Use:   version.Program,
		Short: "Fullscreen clock that rings configured alarms.",
		Long: `Shows a large digital clock and plays an audio file when an alarm is due.

Alarms are read from a YAML file (config.yml by default):

  audio_path: beep.wav
  alarms:
    - hour: 6
      minute: 0
      weekdays: [Monday, Tuesday, Wednesday, Thursday, Friday]

Alarms are checked once per minute. A ringing alarm loops until any key is
pressed (or SIGUSR1 is received in headless mode). With --watch, edits to the
file are picked up without a restart; a broken edit keeps the previous alarms.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		PersistentPreRunE: prepare,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options.ConfigPath = configPath

			return alarmclock.Run(ctx, &options)
		},
	}

	// checkCmd validates the configuration and lists the alarms.
	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Validate the alarm configuration and print the alarms.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "audio: %s\n", cfg.AudioPath)

			for i := range cfg.Alarms {
				note := ""
				if cfg.Alarms[i].Weekdays.Empty() {
					note = " (no weekdays, never fires)"
				}

				_, _ = fmt.Fprintf(out, "alarm: %s%s\n", cfg.Alarms[i].String(), note)
			}

			return nil
		},
	}
)

// Execute runs the alarm-clock CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// prepare loads .env, applies environment defaults and sets the log level.
func prepare(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	if value, ok := os.LookupEnv(envConfigPath); ok && !flagChanged(cmd, "config") {
		configPath = value
	}

	if value, ok := os.LookupEnv(envLogLevel); ok && !flagChanged(cmd, "log-level") {
		logLevel = value
	}

	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", logLevel)
	}

	logger.SetLevel(level)

	return nil
}

// flagChanged reports whether the named flag, local or inherited, was set on the command line.
func flagChanged(cmd *cobra.Command, name string) bool {
	flag := cmd.Flag(name)

	return flag != nil && flag.Changed
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to the alarm configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.Flags().BoolVarP(&options.Watch, "watch", "w", false, "reload the configuration when the file changes")
	rootCmd.Flags().BoolVar(&options.Headless, "headless", false, "log ticks instead of drawing; SIGUSR1 stops the alarm")
	rootCmd.Flags().
		StringVar(&options.LogFile, "log-file", alarmclock.DefaultLogFilename, "log destination while the terminal display is active")
	rootCmd.Flags().StringVar(&options.MetricsAddress, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.Flags().BoolVar(&options.AllowMultiple, "allow-multiple", false, "skip the single-instance check")

	rootCmd.AddCommand(checkCmd)
}
