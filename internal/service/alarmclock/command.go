package alarmclock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oshokin/alarm-clock/internal/clock"
	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/config/watcher"
	"github.com/oshokin/alarm-clock/internal/display"
	"github.com/oshokin/alarm-clock/internal/instance"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/metrics"
	"github.com/oshokin/alarm-clock/internal/player"
	"github.com/oshokin/alarm-clock/internal/scheduler"
)

// DefaultLogFilename receives log output while the terminal display owns the screen.
const DefaultLogFilename = "alarm-clock.log"

// Options controls the alarm clock process.
type Options struct {
	// ConfigPath specifies the path to the alarm YAML file.
	ConfigPath string
	// Watch reloads the configuration when the file changes.
	Watch bool
	// Headless replaces the terminal display with log output and SIGUSR1.
	Headless bool
	// LogFile receives log output in terminal mode.
	LogFile string
	// MetricsAddress exposes Prometheus metrics when set.
	MetricsAddress string
	// AllowMultiple skips the single-instance check.
	AllowMultiple bool
}

// Run loads the configuration and runs the clock until ctx is canceled or
// the user quits. A configuration that cannot be loaded is fatal.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "alarm-clock")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if !opts.AllowMultiple {
		if err = instance.NewGuard().Check(); err != nil {
			return err
		}
	}

	var surface display.Surface
	if opts.Headless {
		surface = display.NewHeadless(ctx)
	} else {
		logFile := opts.LogFile
		if logFile == "" {
			logFile = DefaultLogFilename
		}

		closeLog, err := logger.RedirectToFile(logFile)
		if err != nil {
			return fmt.Errorf("redirect logs: %w", err)
		}

		defer func() {
			_ = closeLog()
		}()

		// The context logger was built before the redirect.
		ctx = logger.WithName(logger.ToContext(ctx, logger.Logger()), "alarm-clock")
		surface = display.NewTerminal()
	}

	// Background goroutines log through ctx; they finish before the log file
	// is closed and before the terminal is handed back.
	var background sync.WaitGroup
	defer background.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	collector := metrics.New()
	collector.SetAlarms(len(cfg.Alarms))

	if opts.MetricsAddress != "" {
		background.Go(func() {
			if err := collector.Serve(ctx, opts.MetricsAddress); err != nil {
				logger.ErrorKV(ctx, "Metrics endpoint failed", "error", err)
			}
		})
	}

	var reloads <-chan watcher.Result

	if opts.Watch {
		path := opts.ConfigPath
		if path == "" {
			path = config.DefaultConfigFilename
		}

		w, err := watcher.Start(ctx, path)
		if err != nil {
			return fmt.Errorf("start configuration watcher: %w", err)
		}

		defer func() {
			_ = w.Close()
		}()

		reloads = w.Results()
	}

	source := clock.NewSource()
	sched := scheduler.New(cfg, source.Now(), scheduler.WithObserver(collector))

	logger.InfoKV(ctx, "Alarm clock started",
		"config", opts.ConfigPath,
		"alarms", len(cfg.Alarms),
		"audio_path", cfg.AudioPath,
		"watch", opts.Watch,
		"log_level", logger.Level().String(),
	)

	surfaceDone := make(chan error, 1)

	background.Go(func() {
		surfaceDone <- surface.Run(ctx)
	})
	background.Go(func() {
		source.Run(ctx)
	})

	l := &loop{
		scheduler: sched,
		player:    soundPlayer{player: player.New(player.NewPulseSink())},
		surface:   surface,
		collector: collector,
		samples:   source.C(),
		reloads:   reloads,
	}

	err = l.run(ctx, surfaceDone)

	cancel()

	if errors.Is(err, display.ErrQuit) {
		logger.Info(ctx, "Quit requested")

		return nil
	}

	return err
}

// soundPlayer adapts player.Player to the loop's soundStarter.
type soundPlayer struct {
	// player is the concrete audio player.
	player *player.Player
}

// Start begins playback and returns the session as a scheduler.Session.
// A nil *player.Session must not become a non-nil interface.
func (p soundPlayer) Start(ctx context.Context, path string) (scheduler.Session, error) {
	session, err := p.player.Start(ctx, path)
	if err != nil {
		return nil, err
	}

	return session, nil
}
