package alarmclock

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/alarm-clock/internal/config/watcher"
	"github.com/oshokin/alarm-clock/internal/display"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/scheduler"
)

// reloadRecorder records configuration reload outcomes.
type reloadRecorder interface {
	Reloaded(alarms int, err error)
}

// soundStarter opens alarm sounds. Start may take as long as decoding and
// device setup need, so the loop calls it from a worker.
type soundStarter interface {
	Start(ctx context.Context, path string) (scheduler.Session, error)
}

// startResult is the outcome of a sound start, posted back to the loop.
type startResult struct {
	// session is the started playback; nil when err is set.
	session scheduler.Session
	// err describes why the sound could not start.
	err error
}

// loop is the single consumer of clock samples, reload results, start results
// and silence gestures. It is the only code that touches the scheduler.
type loop struct {
	// scheduler is the alarm state machine.
	scheduler *scheduler.Scheduler
	// player opens alarm sounds on a worker.
	player soundStarter
	// surface shows frames and reports silence gestures.
	surface display.Surface
	// collector records reload outcomes.
	collector reloadRecorder
	// samples delivers one clock sample per second.
	samples <-chan time.Time
	// reloads delivers watcher results; nil when watching is disabled.
	reloads <-chan watcher.Result
	// started delivers the outcome of a pending sound start.
	started chan startResult
	// workers tracks pending sound starts.
	workers sync.WaitGroup
}

// run processes events in arrival order until ctx is canceled or the surface exits.
// Any sounding alarm is stopped on the way out, and a sound still being started
// is stopped by its worker before run returns.
func (l *loop) run(ctx context.Context, surfaceDone <-chan error) error {
	ctx, cancel := context.WithCancel(ctx)

	l.started = make(chan startResult)

	defer l.workers.Wait()
	defer cancel()
	defer l.scheduler.Stop(context.WithoutCancel(ctx))

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case err := <-surfaceDone:
			return err
		case sample := <-l.samples:
			l.tick(ctx, sample)
		case result := <-l.reloads:
			l.reload(ctx, result)
		case result := <-l.started:
			l.scheduler.Started(ctx, result.session, result.err)
		case <-l.surface.Stops():
			if !l.scheduler.Stop(ctx) {
				logger.DebugKV(ctx, "Stop gesture ignored", "state", l.scheduler.State().String())
			}
		}
	}
}

// tick feeds a sample to the scheduler and renders it.
func (l *loop) tick(ctx context.Context, sample time.Time) {
	decision := l.scheduler.Tick(ctx, sample)
	if decision != scheduler.NoChange {
		logger.DebugKV(ctx, "Minute evaluated", "decision", decision.String())
	}

	if decision == scheduler.Requested {
		l.startSound(ctx, l.scheduler.Config().AudioPath)
	}

	l.surface.Render(display.Format(sample, l.scheduler.State() == scheduler.Sounding))
}

// startSound opens path on a worker and posts the outcome back to run.
// If run has already exited, the worker releases the session itself.
func (l *loop) startSound(ctx context.Context, path string) {
	ctx = logger.WithKV(ctx, "path", path)

	l.workers.Go(func() {
		session, err := l.player.Start(ctx, path)

		select {
		case l.started <- startResult{session: session, err: err}:
		case <-ctx.Done():
			if session == nil {
				return
			}

			if stopErr := session.Stop(); stopErr != nil {
				logger.ErrorKV(ctx, "Failed to release alarm sound after exit", "session", session.ID(), "error", stopErr)
			}
		}
	})
}

// reload swaps in a new configuration, keeping the previous one on failure.
func (l *loop) reload(ctx context.Context, result watcher.Result) {
	if result.Err != nil {
		logger.ErrorKV(ctx, "Keeping previous configuration", "error", result.Err)
		l.collector.Reloaded(0, result.Err)

		return
	}

	l.scheduler.Reload(ctx, result.Config)
	l.collector.Reloaded(len(result.Config.Alarms), nil)
}
