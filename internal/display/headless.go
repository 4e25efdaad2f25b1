package display

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/oshokin/alarm-clock/internal/logger"
)

// Headless is a surface without a screen: frames go to the debug log and
// SIGUSR1 is the silence gesture.
type Headless struct {
	// ctx carries the logger used for frames.
	ctx context.Context //nolint:containedctx // Render has no context parameter.
	// stops carries silence gestures to the event loop.
	stops chan struct{}
	// signals receives SIGUSR1.
	signals chan os.Signal
}

// NewHeadless creates a headless surface logging through ctx.
func NewHeadless(ctx context.Context) *Headless {
	return &Headless{
		ctx:     logger.WithName(ctx, "display"),
		stops:   make(chan struct{}, 1),
		signals: make(chan os.Signal, 1),
	}
}

// Run forwards SIGUSR1 as silence requests until ctx is canceled.
func (h *Headless) Run(ctx context.Context) error {
	signal.Notify(h.signals, syscall.SIGUSR1)
	defer signal.Stop(h.signals)

	logger.Infof(h.ctx, "Headless display running, send SIGUSR1 to pid %d to stop an alarm", os.Getpid())

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.signals:
			h.requestStop()
		}
	}
}

// Render logs the frame.
func (h *Headless) Render(frame Frame) {
	logger.DebugKV(h.ctx, "Tick", "time", frame.Time, "seconds", frame.Seconds, "date", frame.Date, "ringing", frame.Ringing)
}

// Stops returns the silence channel.
func (h *Headless) Stops() <-chan struct{} {
	return h.stops
}

// requestStop queues a silence request unless one is already pending.
func (h *Headless) requestStop() {
	select {
	case h.stops <- struct{}{}:
	default:
	}
}
