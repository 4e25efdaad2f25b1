package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
)

// State is the playback state of the scheduler.
type State int

const (
	// Idle means no alarm is sounding.
	Idle State = iota
	// Starting means an alarm matched and its sound is being opened.
	Starting
	// Sounding means an alarm sound is playing until stopped.
	Sounding
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Sounding:
		return "sounding"
	default:
		return "unknown"
	}
}

// Decision describes what a Tick or a start outcome did.
type Decision int

const (
	// NoChange means the sample did not start a new minute or nothing matched.
	NoChange Decision = iota
	// Requested means an alarm matched and playback should be started.
	Requested
	// Started means playback began.
	Started
	// StartFailed means playback could not begin.
	StartFailed
	// Suppressed means an alarm matched while another was starting or sounding.
	Suppressed
	// Canceled means the alarm was silenced before its sound started.
	Canceled
)

// String returns the lowercase decision name.
func (d Decision) String() string {
	switch d {
	case NoChange:
		return "no_change"
	case Requested:
		return "requested"
	case Started:
		return "started"
	case StartFailed:
		return "start_failed"
	case Suppressed:
		return "suppressed"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// errNoSession is reported when a start yields neither a session nor an error.
var errNoSession = errors.New("player returned no session")

// Session is an active playback.
type Session interface {
	ID() string
	Stop() error
}

// Observer is notified about scheduler outcomes, e.g. for metrics.
type Observer interface {
	Evaluated(decision Decision)
	StateChanged(state State)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithObserver registers an observer of decisions and state changes.
func WithObserver(observer Observer) Option {
	return func(s *Scheduler) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// Scheduler tracks the previous sample, the active configuration and the playback session.
// It never opens audio itself: a Requested decision asks the owner to start the
// sound, and the owner reports the outcome through Started.
type Scheduler struct {
	// observer receives decisions and state changes.
	observer Observer
	// config is the active snapshot; replaced, never mutated.
	config *alarm.Config
	// previous is the last sample seen.
	previous time.Time
	// state is Idle, Starting or Sounding.
	state State
	// session is the active playback; non-nil exactly when state is Sounding.
	session Session
	// stopRequested records a silence gesture received while Starting.
	stopRequested bool
}

// New creates an idle scheduler. now seeds the previous sample so the first
// Tick within the same minute never counts as a minute change.
func New(cfg *alarm.Config, now time.Time, opts ...Option) *Scheduler {
	s := &Scheduler{
		observer: nopObserver{},
		config:   cfg,
		previous: now,
		state:    Idle,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns the current playback state.
func (s *Scheduler) State() State {
	return s.state
}

// Config returns the active configuration snapshot.
func (s *Scheduler) Config() *alarm.Config {
	return s.config
}

// Tick processes one clock sample. A Requested result means the caller must
// start Config().AudioPath and report back through Started.
func (s *Scheduler) Tick(ctx context.Context, sample time.Time) Decision {
	previous := s.previous
	s.previous = sample

	if sameMinute(previous, sample) {
		return NoChange
	}

	decision := s.evaluate(ctx, sample)
	s.observer.Evaluated(decision)

	return decision
}

// evaluate checks the alarms against sample; called once per new minute.
func (s *Scheduler) evaluate(ctx context.Context, sample time.Time) Decision {
	matched, ok := s.config.Match(sample)
	if !ok {
		return NoChange
	}

	if s.state != Idle {
		logger.DebugKV(ctx, "Alarm due while another is active, ignoring",
			"alarm", matched.String(),
			"state", s.state.String(),
		)

		return Suppressed
	}

	logger.InfoKV(ctx, "Alarm due", "alarm", matched.String(), "at", sample.Format(time.DateTime))

	s.stopRequested = false
	s.setState(Starting)

	return Requested
}

// Started completes the start asked for by a Requested decision.
// On failure the scheduler returns to Idle so the next matching minute retries.
// A session that arrives after a silence gesture is stopped at once.
func (s *Scheduler) Started(ctx context.Context, session Session, err error) Decision {
	if err == nil && session == nil {
		err = errNoSession
	}

	if s.state != Starting {
		logger.WarnKV(ctx, "Playback start result without a pending start", "state", s.state.String())

		if session != nil {
			s.release(ctx, session)
		}

		return NoChange
	}

	var decision Decision

	switch {
	case err != nil:
		logger.ErrorKV(ctx, "Failed to start alarm sound", "path", s.config.AudioPath, "error", err)

		decision = StartFailed
		s.setState(Idle)
	case s.stopRequested:
		logger.InfoKV(ctx, "Alarm silenced before its sound started", "session", session.ID())
		s.release(ctx, session)

		decision = Canceled
		s.setState(Idle)
	default:
		s.session = session
		decision = Started
		s.setState(Sounding)
	}

	s.stopRequested = false
	s.observer.Evaluated(decision)

	return decision
}

// Stop silences the active alarm. It reports whether the gesture had an effect;
// stopping while idle is a no-op. While Starting, the sound is stopped as soon as
// it has started.
func (s *Scheduler) Stop(ctx context.Context) bool {
	switch s.state {
	case Starting:
		if s.stopRequested {
			return false
		}

		s.stopRequested = true

		logger.Info(ctx, "Alarm will be silenced once its sound has started")

		return true
	case Sounding:
		s.release(ctx, s.session)

		logger.InfoKV(ctx, "Alarm stopped", "session", s.session.ID())

		s.session = nil
		s.setState(Idle)

		return true
	default:
		return false
	}
}

// Reload swaps the active configuration. Playback is not affected; the new
// alarms apply from the next minute boundary.
func (s *Scheduler) Reload(ctx context.Context, cfg *alarm.Config) {
	if cfg == nil {
		return
	}

	s.config = cfg

	logger.InfoKV(ctx, "Alarm configuration swapped", "alarms", len(cfg.Alarms), "state", s.state.String())
}

// release stops session, logging a failure to free the device.
func (s *Scheduler) release(ctx context.Context, session Session) {
	if err := session.Stop(); err != nil {
		logger.ErrorKV(ctx, "Failed to release alarm sound", "session", session.ID(), "error", err)
	}
}

// setState records a transition and notifies the observer.
func (s *Scheduler) setState(state State) {
	s.state = state
	s.observer.StateChanged(state)
}

// sameMinute reports whether two samples fall in the same wall-clock minute.
// Calendar dates take part, so a process suspended for exactly a day still sees
// a new minute.
func sameMinute(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	return ay == by && am == bm && ad == bd && a.Hour() == b.Hour() && a.Minute() == b.Minute()
}

// nopObserver discards notifications.
type nopObserver struct{}

// Evaluated does nothing.
func (nopObserver) Evaluated(Decision) {}

// StateChanged does nothing.
func (nopObserver) StateChanged(State) {}
