// Package clock emits the local wall-clock time once per second.
package clock

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultInterval is the cadence of emitted samples.
const DefaultInterval = time.Second

// Source is a background cadence generator with a single consumer channel.
// Each sample is taken from the wall clock at the next interval boundary,
// so a slow consumer delays a sample but never accumulates drift.
type Source struct {
	// clock supplies the current time and timers.
	clock clockwork.Clock
	// interval is the distance between samples.
	interval time.Duration
	// location converts samples to the zone used for alarm matching.
	location *time.Location
	// samples is the consumer channel.
	samples chan time.Time
}

// Option configures a Source.
type Option func(*Source)

// WithClock injects the time source.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Source) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithInterval changes the sampling cadence.
func WithInterval(interval time.Duration) Option {
	return func(s *Source) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithLocation sets the zone samples are expressed in.
func WithLocation(location *time.Location) Option {
	return func(s *Source) {
		if location != nil {
			s.location = location
		}
	}
}

// NewSource creates a source that is idle until Run is called.
func NewSource(opts ...Option) *Source {
	s := &Source{
		clock:    clockwork.NewRealClock(),
		interval: DefaultInterval,
		location: time.Local,
		samples:  make(chan time.Time),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// C returns the channel samples are delivered on.
func (s *Source) C() <-chan time.Time {
	return s.samples
}

// Now returns the current time in the source's zone.
func (s *Source) Now() time.Time {
	return s.clock.Now().In(s.location).Truncate(time.Second)
}

// Run emits samples until ctx is canceled. It blocks and is meant to be
// started in its own goroutine.
func (s *Source) Run(ctx context.Context) {
	for {
		now := s.clock.Now()
		wait := now.Truncate(s.interval).Add(s.interval).Sub(now)

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(wait):
		}

		select {
		case <-ctx.Done():
			return
		case s.samples <- s.Now():
		}
	}
}
