package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/oshokin/alarm-clock/internal/logger"
)

// ErrOutput is returned when the audio output cannot be opened.
var ErrOutput = errors.New("open audio output")

// Reader supplies interleaved 16-bit samples to an output stream.
// It returns io.EOF once the sound has ended.
type Reader interface {
	Read(buf []int16) (int, error)
}

// Stream is a running output opened by a Sink.
type Stream interface {
	// Start begins pulling samples from the Reader.
	Start()
	// Close stops output and releases every device resource.
	Close() error
}

// Sink opens output streams on an audio device.
type Sink interface {
	Open(ctx context.Context, clip *Clip, reader Reader) (Stream, error)
}

// Decoder turns an asset path into a Clip.
type Decoder func(path string) (*Clip, error)

// Option configures a Player.
type Option func(*Player)

// WithLoop controls whether a sound repeats until stopped.
func WithLoop(loop bool) Option {
	return func(p *Player) {
		p.loop = loop
	}
}

// WithDecoder replaces the WAV decoder.
func WithDecoder(decode Decoder) Option {
	return func(p *Player) {
		if decode != nil {
			p.decode = decode
		}
	}
}

// Player starts and stops alarm sounds, keeping at most one session active.
type Player struct {
	// sink opens device streams.
	sink Sink
	// decode loads assets.
	decode Decoder
	// loop repeats the clip until the session is stopped.
	loop bool
	// mu guards active.
	mu sync.Mutex
	// active is the session currently producing sound.
	active *Session
}

// New creates a player writing to sink. Sounds loop until stopped by default.
func New(sink Sink, opts ...Option) *Player {
	p := &Player{
		sink:   sink,
		decode: Decode,
		loop:   true,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Start decodes the asset at path and begins playback. An already active
// session is stopped first so two sounds never overlap.
func (p *Player) Start(ctx context.Context, path string) (*Session, error) {
	clip, err := p.decode(path)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active != nil {
		logger.InfoKV(ctx, "Replacing active alarm sound", "session", p.active.id)

		if err = p.active.stopLocked(); err != nil {
			logger.ErrorKV(ctx, "Failed to stop previous alarm sound", "session", p.active.id, "error", err)
		}
	}

	stream, err := p.sink.Open(ctx, clip, newClipReader(clip.Samples, p.loop))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutput, err)
	}

	session := &Session{
		id:     uuid.NewString(),
		player: p,
		stream: stream,
	}

	stream.Start()

	p.active = session

	logger.InfoKV(ctx, "Alarm sound started", "session", session.id, "path", path, "loop", p.loop)

	return session, nil
}

// Session is one playback of an alarm sound.
type Session struct {
	// id identifies the session in logs.
	id string
	// player owns the session.
	player *Player
	// stream is the device output.
	stream Stream
	// stopped is set once the stream is closed.
	stopped bool
}

// ID returns the unique session identifier.
func (s *Session) ID() string {
	return s.id
}

// Stop closes the output stream. Repeated calls are no-ops.
func (s *Session) Stop() error {
	if s == nil {
		return nil
	}

	s.player.mu.Lock()
	defer s.player.mu.Unlock()

	return s.stopLocked()
}

// stopLocked closes the stream; the caller holds the player lock.
func (s *Session) stopLocked() error {
	if s.stopped {
		return nil
	}

	s.stopped = true

	if s.player.active == s {
		s.player.active = nil
	}

	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("close audio stream: %w", err)
	}

	return nil
}

// clipReader walks a sample slice, optionally wrapping around at the end.
type clipReader struct {
	// samples is the full clip.
	samples []int16
	// cursor is the next sample to emit.
	cursor int
	// loop restarts from the beginning instead of ending.
	loop bool
}

// newClipReader creates a reader over samples.
func newClipReader(samples []int16, loop bool) *clipReader {
	return &clipReader{
		samples: samples,
		loop:    loop,
	}
}

// Read fills buf, wrapping when looping and returning io.EOF otherwise.
func (r *clipReader) Read(buf []int16) (int, error) {
	n := 0

	for n < len(buf) {
		if r.cursor >= len(r.samples) {
			if !r.loop || len(r.samples) == 0 {
				return n, io.EOF
			}

			r.cursor = 0
		}

		copied := copy(buf[n:], r.samples[r.cursor:])
		n += copied
		r.cursor += copied
	}

	return n, nil
}
