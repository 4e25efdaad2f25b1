package player

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jfreymuth/pulse"

	"github.com/oshokin/alarm-clock/internal/logger"
)

const (
	// applicationName is announced to the PulseAudio server.
	applicationName = "alarm-clock"
	// playbackLatency is the requested buffer latency in seconds.
	playbackLatency = 0.1
)

// PulseSink plays clips through a PulseAudio (or PipeWire-pulse) server.
type PulseSink struct{}

// NewPulseSink creates a sink connecting to the default server on every Open.
func NewPulseSink() *PulseSink {
	return new(PulseSink)
}

// Open connects to the server and prepares a stopped playback stream for clip.
func (*PulseSink) Open(ctx context.Context, clip *Clip, reader Reader) (Stream, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(applicationName),
		pulse.ClientApplicationIconName("alarm-clock"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}

	channels := pulse.PlaybackMono
	if clip.Channels == 2 {
		channels = pulse.PlaybackStereo
	}

	source := pulse.Int16Reader(func(buf []int16) (int, error) {
		n, err := reader.Read(buf)
		if errors.Is(err, io.EOF) {
			return n, pulse.EndOfData
		}

		return n, err
	})

	stream, err := client.NewPlayback(
		source,
		channels,
		pulse.PlaybackSampleRate(clip.SampleRate),
		pulse.PlaybackLatency(playbackLatency),
		pulse.PlaybackMediaName("alarm"),
	)
	if err != nil {
		client.Close()

		return nil, fmt.Errorf("create pulse playback stream: %w", err)
	}

	logger.DebugKV(ctx, "Pulse stream opened",
		"channels", clip.Channels,
		"sample_rate", clip.SampleRate,
		"frames", len(clip.Samples)/clip.Channels,
	)

	return &pulseStream{client: client, stream: stream}, nil
}

// pulseStream couples a playback stream with the client connection that owns it.
type pulseStream struct {
	// client is the server connection, closed together with the stream.
	client *pulse.Client
	// stream is the playback stream.
	stream *pulse.PlaybackStream
}

// Start begins playback.
func (s *pulseStream) Start() {
	s.stream.Start()
}

// Close tears the stream down and disconnects from the server.
func (s *pulseStream) Close() error {
	err := s.stream.Error()

	s.stream.Close()
	s.client.Close()

	if err != nil {
		return fmt.Errorf("pulse stream ended with error: %w", err)
	}

	return nil
}
