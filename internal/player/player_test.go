package player

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

var errTestDevice = errors.New("no audio device")

// fakeSink records opened streams and tracks how many are concurrently open.
type fakeSink struct {
	// mu guards the counters.
	mu sync.Mutex
	// openErr is returned from Open when set.
	openErr error
	// streams lists every stream opened so far.
	streams []*fakeStream
	// open is the number of streams not yet closed.
	open int
	// maxOpen is the highest value open has reached.
	maxOpen int
}

// Open creates a fake stream over reader.
func (f *fakeSink) Open(_ context.Context, _ *Clip, reader Reader) (Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.openErr != nil {
		return nil, f.openErr
	}

	s := &fakeStream{sink: f, reader: reader}
	f.streams = append(f.streams, s)
	f.open++
	f.maxOpen = max(f.maxOpen, f.open)

	return s, nil
}

// fakeStream is an in-memory Stream.
type fakeStream struct {
	// sink owns the stream counters.
	sink *fakeSink
	// reader is the sample source handed to Open.
	reader Reader
	// started is set by Start.
	started bool
	// closes counts Close calls.
	closes int
}

// Start marks the stream as playing.
func (s *fakeStream) Start() {
	s.started = true
}

// Close marks the stream as released.
func (s *fakeStream) Close() error {
	s.sink.mu.Lock()
	defer s.sink.mu.Unlock()

	s.closes++
	s.sink.open--

	return nil
}

// activeSession returns the session the player considers active.
func activeSession(p *Player) *Session {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.active
}

// writeWAV encodes samples as a 16-bit PCM WAV file and returns its path.
func writeWAV(t *testing.T, channels int, samples []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "beep.wav")

	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, 8000, 16, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: 8000},
		Data:           samples,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	return path
}

// TestDecode_ReadsPCM verifies a 16-bit stereo WAV is decoded with its format.
func TestDecode_ReadsPCM(t *testing.T) {
	t.Parallel()

	path := writeWAV(t, 2, []int{100, -100, 2000, -2000})

	clip, err := Decode(path)
	require.NoError(t, err)
	require.Equal(t, 2, clip.Channels)
	require.Equal(t, 8000, clip.SampleRate)
	require.Equal(t, []int16{100, -100, 2000, -2000}, clip.Samples)
}

// TestDecode_Errors covers missing and non-WAV files.
func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	_, err := Decode(filepath.Join(t.TempDir(), "missing.wav"))
	require.ErrorIs(t, err, ErrDecode)
	require.ErrorIs(t, err, os.ErrNotExist)

	garbage := filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not riff data"), 0o600))

	_, err = Decode(garbage)
	require.ErrorIs(t, err, ErrDecode)
}

// writeExtensibleWAV builds a mono 16-bit WAVE_FORMAT_EXTENSIBLE file with the given sub-format tag.
func writeExtensibleWAV(t *testing.T, subFormat uint16, samples []int16) string {
	t.Helper()

	const (
		sampleRate = 8000
		fmtSize    = 40
	)

	data := new(bytes.Buffer)
	require.NoError(t, binary.Write(data, binary.LittleEndian, samples))

	header := extensibleHeader{
		Format:        formatExtensible,
		Channels:      1,
		SampleRate:    sampleRate,
		ByteRate:      sampleRate * 2,
		BlockAlign:    2,
		BitDepth:      16,
		ExtensionSize: 22,
		ValidBits:     16,
		ChannelMask:   0x4,
		SubFormat:     subFormat,
		// KSDATAFORMAT_SUBTYPE suffix shared by every sub-format.
		SubFormatGUID: [14]byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xaa, 0x00, 0x38, 0x9b, 0x71},
	}

	file := new(bytes.Buffer)
	file.WriteString("RIFF")
	require.NoError(t, binary.Write(file, binary.LittleEndian, uint32(4+8+fmtSize+8+data.Len())))
	file.WriteString("WAVEfmt ")
	require.NoError(t, binary.Write(file, binary.LittleEndian, uint32(fmtSize)))
	require.NoError(t, binary.Write(file, binary.LittleEndian, header))
	file.WriteString("data")
	require.NoError(t, binary.Write(file, binary.LittleEndian, uint32(data.Len())))
	file.Write(data.Bytes())

	path := filepath.Join(t.TempDir(), "extensible.wav")
	require.NoError(t, os.WriteFile(path, file.Bytes(), 0o600))

	return path
}

// TestDecode_Extensible verifies extensible headers are accepted for PCM and rejected otherwise.
func TestDecode_Extensible(t *testing.T) {
	t.Parallel()

	clip, err := Decode(writeExtensibleWAV(t, formatPCM, []int16{100, -100, 3000}))
	require.NoError(t, err)
	require.Equal(t, 1, clip.Channels)
	require.Equal(t, 8000, clip.SampleRate)
	require.Equal(t, []int16{100, -100, 3000}, clip.Samples)

	const formatFloat = 3

	_, err = Decode(writeExtensibleWAV(t, formatFloat, []int16{1, 2}))
	require.ErrorIs(t, err, ErrDecode)
	require.ErrorContains(t, err, "unsupported WAVE format 3")
}

// TestToInt16 checks scaling from each supported bit depth.
func TestToInt16(t *testing.T) {
	t.Parallel()

	got, err := toInt16([]int{0, 128, 255}, 8)
	require.NoError(t, err)
	require.Equal(t, []int16{-32768, 0, 32512}, got)

	got, err = toInt16([]int{0x7fff00, -0x800000}, 24)
	require.NoError(t, err)
	require.Equal(t, []int16{0x7fff, -0x8000}, got)

	got, err = toInt16([]int{0x7fff0000}, 32)
	require.NoError(t, err)
	require.Equal(t, []int16{0x7fff}, got)

	_, err = toInt16([]int{1}, 12)
	require.Error(t, err)
}

// TestClipReader_Loops verifies the reader wraps around when looping and ends otherwise.
func TestClipReader_Loops(t *testing.T) {
	t.Parallel()

	buf := make([]int16, 5)

	looping := newClipReader([]int16{1, 2}, true)
	n, err := looping.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, []int16{1, 2, 1, 2, 1}, buf)

	once := newClipReader([]int16{1, 2}, false)
	n, err = once.Read(buf)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 2, n)

	n, err = newClipReader(nil, true).Read(buf)
	require.ErrorIs(t, err, io.EOF)
	require.Zero(t, n)
}

// TestPlayer_StartStop verifies a session starts the stream and Stop releases it once.
func TestPlayer_StartStop(t *testing.T) {
	t.Parallel()

	sink := new(fakeSink)
	p := New(sink)

	session, err := p.Start(context.Background(), writeWAV(t, 1, []int{1, 2, 3}))
	require.NoError(t, err)
	require.NotEmpty(t, session.ID())
	require.Same(t, session, activeSession(p))
	require.True(t, sink.streams[0].started)

	require.NoError(t, session.Stop())
	require.NoError(t, session.Stop())
	require.Nil(t, activeSession(p))
	require.Equal(t, 1, sink.streams[0].closes)
	require.Zero(t, sink.open)
}

// TestPlayer_AtMostOneSession ensures a second Start stops the first before opening a new stream.
func TestPlayer_AtMostOneSession(t *testing.T) {
	t.Parallel()

	sink := new(fakeSink)
	p := New(sink)
	path := writeWAV(t, 1, []int{1, 2, 3})

	first, err := p.Start(context.Background(), path)
	require.NoError(t, err)

	second, err := p.Start(context.Background(), path)
	require.NoError(t, err)

	require.NotEqual(t, first.ID(), second.ID())
	require.Equal(t, 1, sink.maxOpen)
	require.Equal(t, 1, sink.streams[0].closes)
	require.Same(t, second, activeSession(p))

	// Stopping the replaced session must not touch the active one.
	require.NoError(t, first.Stop())
	require.Same(t, second, activeSession(p))
	require.Equal(t, 1, sink.open)
}

// TestPlayer_StartErrors verifies decode and device failures return typed errors and leave nothing active.
func TestPlayer_StartErrors(t *testing.T) {
	t.Parallel()

	p := New(&fakeSink{openErr: errTestDevice})

	_, err := p.Start(context.Background(), writeWAV(t, 1, []int{1}))
	require.ErrorIs(t, err, ErrOutput)
	require.ErrorIs(t, err, errTestDevice)
	require.Nil(t, activeSession(p))

	_, err = New(new(fakeSink)).Start(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	require.ErrorIs(t, err, ErrDecode)
}

// TestPlayer_PlayOnce checks WithLoop(false) hands the sink a reader that ends.
func TestPlayer_PlayOnce(t *testing.T) {
	t.Parallel()

	sink := new(fakeSink)
	p := New(sink, WithLoop(false), WithDecoder(func(string) (*Clip, error) {
		return &Clip{Samples: []int16{7}, Channels: 1, SampleRate: 8000}, nil
	}))

	_, err := p.Start(context.Background(), "beep.wav")
	require.NoError(t, err)

	buf := make([]int16, 4)
	n, err := sink.streams[0].reader.Read(buf)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 1, n)
}

// TestSession_NilStop ensures stopping a nil session is a no-op.
func TestSession_NilStop(t *testing.T) {
	t.Parallel()

	require.NoError(t, (*Session)(nil).Stop())
}
