package player

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
)

// Bit depths understood by the decoder.
const (
	bitDepth8  = 8
	bitDepth16 = 16
	bitDepth24 = 24
	bitDepth32 = 32

	// unsigned8Offset centers unsigned 8-bit PCM around zero.
	unsigned8Offset = 128

	// formatPCM is the WAVE format tag of uncompressed integer PCM.
	formatPCM = 1
	// formatExtensible is WAVE_FORMAT_EXTENSIBLE; the real format is in the sub-format GUID.
	formatExtensible = 0xFFFE
	// extensibleHeaderSize is the size of a fmt chunk carrying a sub-format.
	extensibleHeaderSize = 40
)

var (
	// ErrDecode is returned when the asset cannot be read or is not playable PCM.
	ErrDecode = errors.New("decode audio")
	// errNotWAV is returned for files without a RIFF/WAVE header.
	errNotWAV = errors.New("not a WAV file")
	// errNoSamples is returned for files without audio frames.
	errNoSamples = errors.New("no audio samples")
	// errShortFormat is returned for an extensible fmt chunk without a sub-format.
	errShortFormat = errors.New("truncated extensible format header")
)

// extensibleHeader is the fmt chunk layout of WAVE_FORMAT_EXTENSIBLE files.
type extensibleHeader struct {
	Format        uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitDepth      uint16
	ExtensionSize uint16
	ValidBits     uint16
	ChannelMask   uint32
	// SubFormat starts with the format tag; the other 14 bytes are a fixed GUID suffix.
	SubFormat     uint16
	SubFormatGUID [14]byte
}

// Clip is a decoded sound held in memory as interleaved 16-bit samples.
type Clip struct {
	// Samples holds interleaved PCM frames.
	Samples []int16
	// Channels is the number of interleaved channels (1 or 2).
	Channels int
	// SampleRate is the number of frames per second.
	SampleRate int
}

// Decode reads the WAV file at path into a Clip. Integer PCM is accepted,
// tagged either plainly or as WAVE_FORMAT_EXTENSIBLE with a PCM sub-format.
// The file is read into memory first; the decoder reads sample by sample.
func Decode(path string) (*Clip, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDecode, path, err)
	}

	decoder := wav.NewDecoder(bytes.NewReader(raw))
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w %s: %w", ErrDecode, path, errNotWAV)
	}

	format := decoder.WavAudioFormat
	if format == formatExtensible {
		format, err = subFormat(raw)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrDecode, path, err)
		}
	}

	if format != formatPCM {
		return nil, fmt.Errorf("%w %s: unsupported WAVE format %d", ErrDecode, path, format)
	}

	buffer, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDecode, path, err)
	}

	channels := int(decoder.NumChans)
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("%w %s: unsupported channel count %d", ErrDecode, path, channels)
	}

	if len(buffer.Data) == 0 {
		return nil, fmt.Errorf("%w %s: %w", ErrDecode, path, errNoSamples)
	}

	samples, err := toInt16(buffer.Data, int(decoder.BitDepth))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDecode, path, err)
	}

	return &Clip{
		Samples:    samples,
		Channels:   channels,
		SampleRate: int(decoder.SampleRate),
	}, nil
}

// subFormat returns the format tag stored in the extensible fmt chunk of raw.
func subFormat(raw []byte) (uint16, error) {
	parser := riff.New(bytes.NewReader(raw))
	if err := parser.ParseHeaders(); err != nil {
		return 0, fmt.Errorf("parse RIFF header: %w", err)
	}

	for {
		chunk, err := parser.NextChunk()
		if err != nil {
			return 0, fmt.Errorf("find fmt chunk: %w", err)
		}

		if chunk.ID != riff.FmtID {
			chunk.Drain()

			continue
		}

		if chunk.Size < extensibleHeaderSize {
			return 0, errShortFormat
		}

		var header extensibleHeader
		if err = chunk.ReadLE(&header); err != nil {
			return 0, fmt.Errorf("read fmt chunk: %w", err)
		}

		return header.SubFormat, nil
	}
}

// toInt16 scales integer PCM of the given bit depth to 16 bits.
func toInt16(data []int, depth int) ([]int16, error) {
	out := make([]int16, len(data))

	switch depth {
	case bitDepth8:
		for i, v := range data {
			out[i] = int16((v - unsigned8Offset) << (bitDepth16 - bitDepth8))
		}
	case bitDepth16:
		for i, v := range data {
			out[i] = int16(v)
		}
	case bitDepth24:
		for i, v := range data {
			out[i] = int16(v >> (bitDepth24 - bitDepth16))
		}
	case bitDepth32:
		for i, v := range data {
			out[i] = int16(v >> (bitDepth32 - bitDepth16))
		}
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", depth)
	}

	return out, nil
}
