package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/audiokit/playback"
)

// vorbisStream is the slice of oggvorbis.Reader the converter needs; an
// interface so tests can feed synthetic frames.
type vorbisStream interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

// Vorbis decodes an Ogg Vorbis stream into a buffer.
func Vorbis(r io.Reader) (*playback.Buffer, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return vorbisToBuffer(dec)
}

func vorbisToBuffer(dec vorbisStream) (*playback.Buffer, error) {
	channels := dec.Channels()
	if channels <= 0 {
		return nil, fmt.Errorf("%w: channel count %d", ErrMalformed, channels)
	}

	var samples []int16
	frame := make([]float32, 4096*channels)
	for {
		// Read returns whole frames of interleaved floats in [-1, 1].
		n, err := dec.Read(frame)
		for _, v := range frame[:n] {
			samples = append(samples, floatToInt16(v))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if n == 0 {
			break
		}
	}

	return playback.NewBuffer(dec.SampleRate(), channels, samples)
}

// floatToInt16 converts a normalized sample with saturation.
func floatToInt16(v float32) int16 {
	scaled := v * 32767
	switch {
	case scaled > 32767:
		return 32767
	case scaled < -32768:
		return -32768
	default:
		return int16(scaled)
	}
}
