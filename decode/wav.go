package decode

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"

	"github.com/audiokit/playback"
)

// WAV decodes a RIFF/WAVE stream into a buffer. 8, 16, 24 and 32-bit
// integer PCM are accepted; everything is converted to 16-bit.
func WAV(r io.ReadSeeker) (*playback.Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrMalformed)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if pcm.Format == nil || pcm.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("%w: missing format information", ErrMalformed)
	}

	samples := make([]int16, len(pcm.Data))
	switch pcm.SourceBitDepth {
	case 8:
		// Unsigned 8-bit centers at 128.
		for i, v := range pcm.Data {
			samples[i] = int16((v - 128) << 8)
		}
	case 16:
		for i, v := range pcm.Data {
			samples[i] = int16(v)
		}
	case 24:
		for i, v := range pcm.Data {
			samples[i] = int16(v >> 8)
		}
	case 32:
		for i, v := range pcm.Data {
			samples[i] = int16(v >> 16)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrMalformed, pcm.SourceBitDepth)
	}

	return playback.NewBuffer(pcm.Format.SampleRate, pcm.Format.NumChannels, samples)
}
