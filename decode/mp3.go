package decode

import (
	"errors"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/audiokit/playback"
)

// mp3Stream is the slice of gomp3.Decoder the converter needs; an
// interface so tests can feed synthetic PCM.
type mp3Stream interface {
	Read([]byte) (int, error)
	SampleRate() int
}

// mp3Channels is fixed: go-mp3 always emits stereo 16-bit output.
const mp3Channels = 2

// MP3 decodes an MPEG layer 3 stream into a buffer.
func MP3(r io.Reader) (*playback.Buffer, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return mp3ToBuffer(dec)
}

func mp3ToBuffer(dec mp3Stream) (*playback.Buffer, error) {
	var samples []int16
	chunk := make([]byte, 16384)
	carry := 0
	for {
		read, err := dec.Read(chunk[carry:])
		n := read + carry
		carry = 0

		// Whole little-endian int16 samples; an odd trailing byte is
		// carried into the next read.
		for i := 0; i+1 < n; i += 2 {
			samples = append(samples, int16(uint16(chunk[i])|uint16(chunk[i+1])<<8))
		}
		if n%2 == 1 {
			chunk[0] = chunk[n-1]
			carry = 1
		}

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if read == 0 {
			break
		}
	}

	return playback.NewBuffer(dec.SampleRate(), mp3Channels, samples)
}
