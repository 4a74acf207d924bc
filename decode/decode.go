// Package decode turns audio files and streams into playback buffers.
// WAV, MP3 and Ogg Vorbis are supported. Decoding happens entirely
// up front; the playback core only ever sees in-memory PCM.
package decode

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/audiokit/playback"
)

// ErrUnsupportedFormat indicates a file extension no decoder handles.
var ErrUnsupportedFormat = errors.New("decode: unsupported format")

// ErrMalformed indicates the stream could not be decoded.
var ErrMalformed = errors.New("decode: malformed stream")

// Load decodes a file into a buffer, picking the decoder from the file
// extension.
func Load(path string) (*playback.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return WAV(f)
	case ".mp3":
		return MP3(f)
	case ".ogg", ".oga":
		return Vorbis(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}
