package decode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestWAV(t *testing.T, path string, sampleRate, channels, bitDepth int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	err = enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
	})
	require.NoError(t, err)
	require.NoError(t, enc.Close())
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wav")
	data := []int{0, 1000, -1000, 32767, -32768, 123, -456, 789}
	writeTestWAV(t, path, 44100, 2, 16, data)

	buf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 44100, buf.SampleRate())
	assert.Equal(t, 2, buf.Channels())
	assert.Equal(t, uint64(4), buf.Frames(false))
}

func TestWAVMono(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.wav")
	writeTestWAV(t, path, 22050, 1, 16, []int{1, 2, 3})

	buf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 22050, buf.SampleRate())
	assert.Equal(t, 1, buf.Channels())
	assert.Equal(t, uint64(3), buf.Frames(false))
}

func TestWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(path, []byte("this is not audio"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.flac")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.wav"))
	assert.Error(t, err)
}
