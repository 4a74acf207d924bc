package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/audiokit/playback"
	"github.com/audiokit/playback/internal/simdops"
)

const (
	// WAV format constants (16-bit PCM output)
	wavHeaderSize      = 44
	wavRiffHeaderSize  = 36
	wavPCMSubchunkSize = 16
	wavFileSizeOffset  = 4
	wavDataSizeOffset  = 40
	bytesPerSample     = 2
	bitsPerSample      = 16
	uint32Size         = 4

	wavWriterBufferSize = 256 * 1024

	maxInt16 = 32767.0
)

type renderStats struct {
	blocks    int64
	frames    int64
	loops     int
	finished  bool
	sampleSum float64
}

// dcOffset is the mean sample value of the render, a quick sanity check
// that the output is centered.
func (s *renderStats) dcOffset(channels int) float64 {
	if s.frames == 0 {
		return 0
	}
	return s.sampleSum / float64(s.frames*int64(channels))
}

// renderToWAV drives the generator block by block into a 16-bit WAV
// file. With duration 0 the render runs to the natural end of playback.
func renderToWAV(gen *playback.Generator, buf *playback.Buffer, events *playback.EventQueue, path string, duration float64) (stats *renderStats, err error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create output: %w", err)
	}
	w, err := newWAVWriter(f, buf.SampleRate(), buf.Channels())
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	defer func() {
		if closeErr := w.Close(); err == nil {
			err = closeErr
		}
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	channels := buf.Channels()
	blockFrames := gen.BlockSize()
	block := make([]float32, blockFrames*channels)
	scaled := make([]float32, len(block))
	pcm := make([]int16, len(block))
	ops := simdops.Float32Ops()

	var maxFrames int64 = -1
	if duration > 0 {
		maxFrames = int64(duration * float64(buf.SampleRate()))
	}

	stats = &renderStats{}
	for {
		clear(block)
		gen.GenerateBlock(block, nil)

		ops.Scale(scaled, block, maxInt16)
		for i, v := range scaled {
			switch {
			case v > maxInt16:
				pcm[i] = maxInt16
			case v < -maxInt16 - 1:
				pcm[i] = -maxInt16 - 1
			default:
				pcm[i] = int16(v)
			}
		}
		if err := w.WriteSamples(pcm); err != nil {
			return nil, fmt.Errorf("failed to write audio data: %w", err)
		}

		stats.blocks++
		stats.frames += int64(blockFrames)
		stats.sampleSum += float64(ops.Sum(block))

		for _, e := range events.Drain() {
			switch e.Kind {
			case playback.EventLooped:
				stats.loops++
			case playback.EventFinished:
				stats.finished = true
			}
		}

		if stats.finished {
			break
		}
		if maxFrames >= 0 && stats.frames >= maxFrames {
			break
		}
	}

	return stats, nil
}

// wavWriter writes 16-bit PCM with a placeholder header patched on
// Close, avoiding per-sample allocation.
type wavWriter struct {
	w          *bufio.Writer
	f          *os.File
	sampleRate int
	channels   int
	dataSize   uint32
	byteBuf    []byte
}

func newWAVWriter(f *os.File, sampleRate, channels int) (*wavWriter, error) {
	w := &wavWriter{
		w:          bufio.NewWriterSize(f, wavWriterBufferSize),
		f:          f,
		sampleRate: sampleRate,
		channels:   channels,
	}
	if err := w.writeHeader(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *wavWriter) writeHeader() error {
	byteRate := w.sampleRate * w.channels * bytesPerSample
	blockAlign := w.channels * bytesPerSample

	header := make([]byte, wavHeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 0) // patched on Close
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], wavPCMSubchunkSize)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(w.channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], 0) // patched on Close

	_, err := w.w.Write(header)
	return err
}

// WriteSamples appends interleaved 16-bit samples.
func (w *wavWriter) WriteSamples(samples []int16) error {
	needed := len(samples) * bytesPerSample
	if len(w.byteBuf) < needed {
		w.byteBuf = make([]byte, needed)
	}
	buf := w.byteBuf[:needed]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*bytesPerSample:], uint16(s))
	}
	written, err := w.w.Write(buf)
	w.dataSize += uint32(written)
	return err
}

// Close flushes and patches the header with the final sizes.
func (w *wavWriter) Close() error {
	if err := w.w.Flush(); err != nil {
		return err
	}

	sizeBytes := make([]byte, uint32Size)
	if _, err := w.f.Seek(wavFileSizeOffset, io.SeekStart); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(sizeBytes, wavRiffHeaderSize+w.dataSize)
	if _, err := w.f.Write(sizeBytes); err != nil {
		return err
	}

	if _, err := w.f.Seek(wavDataSizeOffset, io.SeekStart); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(sizeBytes, w.dataSize)
	if _, err := w.f.Write(sizeBytes); err != nil {
		return err
	}
	return nil
}
