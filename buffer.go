package playback

import "fmt"

// Buffer is an immutable, random-access block of decoded interleaved
// 16-bit PCM. One implicit silent frame is stored past the end of the
// real data so boundary interpolation can always read an upper tap
// without per-sample branching.
//
// A Buffer may be shared read-only between any number of generators; it
// is never mutated after construction.
type Buffer struct {
	sampleRate int
	channels   int
	frames     uint64

	// data holds frames+1 frames; the final frame is the implicit zero.
	data []int16
}

// NewBuffer copies samples into a new buffer. samples is interleaved and
// its length must be a whole number of frames.
func NewBuffer(sampleRate, channels int, samples []int16) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d must be positive", ErrInvalidPCM, sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: channel count %d must be positive", ErrInvalidPCM, channels)
	}
	if len(samples)%channels != 0 {
		return nil, fmt.Errorf("%w: %d samples is not a whole number of %d-channel frames",
			ErrInvalidPCM, len(samples), channels)
	}
	frames := uint64(len(samples) / channels)
	data := make([]int16, len(samples)+channels)
	copy(data, samples)
	return &Buffer{
		sampleRate: sampleRate,
		channels:   channels,
		frames:     frames,
		data:       data,
	}, nil
}

// SampleRate returns the PCM sample rate in Hz.
func (b *Buffer) SampleRate() int { return b.sampleRate }

// Channels returns the channel count.
func (b *Buffer) Channels() int { return b.channels }

// Frames returns the length in frames, optionally counting the implicit
// silent frame past the end.
func (b *Buffer) Frames(includeImplicitZero bool) uint64 {
	if includeImplicitZero {
		return b.frames + 1
	}
	return b.frames
}

// Duration returns the playable length in seconds.
func (b *Buffer) Duration() float64 {
	return float64(b.frames) / float64(b.sampleRate)
}

// slice returns frameCount frames starting at start as a read-only view.
// Requests that stay within the stored data (including the implicit
// zero frame when asked for) are direct subslices with no copy. A
// request extending further is served from scratch, zero-padded, which
// only happens on degenerate inputs the callers' span math already
// avoids.
func (b *Buffer) slice(start uint64, frameCount int, includeImplicitZero bool, scratch []int16) []int16 {
	limit := b.Frames(includeImplicitZero)
	end := start + uint64(frameCount)
	if start <= limit && end <= limit {
		lo := start * uint64(b.channels)
		return b.data[lo : lo+uint64(frameCount)*uint64(b.channels)]
	}

	n := frameCount * b.channels
	out := scratch[:n]
	avail := 0
	if start < limit {
		avail = int(limit-start) * b.channels
		lo := start * uint64(b.channels)
		copy(out, b.data[lo:lo+uint64(avail)])
	}
	for i := avail; i < n; i++ {
		out[i] = 0
	}
	return out
}

// sliceWrapped fills scratch with frameCount frames starting at start,
// wrapping modulo the real length. Used by the looping pitch-bend path,
// whose read span can cross the loop boundary.
func (b *Buffer) sliceWrapped(start uint64, frameCount int, scratch []int16) []int16 {
	out := scratch[:frameCount*b.channels]
	pos := start % b.frames
	written := 0
	for written < frameCount {
		run := int(b.frames - pos)
		if rem := frameCount - written; run > rem {
			run = rem
		}
		lo := pos * uint64(b.channels)
		copy(out[written*b.channels:], b.data[lo:lo+uint64(run*b.channels)])
		written += run
		pos = 0
	}
	return out
}
