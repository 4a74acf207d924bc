package engine

// Position tracks a playback position in fixed point (see PosScale).
//
// All mutation happens on the audio goroutine; the zero value is a valid
// position at frame 0.
type Position struct {
	scaled uint64
}

// Scaled returns the raw fixed-point value.
func (p *Position) Scaled() uint64 { return p.scaled }

// SetScaled overwrites the raw fixed-point value.
func (p *Position) SetScaled(v uint64) { p.scaled = v }

// FrameIndex returns the integer frame index the position falls in.
func (p *Position) FrameIndex() uint64 { return p.scaled >> PosScaleBits }

// Advance moves the position forward by increment * frames, where
// increment is a per-frame scaled step (RateIncrement), and returns the
// new raw value so callers can run their edge triggers off it.
func (p *Position) Advance(increment uint64, frames int) uint64 {
	p.scaled += increment * uint64(frames)
	return p.scaled
}

// SeekFrame places the position exactly on a frame boundary, clamped to
// the last real frame of a buffer of lengthFrames frames. Seeking an
// empty buffer parks the position at frame 0.
func (p *Position) SeekFrame(frame, lengthFrames uint64) {
	if lengthFrames > 0 && frame >= lengthFrames {
		frame = lengthFrames - 1
	}
	p.scaled = frame << PosScaleBits
}

// WrapTo reduces the position modulo a buffer length given in frames.
func (p *Position) WrapTo(lengthFrames uint64) {
	p.scaled %= lengthFrames << PosScaleBits
}

// ClampToEnd pins the position to exactly one past the last frame, the
// "finished" sentinel value.
func (p *Position) ClampToEnd(lengthFrames uint64) {
	p.scaled = lengthFrames << PosScaleBits
}

// RateIncrement converts a playback rate ratio into a per-frame scaled
// position increment. A rate of 1.0 yields exactly PosScale.
func RateIncrement(rate float64) uint64 {
	if rate <= 0 {
		return 0
	}
	return uint64(rate * PosScale)
}
