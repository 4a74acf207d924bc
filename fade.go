package playback

// GainFunc supplies a per-frame gain for one block, indexed by frame
// offset within the block. It is called from the audio goroutine and
// must not allocate or block. Sub-block gain automation (fades, ducking)
// plugs in here without the generator knowing about curve shapes.
type GainFunc func(frame int) float32

// Unity is the identity gain.
func Unity(int) float32 { return 1 }

// ConstGain returns a GainFunc holding a fixed value.
func ConstGain(g float32) GainFunc {
	return func(int) float32 { return g }
}

// LinearRamp returns a GainFunc sweeping from start to end across a
// block of the given size. Used for click-free gain steps between
// blocks.
func LinearRamp(start, end float32, blockSize int) GainFunc {
	if blockSize <= 1 {
		return ConstGain(end)
	}
	step := (end - start) / float32(blockSize-1)
	return func(frame int) float32 {
		return start + step*float32(frame)
	}
}
