// Package engine implements the block generation paths of the buffer
// playback generator: the plain copy path, and the fixed-point
// interpolating pitch-bend path.
package engine

// AccumulateCopy mixes frames of 16-bit PCM into a float32 output block
// without resampling. Samples are normalized and scaled by the per-frame
// gain callback, then added to whatever is already in out. gainOffset is
// added to the frame index handed to the callback, so a block assembled
// from several segments keeps one continuous gain ramp without wrapping
// the callback per segment.
//
// src must hold at least frames*channels samples and out at least
// frames*channels floats. The function does not allocate.
func AccumulateCopy(out []float32, src []int16, channels, frames, gainOffset int, gain func(int) float32) {
	for i := 0; i < frames; i++ {
		g := gain(gainOffset+i) * Int16Scale
		base := i * channels
		for ch := 0; ch < channels; ch++ {
			out[base+ch] += float32(src[base+ch]) * g
		}
	}
}
