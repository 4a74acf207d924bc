package engine

// BendParams describes one block of interpolated pitch-bend generation.
//
// When bending cannot run (zero increment, or the position is already at
// or past the end of real data) Iterations is 0 and the other fields are
// meaningless.
type BendParams struct {
	// Offset is the scaled sub-frame offset of the first output sample,
	// relative to SpanStart. Always < PosScale.
	Offset uint64

	// Iterations is the number of output samples to produce. At most the
	// block size; smaller near end-of-data when not looping.
	Iterations int

	// SpanStart and SpanFrames give the frame range that must be fetched
	// from the source so every interpolation tap lands inside it.
	SpanStart  uint64
	SpanFrames int

	// IncludeImplicitZero is set when the span's final upper tap may land
	// on the implicit silent frame past end-of-data.
	IncludeImplicitZero bool
}

// ComputeBendParams works out how many interpolation steps fit in one
// block without the lower tap ever reading past the last real frame.
//
// scaledPos and delta are fixed-point (PosScale); scaledLen is the buffer
// length in frames, scaled, excluding the implicit zero. The iteration
// count is derived algebraically so the generation loop needs no
// per-sample bounds checks.
func ComputeBendParams(scaledPos, delta, scaledLen uint64, blockSize int, looping bool) BendParams {
	var p BendParams

	if delta == 0 || scaledPos >= scaledLen {
		return p
	}

	p.Iterations = blockSize

	if !looping {
		// If the final step would push the lower tap to or past the end,
		// shrink the iteration count. remaining is the scaled distance
		// the lower tap may still travel.
		if scaledPos+uint64(blockSize)*delta >= scaledLen {
			remaining := scaledLen - scaledPos - 1
			if remaining%delta == 0 {
				p.Iterations = int(remaining / delta)
			} else {
				// One more step fits: the lower tap still lands short of
				// the final frame, and the upper tap reads the implicit
				// zero at worst.
				p.Iterations = int(remaining/delta) + 1
			}
		}
	}

	if p.Iterations == 0 {
		return BendParams{}
	}

	p.IncludeImplicitZero = !looping
	p.Offset = scaledPos & posFracMask
	p.SpanStart = scaledPos >> PosScaleBits

	// The widest read is the upper tap of the last iteration.
	maxIndex := (p.Offset+uint64(p.Iterations-1)*delta)>>PosScaleBits + 1
	p.SpanFrames = int(maxIndex) + 1

	return p
}

// BendLinear resamples src into out using two-tap linear interpolation
// driven by the fixed-point position. src is the span described by
// params (starting at SpanStart); out receives params.Iterations frames
// additively. The hot loop is branch-free.
func BendLinear(out []float32, src []int16, channels int, params BendParams, delta uint64, gain func(int) float32) {
	iters := params.Iterations
	for i := 0; i < iters; i++ {
		effective := params.Offset + delta*uint64(i)
		lower := int(effective >> PosScaleBits)

		// float64 weights: at 16 fractional bits the products sit close
		// to where float32 rounding becomes audible.
		w2 := float64(effective&posFracMask) * (1.0 / PosScale)
		w1 := (1.0 - w2) * Int16Scale
		w2 *= Int16Scale
		g := float64(gain(i))

		lo := lower * channels
		hi := lo + channels
		dst := i * channels
		for ch := 0; ch < channels; ch++ {
			l := float64(src[lo+ch])
			u := float64(src[hi+ch])
			out[dst+ch] += float32(g * (w1*l + w2*u))
		}
	}
}

// BendCubic is the higher-quality variant of BendLinear using 4-point
// cubic Hermite interpolation. Outer taps are clamped to the span edges,
// which costs two comparisons per frame but keeps the read window
// identical to the linear path.
func BendCubic(out []float32, src []int16, channels int, params BendParams, delta uint64, gain func(int) float32) {
	iters := params.Iterations
	spanFrames := len(src) / channels
	for i := 0; i < iters; i++ {
		effective := params.Offset + delta*uint64(i)
		lower := int(effective >> PosScaleBits)
		x := float64(effective&posFracMask) * (1.0 / PosScale)
		g := float64(gain(i)) * Int16Scale

		im1 := lower - 1
		if im1 < 0 {
			im1 = 0
		}
		ip2 := lower + 2
		if ip2 >= spanFrames {
			ip2 = spanFrames - 1
		}

		dst := i * channels
		for ch := 0; ch < channels; ch++ {
			y0 := float64(src[im1*channels+ch])
			y1 := float64(src[lower*channels+ch])
			y2 := float64(src[(lower+1)*channels+ch])
			y3 := float64(src[ip2*channels+ch])

			a := -hermiteHalf*y0 + hermiteThreeHalf*y1 - hermiteThreeHalf*y2 + hermiteHalf*y3
			b := y0 - hermiteFiveHalf*y1 + 2*y2 - hermiteHalf*y3
			c := -hermiteHalf*y0 + hermiteHalf*y2
			d := y1

			out[dst+ch] += float32(g * (((a*x+b)*x+c)*x + d))
		}
	}
}
