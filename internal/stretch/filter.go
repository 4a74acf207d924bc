package stretch

// antiAliasFilter is a single-pole low-pass applied to input samples
// before they reach the stretch engine when pitch is shifted up far
// enough to fold energy past Nyquist. The cutoff tracks the pitch ratio.
type antiAliasFilter struct {
	alpha  float64
	prev   []float64 // one per channel
	active bool
}

// nyquistSafety and nyquistCeiling bound the cutoff derived from the
// pitch ratio, mirroring a conventional 90%/80% guard band.
const (
	nyquistSafety  = 0.9
	nyquistCeiling = 0.8
)

func newAntiAliasFilter(channels int) *antiAliasFilter {
	return &antiAliasFilter{prev: make([]float64, channels)}
}

// configure recomputes the coefficient for a pitch ratio. The filter is
// inactive at or below the threshold.
func (f *antiAliasFilter) configure(pitchRatio, threshold float64) {
	f.active = pitchRatio > threshold
	if !f.active {
		return
	}
	// Normalized cutoff; nyquist cancels out of the ratio.
	cutoff := nyquistSafety / pitchRatio
	if cutoff > nyquistCeiling {
		cutoff = nyquistCeiling
	}
	f.alpha = cutoff
}

// apply runs y[n] = a*x[n] + (1-a)*y[n-1] per channel, writing the
// filtered result to dst. src is never modified; it may alias the
// shared PCM buffer.
func (f *antiAliasFilter) apply(dst, src []int16, channels, frames int) {
	oneMinus := 1.0 - f.alpha
	for ch := 0; ch < channels; ch++ {
		prev := f.prev[ch]
		for i := ch; i < frames*channels; i += channels {
			prev = f.alpha*float64(src[i]) + oneMinus*prev
			dst[i] = int16(prev)
		}
		f.prev[ch] = prev
	}
}

// reset clears the per-channel state.
func (f *antiAliasFilter) reset() {
	for i := range f.prev {
		f.prev[i] = 0
	}
}
