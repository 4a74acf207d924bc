// Package testutil provides reusable test helper functions for playback
// and stretch tests: signal generation, energy and spectrum analysis,
// and common output-validity assertions.
package testutil

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Default tolerances for various test scenarios.
const (
	// RMSTolerance is the relative tolerance for energy comparisons
	// across a stretch round trip.
	RMSTolerance = 0.25

	// FrequencyToleranceHz is the allowed dominant-frequency deviation
	// for FFT-based checks; one bin of slack at typical test lengths.
	FrequencyToleranceHz = 25.0
)

// SineInt16 generates frames of an interleaved 16-bit sine at the given
// frequency and amplitude (0..1), identical in every channel.
func SineInt16(frames, channels, sampleRate int, freq, amplitude float64) []int16 {
	out := make([]int16, frames*channels)
	for i := 0; i < frames; i++ {
		v := int16(amplitude * 32000 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
		for ch := 0; ch < channels; ch++ {
			out[i*channels+ch] = v
		}
	}
	return out
}

// RampInt16 generates frames of a mono ramp 0, 1, 2, ... useful for
// bit-exactness checks where every sample must be distinguishable.
func RampInt16(frames int) []int16 {
	out := make([]int16, frames)
	for i := range out {
		out[i] = int16(i % 32768)
	}
	return out
}

// RMS returns the root mean square of a float32 signal.
func RMS(s []float32) float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(s)))
}

// DominantFrequency returns the frequency in Hz with the largest
// magnitude in the signal's spectrum, ignoring DC.
func DominantFrequency(s []float32, sampleRate int) float64 {
	seq := make([]float64, len(s))
	for i, v := range s {
		seq[i] = float64(v)
	}
	fft := fourier.NewFFT(len(seq))
	coeffs := fft.Coefficients(nil, seq)

	best := 1
	bestMag := 0.0
	for i := 1; i < len(coeffs); i++ {
		if m := cmplx.Abs(coeffs[i]); m > bestMag {
			bestMag = m
			best = i
		}
	}
	return fft.Freq(best) * float64(sampleRate)
}

// BandEnergy returns the summed squared spectral magnitude within
// [loHz, hiHz].
func BandEnergy(s []float32, sampleRate int, loHz, hiHz float64) float64 {
	seq := make([]float64, len(s))
	for i, v := range s {
		seq[i] = float64(v)
	}
	fft := fourier.NewFFT(len(seq))
	coeffs := fft.Coefficients(nil, seq)

	var sum float64
	for i := 1; i < len(coeffs); i++ {
		f := fft.Freq(i) * float64(sampleRate)
		if f >= loHz && f <= hiHz {
			m := cmplx.Abs(coeffs[i])
			sum += m * m
		}
	}
	return sum
}

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf(t *testing.T, s []float32, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		f := float64(v)
		if math.IsNaN(f) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(f, 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
		}
	}
	return true
}

// AssertAllInRange verifies that all elements are within [minVal, maxVal].
func AssertAllInRange(t *testing.T, s []float32, minVal, maxVal float32, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if v < minVal || v > maxVal {
			return assert.Fail(t, "value out of range",
				"s[%d]=%f is outside range [%f, %f]", i, v, minVal, maxVal)
		}
	}
	return true
}

// AssertSilent verifies that every sample's magnitude stays below the
// threshold.
func AssertSilent(t *testing.T, s []float32, threshold float32, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if v > threshold || v < -threshold {
			return assert.Fail(t, "not silent",
				"s[%d]=%f exceeds threshold %f", i, v, threshold)
		}
	}
	return true
}

// AssertRelativeError verifies that the relative error between actual
// and expected is within tolerance.
func AssertRelativeError(t *testing.T, expected, actual, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if expected == 0 {
		return assert.InDelta(t, expected, actual, tolerance, msgAndArgs...)
	}
	relError := math.Abs(actual-expected) / math.Abs(expected)
	return assert.LessOrEqual(t, relError, tolerance,
		"relative error %e exceeds tolerance %e (expected=%f, actual=%f)",
		relError, tolerance, expected, actual)
}
