package engine

// Fixed-point position representation.
//
// Playback position is kept as frame_index * PosScale plus a fractional
// part, so that advancing by a non-unity rate never accumulates
// floating-point error. PosScale is a power of two: splitting a scaled
// position into frame index and fraction is a shift and a mask.
const (
	// PosScaleBits is the number of fractional bits in a scaled position.
	PosScaleBits = 16

	// PosScale is the fixed-point multiplier for playback positions.
	// With 16 fractional bits a 64-bit scaled position still addresses
	// 2^48 frames, far beyond any decodable buffer, while rate ratios
	// down to ~1.5e-5 remain representable in the per-frame increment.
	PosScale = 1 << PosScaleBits

	// posFracMask extracts the fractional part of a scaled position.
	posFracMask = PosScale - 1
)

// Sample conversion constants.
const (
	// Int16Scale converts a signed 16-bit sample to a normalized float.
	Int16Scale = 1.0 / 32768.0
)

// Cubic Hermite basis coefficients.
const (
	hermiteHalf      = 0.5
	hermiteThreeHalf = 1.5
	hermiteFiveHalf  = 2.5
)
