// Package simdops wraps the SIMD-accelerated float32 operations the
// block paths use, behind function pointers so callers stay decoupled
// from the vendor package.
package simdops

import (
	"github.com/tphakala/simd/f32"
)

// Ops provides SIMD-accelerated float32 operations.
type Ops struct {
	// DotProductUnsafe computes the dot product without bounds checking.
	// Use only when slices are guaranteed to have equal length.
	// DotProductUnsafe(a, a) is the block energy used by diagnostics.
	DotProductUnsafe func(a, b []float32) float32

	// Sum returns the sum of all elements.
	Sum func(a []float32) float32

	// Scale multiplies each element by scalar s: dst[i] = a[i] * s
	Scale func(dst, a []float32, s float32)
}

var ops32 = Ops{
	DotProductUnsafe: f32.DotProductUnsafe,
	Sum:              f32.Sum,
	Scale:            f32.Scale,
}

// Float32Ops returns the shared operations instance.
func Float32Ops() *Ops {
	return &ops32
}
