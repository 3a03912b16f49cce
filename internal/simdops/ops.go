// Package simdops exposes the SIMD kernels the DSP stages need behind a
// single table shared by the pitch estimator, the stretcher and the
// resampler.
package simdops

import "github.com/tphakala/simd/f64"

// Ops holds SIMD-accelerated float64 kernels.
type Ops struct {
	// DotProductUnsafe computes Σ a[i]*b[i]; a and b must have equal length.
	DotProductUnsafe func(a, b []float64) float64

	// Scale computes dst[i] = a[i] * s.
	Scale func(dst, a []float64, s float64)

	// CubicInterpDot computes
	//   Σ hist[i] * (a[i] + x*(b[i] + x*(c[i] + x*d[i])))
	// the inner loop of polyphase filtering with interpolated coefficients.
	CubicInterpDot func(hist, a, b, c, d []float64, x float64) float64
}

var ops = Ops{
	DotProductUnsafe: f64.DotProductUnsafe,
	Scale:            f64.Scale,
	CubicInterpDot:   f64.CubicInterpDot,
}

// Get returns the kernel table for the running CPU.
func Get() *Ops { return &ops }

// Dot returns the dot product over the common prefix of a and b.
func (o *Ops) Dot(a, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	return o.DotProductUnsafe(a[:n], b[:n])
}

// Energy returns Σ a[i]².
func (o *Ops) Energy(a []float64) float64 {
	return o.Dot(a, a)
}

// CrossCorrelate writes dst[k] = Σ_i signal[k+i]*ref[i] for every lag k in
// dst. len(signal) must be at least len(dst)+len(ref)-1.
func (o *Ops) CrossCorrelate(dst, signal, ref []float64) {
	n := len(ref)
	for k := range dst {
		dst[k] = o.DotProductUnsafe(signal[k:k+n], ref)
	}
}
