package simdops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet_ReturnsSameTable(t *testing.T) {
	assert.Same(t, Get(), Get())
}

func TestDot(t *testing.T) {
	ops := Get()
	assert.InDelta(t, 32.0, ops.Dot([]float64{1, 2, 3}, []float64{4, 5, 6}), 1e-12)
	assert.InDelta(t, 4.0, ops.Dot([]float64{1, 2, 3}, []float64{4}), 1e-12)
	assert.Zero(t, ops.Dot(nil, []float64{1}))
	assert.InDelta(t, 14.0, ops.Energy([]float64{1, 2, 3}), 1e-12)
}

func TestCrossCorrelate(t *testing.T) {
	ops := Get()
	signal := []float64{0, 1, 2, 3, 0, 0}
	ref := []float64{1, 2, 3}
	dst := make([]float64, len(signal)-len(ref)+1)

	ops.CrossCorrelate(dst, signal, ref)

	want := make([]float64, len(dst))
	for k := range want {
		for i := range ref {
			want[k] += signal[k+i] * ref[i]
		}
	}
	assert.InDeltaSlice(t, want, dst, 1e-12)
	// Best alignment is the lag where ref sits on 1,2,3.
	assert.InDelta(t, 14.0, dst[1], 1e-12)
}

func TestCubicInterpDot(t *testing.T) {
	ops := Get()
	hist := []float64{1, 1, 1, 1}
	a := []float64{0.25, 0.25, 0.25, 0.25}
	b := []float64{1, 0, 0, 0}
	zero := make([]float64, 4)
	assert.InDelta(t, 1.0, ops.CubicInterpDot(hist, a, zero, zero, zero, 0.5), 1e-12)
	// Σ hist·(a + x·b) with x = 0.5.
	assert.InDelta(t, 1.5, ops.CubicInterpDot(hist, a, b, zero, zero, 0.5), 1e-12)
}
