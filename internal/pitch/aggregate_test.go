package pitch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregate_Empty(t *testing.T) {
	r := Aggregate(nil)
	assert.Equal(t, NoPitch(), r)
	assert.False(t, r.Found())
	assert.False(t, r.Reliable(1))
	assert.Zero(t, r.DetectedHz)
}

func TestAggregate_MeasuredZeroIsDistinctFromNoPitch(t *testing.T) {
	r := Aggregate([]float64{0, 0, 0})

	assert.True(t, r.Found())
	assert.NotEqual(t, NoPitch(), r)
	assert.Zero(t, r.CentsOffset)
	assert.False(t, math.Signbit(r.CentsOffset))
	assert.InDelta(t, 440, r.DetectedHz, 1e-9)
	assert.Equal(t, 3, r.Reliability)
}

func TestAggregate_Median(t *testing.T) {
	tests := []struct {
		name       string
		samples    []float64
		wantMedian float64
	}{
		{"single", []float64{12}, 12},
		{"odd", []float64{3, -1, 7}, 3},
		{"even_takes_upper_middle", []float64{1, 2, 3, 4}, 3},
		{"negative", []float64{-31.8, -31.7, -31.9}, -31.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Aggregate(tt.samples)
			assert.InDelta(t, -tt.wantMedian, r.CentsOffset, 1e-12)
			assert.InDelta(t, 440*math.Exp2(tt.wantMedian/1200), r.DetectedHz, 1e-9)
			assert.Equal(t, len(tt.samples), r.Reliability)
		})
	}
}

func TestAggregate_RobustToOutliers(t *testing.T) {
	samples := []float64{-8, -8, -8, -8, -8, -8, -8, 45, 49, -49}

	r := Aggregate(samples)
	assert.InDelta(t, 8, r.CentsOffset, 1e-12)

	var mean float64
	for _, s := range samples {
		mean += s
	}
	mean /= float64(len(samples))
	assert.Greater(t, math.Abs(-mean-8), 1.0, "a mean would be dragged off by the outliers")
}

func TestAggregate_DoesNotModifyInput(t *testing.T) {
	samples := []float64{5, 1, 3}
	Aggregate(samples)
	assert.Equal(t, []float64{5, 1, 3}, samples)
}

func TestAggregate_SignConvention(t *testing.T) {
	// A recording tuned to 442 Hz sits about +7.85 cents above the grid, so
	// the correction is about -7.85 cents.
	r := Aggregate([]float64{Deviation(442)})
	assert.InDelta(t, -1200*math.Log2(442.0/440), r.CentsOffset, 1e-9)
	assert.InDelta(t, 442, r.DetectedHz, 1e-9)
}

func TestResult_Reliable(t *testing.T) {
	r := Result{Reliability: 3}
	assert.True(t, r.Reliable(3))
	assert.False(t, r.Reliable(4))
	assert.True(t, r.Reliable(0))
	assert.False(t, NoPitch().Reliable(0))
}
