// Package testutil provides reusable test helpers: testify assertions for
// numeric slices plus synthetic signal and WAV fixture builders.
package testutil

import (
	"fmt"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

// AssertFinite fails if any sample is NaN or infinite.
func AssertFinite(t *testing.T, s []float64) bool {
	t.Helper()
	i := slices.IndexFunc(s, func(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) })
	if i < 0 {
		return true
	}
	return assert.Failf(t, "non-finite sample", "s[%d] = %v of %d", i, s[i], len(s))
}

// AssertRelativeError checks |actual-expected|/|expected| <= tolerance, or
// |actual| <= tolerance when expected is zero.
func AssertRelativeError(t *testing.T, expected, actual, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if expected == 0 {
		return assert.InDelta(t, expected, actual, tolerance, msgAndArgs...)
	}
	rel := math.Abs(actual-expected) / math.Abs(expected)
	if rel <= tolerance {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("got %v, want %v: relative error %.3e > %.3e",
		actual, expected, rel, tolerance), msgAndArgs...)
}

// AssertSymmetric checks s[i] == s[len(s)-1-i] within tolerance.
func AssertSymmetric(t *testing.T, s []float64, tolerance float64) bool {
	t.Helper()
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		if math.Abs(s[i]-s[j]) > tolerance {
			return assert.Failf(t, "not symmetric", "s[%d]=%v, s[%d]=%v", i, s[i], j, s[j])
		}
	}
	return true
}

// AssertPeakAtCenter checks that no element exceeds the middle one.
func AssertPeakAtCenter(t *testing.T, s []float64) bool {
	t.Helper()
	if !assert.NotEmpty(t, s) {
		return false
	}
	mid := len(s) / 2
	if peak := slices.Max(s); peak > s[mid] {
		return assert.Failf(t, "peak off center",
			"max %v at %d, center s[%d]=%v", peak, slices.Index(s, peak), mid, s[mid])
	}
	return true
}

// AssertGain checks that the taps sum to want, the filter's DC gain.
func AssertGain(t *testing.T, taps []float64, want, tolerance float64) bool {
	t.Helper()
	var sum float64
	for _, v := range taps {
		sum += v
	}
	return assert.InDelta(t, want, sum, tolerance, "DC gain")
}
