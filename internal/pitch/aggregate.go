package pitch

import (
	"math"
	"slices"
)

// Result is the outcome of analyzing one recording.
type Result struct {
	// DetectedHz is the estimated A4 reference of the recording.
	DetectedHz float64
	// CentsOffset is the shift that moves the recording onto the 440 Hz
	// grid; it is the negated median deviation.
	CentsOffset float64
	// Reliability is the number of frames the estimate is based on.
	Reliability int
}

// NoPitch is the result when nothing usable was found: all fields zero.
func NoPitch() Result { return Result{} }

// Found distinguishes a measured result from NoPitch. A recording tuned
// exactly to 440 Hz has a zero CentsOffset but is still Found.
func (r Result) Found() bool { return r.Reliability > 0 }

// Reliable reports whether at least minFrames frames back the result.
func (r Result) Reliable(minFrames int) bool {
	return r.Found() && r.Reliability >= minFrames
}

// Aggregate reduces per-frame deviations to one Result using the median,
// which ignores a minority of wild frames. For an even count the upper of
// the two middle values is used. The input is not modified.
func Aggregate(deviations []float64) Result {
	if len(deviations) == 0 {
		return NoPitch()
	}
	sorted := slices.Clone(deviations)
	slices.Sort(sorted)
	median := sorted[len(sorted)/2]

	offset := -median
	if offset == 0 {
		offset = 0 // no negative zero
	}

	return Result{
		DetectedHz:  ReferenceHz * math.Exp2(median/centsPerOctave),
		CentsOffset: offset,
		Reliability: len(sorted),
	}
}
