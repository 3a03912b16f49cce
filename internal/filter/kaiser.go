// Package filter designs the Kaiser-windowed sinc low-pass prototypes used by
// the polyphase resampler.
package filter

import (
	"math"
)

// BesselI0 computes the modified Bessel function of the first kind, order
// zero, using its power series Σ ((x/2)^k / k!)². The series converges for
// every finite x and stays accurate for the β values used in window design.
func BesselI0(x float64) float64 {
	half := x / windowNormalizationFactor
	sum := 1.0
	term := 1.0
	for k := 1; k <= besselMaxSeriesTerms; k++ {
		f := half / float64(k)
		term *= f * f
		sum += term
		if term < sum*besselSeriesEpsilon {
			break
		}
	}
	return sum
}

// KaiserBeta returns the Kaiser window β for the requested stopband
// attenuation in dB.
func KaiserBeta(attenuation float64) float64 {
	switch {
	case attenuation > kaiserAttHigh:
		return kaiserBetaHighCoeff * (attenuation - kaiserBetaHighOffset)
	case attenuation >= kaiserAttMedium:
		delta := attenuation - kaiserAttMedium
		return kaiserBetaMediumCoeff1*math.Pow(delta, kaiserBetaMediumPower) + kaiserBetaMediumCoeff2*delta
	default:
		return 0
	}
}

// EstimateTaps returns the number of taps a Kaiser-windowed filter needs to
// reach attenuation dB across a transition band of width transitionBW
// (normalized to the sample rate). The result is always at least
// minFilterTaps.
func EstimateTaps(attenuation, transitionBW float64) int {
	if transitionBW <= 0 {
		return minFilterTaps
	}
	n := int(math.Ceil((attenuation - kaiserLengthOffset) / (kaiserLengthScale * transitionBW)))
	return max(n, minFilterTaps)
}

// KaiserWindow generates a symmetric Kaiser window of the given length.
// The center sample is 1.
func KaiserWindow(length int, beta float64) []float64 {
	if length < 1 {
		return []float64{}
	}

	window := make([]float64, length)
	if length == 1 {
		window[0] = 1
		return window
	}

	alpha := float64(length-1) / windowNormalizationFactor
	i0Beta := BesselI0(beta)

	for n := range length {
		x := (float64(n) - alpha) / alpha
		window[n] = BesselI0(beta*math.Sqrt(max(0, 1-x*x))) / i0Beta
	}

	return window
}
