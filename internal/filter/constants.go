package filter

import "math"

const (
	minFilterTaps = 3

	windowNormalizationFactor = 2.0

	sincZeroThreshold = 1e-10

	// Kaiser β empirical fit (Kaiser 1974).
	kaiserAttHigh          = 50.0
	kaiserAttMedium        = 21.0
	kaiserBetaHighCoeff    = 0.1102
	kaiserBetaHighOffset   = 8.7
	kaiserBetaMediumCoeff1 = 0.5842
	kaiserBetaMediumPower  = 0.4
	kaiserBetaMediumCoeff2 = 0.07886

	// Kaiser length estimate: N = (A - 7.95) / (14.36 Δf).
	kaiserLengthOffset = 7.95
	kaiserLengthScale  = 14.36

	// I₀ power series stops once a term no longer moves the sum.
	besselSeriesEpsilon  = 1e-17
	besselMaxSeriesTerms = 500

	defaultResponsePoints = 512
	minMagnitude          = 1e-10
	dbMultiplier          = 20.0
)

const twoPi = 2 * math.Pi
