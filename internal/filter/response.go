package filter

import "math"

// Response holds a sampled frequency response.
type Response struct {
	Frequencies []float64 // normalized, 0 to 0.5
	Magnitude   []float64
	Phase       []float64
}

// FrequencyResponse evaluates the DTFT of coeffs at numPoints frequencies
// from DC up to (but not including) Nyquist.
func FrequencyResponse(coeffs []float64, numPoints int) Response {
	if numPoints <= 0 {
		numPoints = defaultResponsePoints
	}

	resp := Response{
		Frequencies: make([]float64, numPoints),
		Magnitude:   make([]float64, numPoints),
		Phase:       make([]float64, numPoints),
	}

	for k := range numPoints {
		freq := float64(k) / float64(2*numPoints)
		resp.Frequencies[k] = freq

		var re, im float64
		omega := twoPi * freq
		for n, h := range coeffs {
			angle := omega * float64(n)
			re += h * math.Cos(angle)
			im -= h * math.Sin(angle)
		}

		resp.Magnitude[k] = math.Hypot(re, im)
		resp.Phase[k] = math.Atan2(im, re)
	}

	return resp
}

// MagnitudeDB converts a linear magnitude to decibels, flooring at -200 dB.
func MagnitudeDB(magnitude float64) float64 {
	return dbMultiplier * math.Log10(max(magnitude, minMagnitude))
}
