package resample

const (
	// phaseFracBits is the sub-phase precision of the fixed-point position
	// accumulator.
	phaseFracBits = 32
	phaseFracMask = (int64(1) << phaseFracBits) - 1

	minRatio = 1.0 / 256
	maxRatio = 256.0

	nyquistFraction = 0.5

	// Catmull-Rom coefficients for interpolating between adjacent phases:
	// f(x) = a + b*x + c*x² + d*x³.
	cubicCenterCoeff = 0.5
	cubicDivisor     = 6.0
	cubicCMultiplier = 4.0
	cubicPhaseOffset = 2
)

// preset is the filter design behind a Quality.
type preset struct {
	attenuation float64 // stopband, dB
	passband    float64 // fraction of the output Nyquist kept flat
	phases      int
}

var presets = map[Quality]preset{
	QualityLow:    {attenuation: 80, passband: 0.85, phases: 32},
	QualityMedium: {attenuation: 100, passband: 0.90, phases: 64},
	QualityHigh:   {attenuation: 120, passband: 0.95, phases: 128},
}
