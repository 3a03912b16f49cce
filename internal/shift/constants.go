package shift

// WSOLA timing defaults, in milliseconds.
const (
	DefaultSequenceMS = 82.0
	DefaultOverlapMS  = 10.0
	DefaultSearchMS   = 15.0
)

const (
	// minSequence and minOverlap bound the segment geometry in samples.
	minSequence = 32
	minOverlap  = 8

	// MaxCents bounds the shift to one octave either way.
	MaxCents = 1200.0

	// minHoldBack is the smallest number of output samples per channel the
	// Shifter keeps in reserve until Flush so the final length can be
	// trimmed.
	minHoldBack = 4

	// energyFloor keeps the normalized correlation finite on silence.
	energyFloor = 1e-12

	msPerSecond    = 1000.0
	centsPerOctave = 1200.0
)
