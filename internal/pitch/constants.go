package pitch

import "time"

const (
	// ReferenceHz is the concert pitch deviations are measured against.
	ReferenceHz = 440.0
	// referenceMIDI is the MIDI note number of A4.
	referenceMIDI      = 69.0
	semitonesPerOctave = 12.0
	centsPerSemitone   = 100.0
	centsPerOctave     = 1200.0
)

// Analysis defaults.
const (
	DefaultStartFraction    = 0.25
	DefaultWindow           = 3 * time.Second
	DefaultFrameSize        = 4096
	DefaultHopSize          = 2048
	DefaultSilenceThreshold = 0.01
	DefaultYINThreshold     = 0.15
	DefaultMinFrequency     = 50.0
	DefaultMaxFrequency     = 2000.0
)

// minTau keeps the lag search away from τ=0 and 1, where the normalized
// difference is trivially small.
const minTau = 2
