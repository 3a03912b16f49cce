package resample

import (
	"fmt"
	"strings"
)

// Quality selects the filter design used by a Resampler.
type Quality int

const (
	// QualityLow uses 80 dB stopband and 85% passband.
	QualityLow Quality = iota
	// QualityMedium uses 100 dB stopband and 90% passband.
	QualityMedium
	// QualityHigh uses 120 dB stopband and 95% passband.
	QualityHigh
)

// String returns the config name of q.
func (q Quality) String() string {
	switch q {
	case QualityLow:
		return "low"
	case QualityMedium:
		return "medium"
	case QualityHigh:
		return "high"
	default:
		return fmt.Sprintf("Quality(%d)", int(q))
	}
}

// ParseQuality maps a config name to a Quality. The empty string selects
// QualityMedium.
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return QualityLow, nil
	case "", "medium":
		return QualityMedium, nil
	case "high":
		return QualityHigh, nil
	default:
		return 0, fmt.Errorf("%w: unknown quality %q", ErrInvalidConfig, s)
	}
}
