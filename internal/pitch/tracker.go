package pitch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/tphakala/go-audio-retune/internal/audio"
)

// Policy is the analysis window and per-frame acceptance policy.
type Policy struct {
	// StartFraction is where the window begins, as a fraction of the
	// recording's duration.
	StartFraction float64
	// Window is how much audio is analyzed. When the recording is too short
	// to fit the window after StartFraction, the window slides back toward
	// the start; when it is shorter than Window, all of it is analyzed.
	Window time.Duration

	FrameSize int
	HopSize   int

	SilenceThreshold float64
	YINThreshold     float64
	MinFrequency     float64
	MaxFrequency     float64
}

// DefaultPolicy returns the default analysis policy.
func DefaultPolicy() Policy {
	return Policy{
		StartFraction:    DefaultStartFraction,
		Window:           DefaultWindow,
		FrameSize:        DefaultFrameSize,
		HopSize:          DefaultHopSize,
		SilenceThreshold: DefaultSilenceThreshold,
		YINThreshold:     DefaultYINThreshold,
		MinFrequency:     DefaultMinFrequency,
		MaxFrequency:     DefaultMaxFrequency,
	}
}

// Validate reports whether the policy is usable.
func (p Policy) Validate() error {
	switch {
	case p.StartFraction < 0 || p.StartFraction >= 1:
		return fmt.Errorf("%w: start fraction %f outside [0, 1)", ErrInvalidConfig, p.StartFraction)
	case p.Window <= 0:
		return fmt.Errorf("%w: window %s", ErrInvalidConfig, p.Window)
	case p.FrameSize < 4*minTau:
		return fmt.Errorf("%w: frame size %d", ErrInvalidConfig, p.FrameSize)
	case p.HopSize <= 0:
		return fmt.Errorf("%w: hop size %d", ErrInvalidConfig, p.HopSize)
	}
	_, err := NewEstimator(p.estimatorConfig(1))
	return err
}

func (p Policy) estimatorConfig(rate float64) EstimatorConfig {
	return EstimatorConfig{
		SampleRate:       rate,
		Threshold:        p.YINThreshold,
		MinFrequency:     p.MinFrequency,
		MaxFrequency:     p.MaxFrequency,
		SilenceThreshold: p.SilenceThreshold,
	}
}

// Span returns the first frame and length of the analysis window for a
// recording of total frames at rate.
func (p Policy) Span(total, rate int) (start, length int) {
	if total <= 0 || rate <= 0 {
		return 0, 0
	}
	window := int(math.Round(p.Window.Seconds() * float64(rate)))
	start = int(math.Floor(p.StartFraction * float64(total)))
	if start+window > total {
		start = max(0, total-window)
	}
	return start, min(window, total-start)
}

// FrameCount returns how many analysis frames fit in a window of length
// samples.
func (p Policy) FrameCount(length int) int {
	if length < p.FrameSize {
		return 0
	}
	return (length-p.FrameSize)/p.HopSize + 1
}

// Tracker turns a recording into per-frame deviations from the 440 Hz grid.
// A Tracker holds no per-call state, so one value can serve concurrent calls.
type Tracker struct {
	policy Policy
	logger *slog.Logger
}

// NewTracker validates the policy and returns a Tracker. A nil logger uses
// slog.Default().
func NewTracker(policy Policy, logger *slog.Logger) (*Tracker, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{policy: policy, logger: logger}, nil
}

// Policy returns the tracker's policy.
func (t *Tracker) Policy() Policy { return t.policy }

// Track analyzes the configured window of src on its mono mixdown and
// returns the deviation in cents of every frame whose amplitude is above the
// silence threshold. The result may be empty. ctx is checked between frames.
func (t *Tracker) Track(ctx context.Context, src *audio.Stream) ([]float64, error) {
	est, err := NewEstimator(t.policy.estimatorConfig(float64(src.SampleRate())))
	if err != nil {
		return nil, err
	}

	start, length := t.policy.Span(src.Len(), src.SampleRate())
	frames := t.policy.FrameCount(length)
	frame := make([]float64, t.policy.FrameSize)
	deviations := make([]float64, 0, frames)

	for i := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src.Mono(frame, start+i*t.policy.HopSize)

		obs := est.Estimate(frame)
		if obs.Amplitude <= t.policy.SilenceThreshold {
			continue
		}
		deviations = append(deviations, Deviation(obs.FrequencyHz))
	}

	t.logger.Debug("pitch window analyzed",
		"start_frame", start,
		"window_frames", length,
		"frames", frames,
		"accepted", len(deviations),
	)
	return deviations, nil
}

// Deviation returns how far hz is from the nearest semitone of the A440
// equal-tempered grid, in cents within (-50, +50]. A frequency exactly
// between two semitones maps to +50.
func Deviation(hz float64) float64 {
	return deviationFromMIDI(semitonesPerOctave*math.Log2(hz/ReferenceHz) + referenceMIDI)
}

// deviationFromMIDI rounds half down so the result lies in (-50, +50].
func deviationFromMIDI(m float64) float64 {
	nearest := math.Ceil(m - 0.5)
	return (m - nearest) * centsPerSemitone
}
