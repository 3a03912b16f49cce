package filter

import (
	"errors"
	"fmt"
	"math"

	"github.com/tphakala/simd/f64"
)

// ErrInvalidParams is returned for filter parameters that cannot produce a
// usable low-pass design.
var ErrInvalidParams = errors.New("filter: invalid parameters")

// Params holds parameters for windowed-sinc low-pass design.
type Params struct {
	// NumTaps is the filter length.
	NumTaps int

	// Cutoff is the normalized cutoff frequency in (0, 0.5), where 0.5 is
	// the Nyquist frequency.
	Cutoff float64

	// Attenuation is the stopband attenuation in dB; it selects the Kaiser β.
	Attenuation float64

	// Gain is the DC gain the coefficients are normalized to.
	Gain float64
}

// Validate checks that the parameters describe a realizable filter.
func (p *Params) Validate() error {
	if p.NumTaps < minFilterTaps {
		return fmt.Errorf("%w: %d taps (minimum %d)", ErrInvalidParams, p.NumTaps, minFilterTaps)
	}
	if p.Cutoff <= 0 || p.Cutoff >= 0.5 {
		return fmt.Errorf("%w: cutoff %f outside (0, 0.5)", ErrInvalidParams, p.Cutoff)
	}
	if p.Attenuation < 0 {
		return fmt.Errorf("%w: attenuation %f dB", ErrInvalidParams, p.Attenuation)
	}
	if p.Gain <= 0 {
		return fmt.Errorf("%w: gain %f", ErrInvalidParams, p.Gain)
	}
	return nil
}

// DesignLowPass returns a linear-phase windowed-sinc low-pass filter of
// p.NumTaps coefficients whose sum equals p.Gain.
func DesignLowPass(p Params) ([]float64, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	window := KaiserWindow(p.NumTaps, KaiserBeta(p.Attenuation))
	coeffs := make([]float64, p.NumTaps)
	center := float64(p.NumTaps-1) / windowNormalizationFactor

	for n := range p.NumTaps {
		x := float64(n) - center
		var sinc float64
		if math.Abs(x) < sincZeroThreshold {
			sinc = windowNormalizationFactor * p.Cutoff
		} else {
			sinc = math.Sin(twoPi*p.Cutoff*x) / (math.Pi * x)
		}
		coeffs[n] = sinc * window[n]
	}

	if sum := f64.Sum(coeffs); math.Abs(sum) > sincZeroThreshold {
		f64.Scale(coeffs, coeffs, p.Gain/sum)
	}

	return coeffs, nil
}

// DesignLowPassAuto sizes the filter from the attenuation and transition
// bandwidth and designs it. The length is forced odd so the center tap falls
// on a sample.
func DesignLowPassAuto(cutoff, transitionBW, attenuation, gain float64) ([]float64, error) {
	taps := EstimateTaps(attenuation, transitionBW)
	if taps%2 == 0 {
		taps++
	}
	return DesignLowPass(Params{
		NumTaps:     taps,
		Cutoff:      cutoff,
		Attenuation: attenuation,
		Gain:        gain,
	})
}

// Prototype is a polyphase prototype: Phases·TapsPerPhase coefficients laid
// out so that Coeffs[tap*Phases+phase] belongs to the given phase.
type Prototype struct {
	Coeffs       []float64
	Phases       int
	TapsPerPhase int
}

// DesignPrototype designs the prototype for a resampler with the given
// number of phases. cutoff and transitionBW are normalized to the input
// sample rate; the prototype runs at phases times that rate, so both are
// scaled down accordingly. The result is normalized to a DC gain of phases,
// which gives each phase unity gain.
func DesignPrototype(phases int, cutoff, transitionBW, attenuation float64) (*Prototype, error) {
	if phases < 1 {
		return nil, fmt.Errorf("%w: %d phases", ErrInvalidParams, phases)
	}
	tapsPerPhase := EstimateTaps(attenuation, transitionBW)

	coeffs, err := DesignLowPass(Params{
		NumTaps:     phases * tapsPerPhase,
		Cutoff:      cutoff / float64(phases),
		Attenuation: attenuation,
		Gain:        float64(phases),
	})
	if err != nil {
		return nil, fmt.Errorf("design prototype: %w", err)
	}

	return &Prototype{
		Coeffs:       coeffs,
		Phases:       phases,
		TapsPerPhase: tapsPerPhase,
	}, nil
}

// At returns the prototype coefficient for phase and tap. phase may run past
// Phases; the index simply continues into the next tap, and anything beyond
// either end of the prototype is zero.
func (p *Prototype) At(phase, tap int) float64 {
	idx := tap*p.Phases + phase
	if idx < 0 || idx >= len(p.Coeffs) {
		return 0
	}
	return p.Coeffs[idx]
}
