// Package pitch estimates the tuning reference of a recording: a YIN
// fundamental-frequency estimator, a tracker that turns a window of the
// recording into per-frame cent deviations, and a median aggregator.
package pitch

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/tphakala/go-audio-retune/internal/simdops"
)

// ErrInvalidConfig is returned for unusable analysis settings.
var ErrInvalidConfig = errors.New("pitch: invalid configuration")

// Observation is the estimate for one frame. FrequencyHz is only meaningful
// when Amplitude is above the silence threshold.
type Observation struct {
	FrequencyHz float64
	Amplitude   float64 // RMS of the frame
	Clarity     float64 // 1 - normalized difference at the chosen lag
}

// EstimatorConfig configures an Estimator.
type EstimatorConfig struct {
	SampleRate       float64
	Threshold        float64 // YIN absolute threshold
	MinFrequency     float64
	MaxFrequency     float64
	SilenceThreshold float64 // RMS at or below which a frame is silent
}

// Estimator is a YIN fundamental-frequency estimator. The difference function
// is computed with an FFT cross-correlation. An Estimator reuses its buffers
// between calls and must not be shared between goroutines.
type Estimator struct {
	cfg EstimatorConfig
	ops *simdops.Ops

	n     int
	fft   *fourier.FFT
	padA  []float64
	padB  []float64
	specA []complex128
	specB []complex128
	corr  []float64
	diff  []float64
	raw   []float64
}

// NewEstimator validates cfg and returns an Estimator.
func NewEstimator(cfg EstimatorConfig) (*Estimator, error) {
	switch {
	case !(cfg.SampleRate > 0):
		return nil, fmt.Errorf("%w: sample rate %f", ErrInvalidConfig, cfg.SampleRate)
	case !(cfg.Threshold > 0 && cfg.Threshold < 1):
		return nil, fmt.Errorf("%w: YIN threshold %f outside (0, 1)", ErrInvalidConfig, cfg.Threshold)
	case !(cfg.MinFrequency > 0) || cfg.MaxFrequency <= cfg.MinFrequency:
		return nil, fmt.Errorf("%w: frequency range [%f, %f]", ErrInvalidConfig, cfg.MinFrequency, cfg.MaxFrequency)
	case cfg.SilenceThreshold < 0:
		return nil, fmt.Errorf("%w: silence threshold %f", ErrInvalidConfig, cfg.SilenceThreshold)
	}
	return &Estimator{cfg: cfg, ops: simdops.Get()}, nil
}

// Estimate analyzes one mono frame. It never fails: silent frames and frames
// without a clear period come back with Amplitude at or below the silence
// threshold.
func (e *Estimator) Estimate(frame []float64) Observation {
	if len(frame) == 0 {
		return Observation{}
	}
	rms := math.Sqrt(e.ops.Energy(frame) / float64(len(frame)))
	if rms <= e.cfg.SilenceThreshold {
		return Observation{Amplitude: rms}
	}

	w := len(frame) / 2
	tauMin := max(minTau, int(math.Floor(e.cfg.SampleRate/e.cfg.MaxFrequency)))
	tauMax := min(w-1, int(math.Ceil(e.cfg.SampleRate/e.cfg.MinFrequency)))
	if tauMax <= tauMin {
		return Observation{}
	}

	e.difference(frame, w, tauMax)
	// Interpolation runs on d(τ); the normalized curve is skewed at short lags.
	e.raw = append(e.raw[:0], e.diff[:tauMax+1]...)
	cmnd := e.normalize(tauMax)

	tau := -1
	for t := tauMin; t <= tauMax; t++ {
		if cmnd[t] < e.cfg.Threshold {
			for t+1 <= tauMax && cmnd[t+1] < cmnd[t] {
				t++
			}
			tau = t
			break
		}
	}
	if tau < 0 {
		return Observation{}
	}

	period := parabolic(e.raw, tau, tauMax)
	return Observation{
		FrequencyHz: e.cfg.SampleRate / period,
		Amplitude:   rms,
		Clarity:     min(1, max(0, 1-cmnd[tau])),
	}
}

// difference fills e.diff[0..tauMax] with
// d(τ) = Σ_{j<w} (x[j] - x[j+τ])² = Σx[j]² + Σx[j+τ]² - 2·Σx[j]x[j+τ].
func (e *Estimator) difference(frame []float64, w, tauMax int) {
	e.ensure(w + tauMax)

	clear(e.padA)
	clear(e.padB)
	copy(e.padA, frame[:w])
	copy(e.padB, frame[:w+tauMax])

	e.specA = e.fft.Coefficients(e.specA, e.padA)
	e.specB = e.fft.Coefficients(e.specB, e.padB)
	for k, a := range e.specA {
		e.specB[k] *= complex(real(a), -imag(a))
	}
	e.corr = e.fft.Sequence(e.corr, e.specB)
	scale := 1 / float64(e.n)

	head := e.ops.Energy(frame[:w])
	tail := head
	for tau := 0; tau <= tauMax; tau++ {
		if tau > 0 {
			// Slide the energy of x[τ:τ+w] one sample to the right.
			out := frame[tau-1]
			in := frame[tau+w-1]
			tail += in*in - out*out
		}
		e.diff[tau] = max(0, head+tail-2*e.corr[tau]*scale)
	}
}

// normalize applies the cumulative mean normalization in place and returns
// the normalized buffer.
func (e *Estimator) normalize(tauMax int) []float64 {
	d := e.diff[:tauMax+1]
	d[0] = 1
	var running float64
	for tau := 1; tau <= tauMax; tau++ {
		running += d[tau]
		if running == 0 {
			d[tau] = 1
			continue
		}
		d[tau] *= float64(tau) / running
	}
	return d
}

// ensure sizes the FFT and buffers for sequences of length need.
func (e *Estimator) ensure(need int) {
	n := 1
	for n < need {
		n <<= 1
	}
	if n != e.n {
		e.n = n
		e.fft = fourier.NewFFT(n)
		e.padA = make([]float64, n)
		e.padB = make([]float64, n)
		e.specA = make([]complex128, n/2+1)
		e.specB = make([]complex128, n/2+1)
		e.corr = make([]float64, n)
	}
	if cap(e.diff) < need {
		e.diff = make([]float64, need)
	}
	e.diff = e.diff[:cap(e.diff)]
}

// parabolic refines the lag at tau by fitting a parabola through its
// neighbours.
func parabolic(d []float64, tau, tauMax int) float64 {
	if tau < 1 || tau >= tauMax {
		return float64(tau)
	}
	s0, s1, s2 := d[tau-1], d[tau], d[tau+1]
	denom := s0 - 2*s1 + s2
	if denom == 0 {
		return float64(tau)
	}
	shift := (s0 - s2) / (2 * denom)
	if math.Abs(shift) >= 1 {
		return float64(tau)
	}
	return float64(tau) + shift
}
