// Package resample implements a streaming polyphase sample-rate converter.
//
// The filter bank holds one Kaiser-windowed sinc prototype split into phases,
// with Catmull-Rom interpolation between neighbouring phases so arbitrary,
// non-rational ratios are handled by a single stage. The output is aligned
// with the input (the filter's group delay is compensated internally) and
// after Flush exactly round(in·ratio) samples have been produced.
package resample

import (
	"errors"
	"fmt"
	"math"

	"github.com/tphakala/go-audio-retune/internal/filter"
	"github.com/tphakala/go-audio-retune/internal/simdops"
)

// ErrInvalidConfig is returned for unusable rates or quality settings.
var ErrInvalidConfig = errors.New("resample: invalid configuration")

// ErrFlushed is returned by Process after Flush.
var ErrFlushed = errors.New("resample: resampler already flushed")

// Resampler converts one channel of audio from inputRate to outputRate.
// It is not safe for concurrent use; create one per channel.
type Resampler struct {
	ratio float64

	passthrough bool

	// Coefficients per phase, stored tap-reversed for CubicInterpDot.
	coeffsA [][]float64
	coeffsB [][]float64
	coeffsC [][]float64
	coeffsD [][]float64

	numPhases    int
	tapsPerPhase int

	// at is the read position in fixed point:
	// (input_sample*numPhases + phase) << phaseFracBits | fraction.
	at   int64
	step int64

	history   []float64
	outputBuf []float64

	ops *simdops.Ops

	samplesIn  int64
	samplesOut int64
	flushed    bool
}

// New creates a resampler from inputRate to outputRate. Rates need not be
// integers.
func New(inputRate, outputRate float64, quality Quality) (*Resampler, error) {
	if !(inputRate > 0) || !(outputRate > 0) || math.IsInf(inputRate, 0) || math.IsInf(outputRate, 0) {
		return nil, fmt.Errorf("%w: rates must be positive: input=%f output=%f", ErrInvalidConfig, inputRate, outputRate)
	}
	ratio := outputRate / inputRate
	if ratio < minRatio || ratio > maxRatio {
		return nil, fmt.Errorf("%w: ratio %f outside [%f, %f]", ErrInvalidConfig, ratio, minRatio, maxRatio)
	}
	p, ok := presets[quality]
	if !ok {
		return nil, fmt.Errorf("%w: unknown quality %d", ErrInvalidConfig, int(quality))
	}

	r := &Resampler{
		ratio: ratio,
		ops:   simdops.Get(),
	}
	if inputRate == outputRate {
		r.passthrough = true
		return r, nil
	}

	// Band edges relative to the input rate. The stopband starts at the
	// lower of the two Nyquist frequencies.
	edge := nyquistFraction * min(1, ratio)
	cutoff := edge * (1 + p.passband) / 2
	transition := edge * (1 - p.passband)

	proto, err := filter.DesignPrototype(p.phases, cutoff, transition, p.attenuation)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	r.buildBank(proto)

	r.step = int64(math.Round(float64(r.numPhases) * float64(int64(1)<<phaseFracBits) / ratio))
	// Prime with taps-1 zeros and start at the prototype's center so the
	// first output lines up with the first input sample.
	r.history = make([]float64, r.tapsPerPhase-1, r.tapsPerPhase*4)
	r.at = (int64(r.numPhases)*int64(r.tapsPerPhase) - 1) << (phaseFracBits - 1)
	return r, nil
}

// buildBank splits the prototype into per-phase cubic coefficient sets.
func (r *Resampler) buildBank(proto *filter.Prototype) {
	phases := proto.Phases
	taps := proto.TapsPerPhase

	r.numPhases = phases
	r.tapsPerPhase = taps
	r.coeffsA = make([][]float64, phases)
	r.coeffsB = make([][]float64, phases)
	r.coeffsC = make([][]float64, phases)
	r.coeffsD = make([][]float64, phases)

	for phase := range phases {
		a := make([]float64, taps)
		b := make([]float64, taps)
		c := make([]float64, taps)
		d := make([]float64, taps)

		for tap := range taps {
			f0 := proto.At(phase, tap)
			f1 := proto.At(phase+1, tap)
			fm1 := proto.At(phase-1, tap)
			f2 := proto.At(phase+cubicPhaseOffset, tap)

			cc := cubicCenterCoeff*(f1+fm1) - f0
			dd := (f2 - f1 + fm1 - f0 - cubicCMultiplier*cc) / cubicDivisor
			bb := f1 - f0 - dd - cc

			rev := taps - 1 - tap
			a[rev] = f0
			b[rev] = bb
			c[rev] = cc
			d[rev] = dd
		}

		r.coeffsA[phase] = a
		r.coeffsB[phase] = b
		r.coeffsC[phase] = c
		r.coeffsD[phase] = d
	}
}

// Process consumes input and returns every output sample that can be
// computed so far. The returned slice is owned by the caller.
func (r *Resampler) Process(input []float64) ([]float64, error) {
	if r.flushed {
		return nil, ErrFlushed
	}
	r.samplesIn += int64(len(input))

	if r.passthrough {
		r.samplesOut += int64(len(input))
		return append([]float64(nil), input...), nil
	}
	if len(input) == 0 {
		return []float64{}, nil
	}

	r.history = append(r.history, input...)
	out := r.drain()
	r.samplesOut += int64(len(out))
	return out, nil
}

// Flush pushes the tail of the signal through the filter and returns the
// remaining samples, bringing the total output to round(in·ratio).
func (r *Resampler) Flush() ([]float64, error) {
	if r.flushed {
		return []float64{}, nil
	}
	r.flushed = true

	want := int64(math.Round(float64(r.samplesIn)*r.ratio)) - r.samplesOut
	if want <= 0 || r.passthrough {
		return []float64{}, nil
	}

	r.history = append(r.history, make([]float64, r.tapsPerPhase+1)...)
	out := r.drain()

	if int64(len(out)) > want {
		out = out[:want]
	}
	for int64(len(out)) < want {
		out = append(out, 0)
	}
	r.samplesOut += int64(len(out))
	return out, nil
}

// drain runs the filter over the buffered history.
func (r *Resampler) drain() []float64 {
	taps := r.tapsPerPhase
	histLen := len(r.history)
	numIn := histLen - taps + 1
	if numIn <= 0 {
		return []float64{}
	}

	phases := int64(r.numPhases)
	limit := int64(numIn) * phases << phaseFracBits
	if r.at >= limit {
		return []float64{}
	}
	numOut := int((limit - r.at + r.step - 1) / r.step)
	if cap(r.outputBuf) < numOut {
		r.outputBuf = make([]float64, numOut)
	}
	buf := r.outputBuf[:numOut]

	fracScale := 1.0 / float64(int64(1)<<phaseFracBits)
	history := r.history
	at := r.at
	n := 0
	for at < limit && n < numOut {
		full := at >> phaseFracBits
		div := int(full / phases)
		phase := int(full % phases)
		x := float64(at&phaseFracMask) * fracScale

		buf[n] = r.ops.CubicInterpDot(history[div:div+taps],
			r.coeffsA[phase], r.coeffsB[phase], r.coeffsC[phase], r.coeffsD[phase], x)
		n++
		at += r.step
	}

	consumed := int((at >> phaseFracBits) / phases)
	consumed = min(consumed, histLen)
	copy(r.history, r.history[consumed:])
	r.history = r.history[:histLen-consumed]
	r.at = at - (int64(consumed)*phases)<<phaseFracBits

	return append([]float64(nil), buf[:n]...)
}

// Counts returns the number of samples consumed and produced so far.
func (r *Resampler) Counts() (in, out int64) { return r.samplesIn, r.samplesOut }

// TapsPerPhase returns the filter length in input samples (0 when the
// resampler is a passthrough).
func (r *Resampler) TapsPerPhase() int { return r.tapsPerPhase }
