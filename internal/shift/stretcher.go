// Package shift changes the pitch of planar audio without changing its
// duration.
//
// A Stretcher time-stretches by ratio r using WSOLA (waveform-similarity
// overlap-add): fixed-length sequences are copied from the input and
// cross-faded, each one placed where it best continues the previous
// sequence within a small search range. A Shifter stretches by
// r = 2^(cents/1200) and then resamples from fs·r to the target rate, which
// raises the pitch by the requested number of cents and converts the sample
// rate in the same pass.
package shift

import (
	"errors"
	"fmt"
	"math"

	"github.com/tphakala/go-audio-retune/internal/simdops"
)

// ErrInvalidConfig is returned for unusable stretch or shift parameters.
var ErrInvalidConfig = errors.New("shift: invalid configuration")

// ErrChannelMismatch is returned when a block does not have the configured
// channel count or its channels differ in length.
var ErrChannelMismatch = errors.New("shift: channel mismatch")

// ErrFlushed is returned by Process after Flush.
var ErrFlushed = errors.New("shift: already flushed")

// StretchParams configures a Stretcher. Lengths are in samples.
type StretchParams struct {
	Ratio    float64 // output length / input length
	Channels int
	Sequence int
	Overlap  int
	Search   int
}

// Validate checks the parameters.
func (p StretchParams) Validate() error {
	switch {
	case math.IsNaN(p.Ratio) || p.Ratio < 0.25 || p.Ratio > 4:
		return fmt.Errorf("%w: ratio %v outside [0.25, 4]", ErrInvalidConfig, p.Ratio)
	case p.Channels < 1:
		return fmt.Errorf("%w: channels %d", ErrInvalidConfig, p.Channels)
	case p.Overlap < minOverlap:
		return fmt.Errorf("%w: overlap %d < %d", ErrInvalidConfig, p.Overlap, minOverlap)
	case p.Sequence < minSequence || p.Sequence < 2*p.Overlap:
		return fmt.Errorf("%w: sequence %d too short for overlap %d", ErrInvalidConfig, p.Sequence, p.Overlap)
	case p.Search < 0:
		return fmt.Errorf("%w: search %d", ErrInvalidConfig, p.Search)
	}
	return nil
}

// Stretcher is a streaming multichannel WSOLA time stretcher. Segment
// placement is decided on the mono mix and applied to every channel, so
// the stereo image is preserved. After Flush exactly round(in·Ratio)
// samples per channel have been produced.
//
// A Stretcher is not safe for concurrent use.
type Stretcher struct {
	p           StretchParams
	stepOut     int
	nominalStep float64

	fadeIn  []float64
	fadeOut []float64

	in   []*window
	mono *window

	received int64
	nominal  float64
	started  bool
	emitted  int64
	flushed  bool

	tail   [][]float64
	ref    []float64
	corr   []float64
	energy []float64
	ops    *simdops.Ops
}

// NewStretcher creates a stretcher. A ratio of exactly 1 passes audio
// through untouched.
func NewStretcher(p StretchParams) (*Stretcher, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s := &Stretcher{
		p:           p,
		stepOut:     p.Sequence - p.Overlap,
		nominalStep: float64(p.Sequence-p.Overlap) / p.Ratio,
		fadeIn:      make([]float64, p.Overlap),
		fadeOut:     make([]float64, p.Overlap),
		in:          make([]*window, p.Channels),
		mono:        newWindow(4 * p.Sequence),
		tail:        make([][]float64, p.Channels),
		ref:         make([]float64, p.Overlap),
		ops:         simdops.Get(),
	}

	// Raised-cosine cross-fade; fadeIn + fadeOut == 1 everywhere.
	for i := range p.Overlap {
		x := (float64(i) + 0.5) / float64(p.Overlap)
		s.fadeIn[i] = 0.5 - 0.5*math.Cos(math.Pi*x)
		s.fadeOut[i] = 1 - s.fadeIn[i]
	}
	for ch := range p.Channels {
		s.in[ch] = newWindow(4 * p.Sequence)
		s.tail[ch] = make([]float64, p.Overlap)
	}
	return s, nil
}

// Ratio returns the stretch ratio.
func (s *Stretcher) Ratio() float64 { return s.p.Ratio }

// Counts returns the number of samples per channel consumed and produced.
func (s *Stretcher) Counts() (in, out int64) { return s.received, s.emitted }

func (s *Stretcher) passthrough() bool { return s.p.Ratio == 1 }

// Process consumes one planar block and returns whatever output became
// final. The returned slices are freshly allocated.
func (s *Stretcher) Process(block [][]float64) ([][]float64, error) {
	if s.flushed {
		return nil, ErrFlushed
	}
	n, err := blockLen(block, s.p.Channels)
	if err != nil {
		return nil, err
	}

	if s.passthrough() {
		out := make([][]float64, s.p.Channels)
		for ch := range out {
			out[ch] = append([]float64(nil), block[ch]...)
		}
		s.received += int64(n)
		s.emitted += int64(n)
		return out, nil
	}

	s.write(block, n)
	out := make([][]float64, s.p.Channels)
	for s.ready() {
		s.step(out)
	}
	return out, nil
}

// Flush pads the input with silence until the output reaches
// round(in·Ratio) samples and returns the remainder.
func (s *Stretcher) Flush() ([][]float64, error) {
	if s.flushed {
		return nil, ErrFlushed
	}
	s.flushed = true

	out := make([][]float64, s.p.Channels)
	if s.passthrough() {
		return out, nil
	}

	target := int64(math.Round(float64(s.received) * s.p.Ratio))
	before := s.emitted
	for s.emitted < target {
		if need := s.need(); need > s.mono.End() {
			pad := int(need - s.mono.End())
			for ch := range s.in {
				s.in[ch].WriteZeros(pad)
			}
			s.mono.WriteZeros(pad)
		}
		s.step(out)
	}

	keep := int(target - before)
	for ch := range out {
		out[ch] = out[ch][:keep]
	}
	s.emitted = target
	return out, nil
}

func (s *Stretcher) write(block [][]float64, n int) {
	mix := make([]float64, n)
	for ch := range block {
		s.in[ch].Write(block[ch])
		for i, v := range block[ch] {
			mix[i] += v
		}
	}
	if s.p.Channels > 1 {
		s.ops.Scale(mix, mix, 1/float64(s.p.Channels))
	}
	s.mono.Write(mix)
	s.received += int64(n)
}

// need returns the absolute input index that must be buffered before the
// next step may run.
func (s *Stretcher) need() int64 {
	if !s.started {
		return int64(s.p.Sequence)
	}
	predicted := int64(math.Round(s.nominal))
	return predicted + int64(s.p.Search) + int64(s.p.Sequence)
}

// ready reports whether the next step can run on real input without
// producing more than round(received·Ratio) samples.
func (s *Stretcher) ready() bool {
	if s.need() > s.received {
		return false
	}
	next := float64(s.emitted + int64(s.stepOut))
	return next < float64(s.received)*s.p.Ratio
}

// step emits stepOut samples per channel into out.
func (s *Stretcher) step(out [][]float64) {
	seq, ov, stepOut := int64(s.p.Sequence), s.p.Overlap, int64(s.stepOut)

	if !s.started {
		for ch, w := range s.in {
			out[ch] = append(out[ch], w.Slice(0, stepOut)...)
			copy(s.tail[ch], w.Slice(stepOut, seq))
		}
		copy(s.ref, s.mono.Slice(stepOut, seq))
		s.started = true
		s.nominal = s.nominalStep
		s.emitted += stepOut
		s.discard()
		return
	}

	cand := s.bestCandidate()
	for ch, w := range s.in {
		seg := w.Slice(cand, cand+seq)
		for i := range ov {
			out[ch] = append(out[ch], s.tail[ch][i]*s.fadeOut[i]+seg[i]*s.fadeIn[i])
		}
		out[ch] = append(out[ch], seg[ov:stepOut]...)
		copy(s.tail[ch], seg[stepOut:])
	}
	copy(s.ref, s.mono.Slice(cand+stepOut, cand+seq))

	s.nominal += s.nominalStep
	s.emitted += stepOut
	s.discard()
}

// bestCandidate returns the start index within ±Search of the nominal
// position whose first Overlap samples best match the pending tail, by
// normalized cross-correlation on the mono mix.
func (s *Stretcher) bestCandidate() int64 {
	predicted := int64(math.Round(s.nominal))
	lo := max(predicted-int64(s.p.Search), s.mono.Base())
	hi := predicted + int64(s.p.Search)
	if hi < lo {
		return lo
	}

	lags := int(hi - lo + 1)
	ov := s.p.Overlap
	if cap(s.corr) < lags {
		s.corr = make([]float64, lags)
		s.energy = make([]float64, lags)
	}
	corr, energy := s.corr[:lags], s.energy[:lags]

	region := s.mono.Slice(lo, hi+int64(ov))
	s.ops.CrossCorrelate(corr, region, s.ref)

	// Sliding candidate energy.
	e := s.ops.Energy(region[:ov])
	energy[0] = e
	for k := 1; k < lags; k++ {
		e += region[k+ov-1]*region[k+ov-1] - region[k-1]*region[k-1]
		energy[k] = e
	}

	if s.ops.Energy(s.ref) < energyFloor {
		return min(max(predicted, lo), hi)
	}

	best, bestScore := predicted, math.Inf(-1)
	for k := range lags {
		if energy[k] < energyFloor {
			continue
		}
		score := corr[k] / math.Sqrt(energy[k])
		if score > bestScore {
			best, bestScore = lo+int64(k), score
		}
	}
	if math.IsInf(bestScore, -1) {
		return min(max(predicted, lo), hi)
	}
	return best
}

// discard drops input that no future search can reach.
func (s *Stretcher) discard() {
	upTo := int64(math.Round(s.nominal)) - int64(s.p.Search) - 1
	if upTo <= 0 {
		return
	}
	for _, w := range s.in {
		w.Discard(upTo)
	}
	s.mono.Discard(upTo)
}

// blockLen validates a planar block and returns its per-channel length.
func blockLen(block [][]float64, channels int) (int, error) {
	if len(block) != channels {
		return 0, fmt.Errorf("%w: got %d channels, want %d", ErrChannelMismatch, len(block), channels)
	}
	n := len(block[0])
	for ch := 1; ch < channels; ch++ {
		if len(block[ch]) != n {
			return 0, fmt.Errorf("%w: channel %d has %d samples, want %d",
				ErrChannelMismatch, ch, len(block[ch]), n)
		}
	}
	return n, nil
}
