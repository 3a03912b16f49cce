package shift

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/go-audio-retune/internal/resample"
)

// Config configures a Shifter.
type Config struct {
	SourceRate float64
	TargetRate float64
	Channels   int

	// Cents is the pitch change; positive raises the pitch.
	Cents float64

	Quality    resample.Quality
	SequenceMS float64
	OverlapMS  float64
	SearchMS   float64

	// Parallel resamples channels concurrently.
	Parallel bool
}

// DefaultConfig returns a configuration with the default WSOLA timing and
// medium resampling quality. Rates, channels and cents must still be set.
func DefaultConfig() Config {
	return Config{
		Quality:    resample.QualityMedium,
		SequenceMS: DefaultSequenceMS,
		OverlapMS:  DefaultOverlapMS,
		SearchMS:   DefaultSearchMS,
		Parallel:   true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case !(c.SourceRate > 0) || math.IsInf(c.SourceRate, 0):
		return fmt.Errorf("%w: source rate %v", ErrInvalidConfig, c.SourceRate)
	case !(c.TargetRate > 0) || math.IsInf(c.TargetRate, 0):
		return fmt.Errorf("%w: target rate %v", ErrInvalidConfig, c.TargetRate)
	case c.Channels < 1:
		return fmt.Errorf("%w: channels %d", ErrInvalidConfig, c.Channels)
	case math.IsNaN(c.Cents) || math.Abs(c.Cents) > MaxCents:
		return fmt.Errorf("%w: cents %v outside ±%v", ErrInvalidConfig, c.Cents, MaxCents)
	}
	return nil
}

// StretchRatio returns 2^(cents/1200).
func StretchRatio(cents float64) float64 {
	return math.Exp2(cents / centsPerOctave)
}

func msToSamples(ms, rate float64) int {
	return int(math.Round(ms * rate / msPerSecond))
}

// Shifter shifts the pitch of planar audio by a fixed number of cents and
// converts it to the target rate. The output duration matches the input:
// after Flush exactly round(in·TargetRate/SourceRate) samples per channel
// have been produced.
//
// A Shifter is not safe for concurrent use.
type Shifter struct {
	cfg        Config
	stretch    *Stretcher
	resamplers []*resample.Resampler

	pending  [][]float64
	holdBack int
	in       int64
	out      int64
	flushed  bool
}

// New builds a Shifter. Cents of zero skip the stretch stage and equal
// rates skip resampling, so a zero shift at the target rate is an exact
// copy.
func New(cfg Config) (*Shifter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Shifter{
		cfg:     cfg,
		pending: make([][]float64, cfg.Channels),
	}

	ratio := 1.0
	if cfg.Cents != 0 {
		ratio = StretchRatio(cfg.Cents)
		st, err := NewStretcher(StretchParams{
			Ratio:    ratio,
			Channels: cfg.Channels,
			Sequence: msToSamples(cfg.SequenceMS, cfg.SourceRate),
			Overlap:  msToSamples(cfg.OverlapMS, cfg.SourceRate),
			Search:   msToSamples(cfg.SearchMS, cfg.SourceRate),
		})
		if err != nil {
			return nil, err
		}
		s.stretch = st
	}

	s.resamplers = make([]*resample.Resampler, cfg.Channels)
	for ch := range cfg.Channels {
		r, err := resample.New(cfg.SourceRate*ratio, cfg.TargetRate, cfg.Quality)
		if err != nil {
			return nil, fmt.Errorf("%w: channel %d: %w", ErrInvalidConfig, ch, err)
		}
		s.resamplers[ch] = r
	}

	// Stretch rounding moves the resampled length by up to one source
	// sample's worth of output.
	s.holdBack = minHoldBack + int(math.Ceil(cfg.TargetRate/(cfg.SourceRate*ratio)))
	return s, nil
}

// Config returns the configuration the Shifter was built with.
func (s *Shifter) Config() Config { return s.cfg }

// Counts returns the number of samples per channel consumed and produced.
func (s *Shifter) Counts() (in, out int64) { return s.in, s.out }

// Process shifts one planar block. The output may be shorter or longer than
// the input; the difference is settled by Flush.
func (s *Shifter) Process(block [][]float64) ([][]float64, error) {
	if s.flushed {
		return nil, ErrFlushed
	}
	n, err := blockLen(block, s.cfg.Channels)
	if err != nil {
		return nil, err
	}
	s.in += int64(n)

	stretched := block
	if s.stretch != nil {
		if stretched, err = s.stretch.Process(block); err != nil {
			return nil, err
		}
	}

	resampled, err := s.resample(stretched)
	if err != nil {
		return nil, err
	}
	return s.release(resampled), nil
}

// Flush drains every stage and returns the tail, trimmed or zero-padded so
// the total output is exactly round(in·TargetRate/SourceRate).
func (s *Shifter) Flush() ([][]float64, error) {
	if s.flushed {
		return nil, ErrFlushed
	}
	s.flushed = true

	if s.stretch != nil {
		tail, err := s.stretch.Flush()
		if err != nil {
			return nil, err
		}
		resampled, err := s.resample(tail)
		if err != nil {
			return nil, err
		}
		s.append(resampled)
	}

	for ch, r := range s.resamplers {
		tail, err := r.Flush()
		if err != nil {
			return nil, fmt.Errorf("flush channel %d: %w", ch, err)
		}
		s.pending[ch] = append(s.pending[ch], tail...)
	}

	target := int64(math.Round(float64(s.in) * s.cfg.TargetRate / s.cfg.SourceRate))
	keep := int(max(target-s.out, 0))

	out := make([][]float64, s.cfg.Channels)
	for ch := range out {
		buf := s.pending[ch]
		if len(buf) >= keep {
			out[ch] = buf[:keep]
		} else {
			out[ch] = make([]float64, keep)
			copy(out[ch], buf)
		}
		s.pending[ch] = nil
	}
	s.out += int64(keep)
	return out, nil
}

// resample runs every channel through its resampler, concurrently when
// Parallel is set.
func (s *Shifter) resample(block [][]float64) ([][]float64, error) {
	out := make([][]float64, len(block))
	if !s.cfg.Parallel || len(block) < 2 {
		for ch, r := range s.resamplers {
			res, err := r.Process(block[ch])
			if err != nil {
				return nil, fmt.Errorf("resample channel %d: %w", ch, err)
			}
			out[ch] = res
		}
		return out, nil
	}

	var g errgroup.Group
	for ch, r := range s.resamplers {
		g.Go(func() error {
			res, err := r.Process(block[ch])
			if err != nil {
				return fmt.Errorf("resample channel %d: %w", ch, err)
			}
			out[ch] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Shifter) append(block [][]float64) {
	for ch := range block {
		s.pending[ch] = append(s.pending[ch], block[ch]...)
	}
}

// release appends block to the pending output and returns everything but
// the last holdBack samples per channel.
func (s *Shifter) release(block [][]float64) [][]float64 {
	s.append(block)

	n := max(len(s.pending[0])-s.holdBack, 0)
	out := make([][]float64, s.cfg.Channels)
	for ch := range out {
		out[ch] = append([]float64(nil), s.pending[ch][:n]...)
		s.pending[ch] = append(s.pending[ch][:0], s.pending[ch][n:]...)
	}
	s.out += int64(n)
	return out
}
