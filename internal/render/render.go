// Package render performs offline pitch correction of a decoded stream into
// an encoded file.
//
// A producer goroutine reads fixed-size blocks from the source and pushes
// them through the shift stage; the consumer encodes them. The two are
// joined by a bounded channel under an errgroup, so a slow encoder throttles
// the producer and a failure on either side cancels the other. The
// destination only appears once every block has been encoded and the frame
// count checks out.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/go-audio-retune/internal/audio"
	"github.com/tphakala/go-audio-retune/internal/encode"
	"github.com/tphakala/go-audio-retune/internal/encode/opus"
	"github.com/tphakala/go-audio-retune/internal/observe"
	"github.com/tphakala/go-audio-retune/internal/resample"
	"github.com/tphakala/go-audio-retune/internal/shift"
)

var (
	// ErrSetup wraps failures before the first block is processed.
	ErrSetup = errors.New("render: setup failed")
	// ErrBlockFailed wraps a stage or encoder failure on a block.
	ErrBlockFailed = errors.New("render: block failed")
	// ErrLengthMismatch is returned when the encoded frame count differs
	// from the expected output length.
	ErrLengthMismatch = errors.New("render: output length mismatch")
)

// Stage is the per-render processing graph.
type Stage interface {
	Process(block [][]float64) ([][]float64, error)
	Flush() ([][]float64, error)
}

// StageFactory builds the Stage for one render.
type StageFactory func(cfg shift.Config) (Stage, error)

// EncoderFactory builds the encoder for one render on top of out.
type EncoderFactory func(format encode.Format, out *encode.Output, bitrate int) (encode.Encoder, error)

// Options configures a Renderer.
type Options struct {
	BlockSize  int
	QueueDepth int
	Quality    resample.Quality
	SequenceMS float64
	OverlapMS  float64
	SearchMS   float64
	Parallel   bool
	Bitrate    int

	Logger         *slog.Logger
	TracerProvider trace.TracerProvider

	// NewStage and NewEncoder override the default shift stage and
	// encoders. Nil selects the defaults.
	NewStage   StageFactory
	NewEncoder EncoderFactory
}

// DefaultOptions returns the default render settings.
func DefaultOptions() Options {
	return Options{
		BlockSize:  DefaultBlockSize,
		QueueDepth: DefaultQueueDepth,
		Quality:    resample.QualityMedium,
		SequenceMS: shift.DefaultSequenceMS,
		OverlapMS:  shift.DefaultOverlapMS,
		SearchMS:   shift.DefaultSearchMS,
		Parallel:   true,
		Bitrate:    encode.OpusBitrate,
	}
}

// Request describes one correction.
type Request struct {
	Source      *audio.Stream
	Cents       float64
	Destination string
	Format      encode.Format
}

// Stats summarizes a finished render.
type Stats struct {
	SourceFrames int64
	OutputFrames int64
	SampleRate   int
	Channels     int
	Format       encode.Format
	Blocks       int
	Elapsed      time.Duration
}

// Renderer runs renders. It holds configuration only and is safe for
// concurrent use; every Render builds its own stage and encoder.
type Renderer struct {
	opts   Options
	logger *slog.Logger
	tracer trace.Tracer
}

// New validates opts and returns a Renderer.
func New(opts Options) (*Renderer, error) {
	switch {
	case opts.BlockSize < 1:
		return nil, fmt.Errorf("%w: block size %d", ErrSetup, opts.BlockSize)
	case opts.QueueDepth < 1:
		return nil, fmt.Errorf("%w: queue depth %d", ErrSetup, opts.QueueDepth)
	case opts.Bitrate < encode.MinOpusBitrate || opts.Bitrate > encode.MaxOpusBitrate:
		return nil, fmt.Errorf("%w: bitrate %d", ErrSetup, opts.Bitrate)
	}
	if opts.NewStage == nil {
		opts.NewStage = newShiftStage
	}
	if opts.NewEncoder == nil {
		opts.NewEncoder = newEncoder
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		opts:   opts,
		logger: logger,
		tracer: observe.Tracer(opts.TracerProvider),
	}, nil
}

// Render shifts req.Source by req.Cents and writes it to req.Destination.
// On any failure or cancellation the destination is left untouched.
func (r *Renderer) Render(ctx context.Context, req Request) (stats Stats, err error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "render",
		trace.WithAttributes(
			attribute.Float64("cents", req.Cents),
			attribute.String("format", req.Format.String()),
		))
	defer func() { observe.EndSpan(span, err) }()

	if err := validate(req); err != nil {
		return Stats{}, err
	}

	src := req.Source
	layout := req.Format.Layout()
	channels := min(src.Channels(), layout.Channels)

	stage, err := r.opts.NewStage(shift.Config{
		SourceRate: float64(src.SampleRate()),
		TargetRate: float64(layout.SampleRate),
		Channels:   channels,
		Cents:      req.Cents,
		Quality:    r.opts.Quality,
		SequenceMS: r.opts.SequenceMS,
		OverlapMS:  r.opts.OverlapMS,
		SearchMS:   r.opts.SearchMS,
		Parallel:   r.opts.Parallel,
	})
	if err != nil {
		return Stats{}, fmt.Errorf("%w: build shift stage: %w", ErrSetup, err)
	}

	out, err := encode.Create(req.Destination)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		aerr := out.Abort()
		r.logger.Warn("output discarded",
			"destination", req.Destination,
			"error", err,
			"abort_error", aerr)
	}()

	enc, err := r.opts.NewEncoder(req.Format, out, r.opts.Bitrate)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: create %s encoder: %w", ErrSetup, req.Format, err)
	}

	blocks, err := r.pump(ctx, src, stage, enc, channels, layout.Channels)
	if err != nil {
		return Stats{}, err
	}

	if err := enc.Close(); err != nil {
		return Stats{}, fmt.Errorf("%w: finish stream: %w", ErrBlockFailed, err)
	}

	want := expectedFrames(src.Len(), src.SampleRate(), layout.SampleRate)
	if got := enc.Frames(); got != want {
		return Stats{}, fmt.Errorf("%w: wrote %d frames, want %d", ErrLengthMismatch, got, want)
	}

	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	if err := out.Commit(); err != nil {
		return Stats{}, err
	}
	committed = true

	stats = Stats{
		SourceFrames: int64(src.Len()),
		OutputFrames: want,
		SampleRate:   layout.SampleRate,
		Channels:     layout.Channels,
		Format:       req.Format,
		Blocks:       blocks,
		Elapsed:      time.Since(start),
	}
	r.logger.Info("render complete",
		"destination", req.Destination,
		"cents", req.Cents,
		"frames", stats.OutputFrames,
		"blocks", stats.Blocks,
		"elapsed", stats.Elapsed)
	return stats, nil
}

// pump runs the producer and consumer and returns the number of source
// blocks processed.
func (r *Renderer) pump(
	ctx context.Context,
	src *audio.Stream,
	stage Stage,
	enc encode.Encoder,
	channels, outChannels int,
) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan [][]float64, r.opts.QueueDepth)
	blocks := 0

	g.Go(func() error {
		defer close(queue)

		send := func(block [][]float64) error {
			select {
			case queue <- encode.Remix(block, outChannels):
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		}

		buf := make([][]float64, channels)
		for ch := range buf {
			buf[ch] = make([]float64, r.opts.BlockSize)
		}
		total := src.Len()
		for offset := 0; offset < total; {
			if err := gctx.Err(); err != nil {
				return err
			}
			remaining := total - offset
			n := min(r.opts.BlockSize, remaining)

			block := make([][]float64, channels)
			for ch := range block {
				block[ch] = buf[ch][:n]
			}
			if got := src.ReadBlock(block, offset); got != n {
				return fmt.Errorf("%w: block %d: read %d frames, want %d", ErrBlockFailed, blocks, got, n)
			}

			shifted, err := stage.Process(block)
			if err != nil {
				return fmt.Errorf("%w: block %d: %w", ErrBlockFailed, blocks, err)
			}
			if err := send(shifted); err != nil {
				return err
			}
			r.logger.Debug("block shifted", "block", blocks, "offset", offset, "frames", n)
			blocks++
			offset += n
		}

		tail, err := stage.Flush()
		if err != nil {
			return fmt.Errorf("%w: flush: %w", ErrBlockFailed, err)
		}
		return send(tail)
	})

	g.Go(func() error {
		for block := range queue {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := enc.Write(block); err != nil {
				return fmt.Errorf("%w: encode: %w", ErrBlockFailed, err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return blocks, err
	}
	// A cancellation that raced the last block still discards the output.
	return blocks, ctx.Err()
}

func validate(req Request) error {
	switch {
	case req.Source == nil || req.Source.Len() == 0:
		return fmt.Errorf("%w: empty source", ErrSetup)
	case math.IsNaN(req.Cents) || math.IsInf(req.Cents, 0) || math.Abs(req.Cents) > shift.MaxCents:
		return fmt.Errorf("%w: cents %v outside ±%v", ErrSetup, req.Cents, shift.MaxCents)
	case req.Destination == "":
		return fmt.Errorf("%w: empty destination", ErrSetup)
	}
	return nil
}

// expectedFrames is the output length for a source of n frames.
func expectedFrames(n, sourceRate, targetRate int) int64 {
	return int64(math.Round(float64(n) * float64(targetRate) / float64(sourceRate)))
}

func newShiftStage(cfg shift.Config) (Stage, error) {
	s, err := shift.New(cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newEncoder(format encode.Format, out *encode.Output, bitrate int) (encode.Encoder, error) {
	switch format {
	case encode.FormatWAV:
		return encode.NewWAV(out), nil
	case encode.FormatOpus:
		enc, err := opus.New(out, bitrate)
		if err != nil {
			return nil, err
		}
		return enc, nil
	default:
		return nil, fmt.Errorf("%w: %s", encode.ErrUnsupportedFormat, format)
	}
}
