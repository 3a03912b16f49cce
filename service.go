package retune

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/tphakala/go-audio-retune/internal/audio"
	"github.com/tphakala/go-audio-retune/internal/encode"
	"github.com/tphakala/go-audio-retune/internal/observe"
	"github.com/tphakala/go-audio-retune/internal/pitch"
	"github.com/tphakala/go-audio-retune/internal/render"
)

// AnalysisResult is the outcome of Analyze. A zero value (see NoPitch) means
// no usable pitch was found; a measured result always has Reliability > 0,
// even when its CentsOffset is zero.
type AnalysisResult = pitch.Result

// NoPitch returns the result of an analysis that found nothing usable.
func NoPitch() AnalysisResult { return pitch.NoPitch() }

// CorrectionResult describes a finished correction.
type CorrectionResult struct {
	Source       string
	Destination  string
	CentsApplied float64
	SourceFrames int64
	OutputFrames int64
	SampleRate   int
	Channels     int
	Format       string
	Elapsed      time.Duration
}

// Option configures a Service.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	renderHook     func(*render.Options)
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMeterProvider sets the meter provider. The default is the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider. The default is the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// withRenderHook lets tests adjust renderer options, e.g. to inject stages.
func withRenderHook(fn func(*render.Options)) Option {
	return func(o *options) { o.renderHook = fn }
}

// Service runs analyses and corrections in the background. Every call
// returns a Future that resolves exactly once. Calls share no mutable
// audio state; at most MaxConcurrent of them run at a time.
//
// Two corrections may not write the same destination at once: the second
// one is rejected with ErrDestinationBusy.
type Service struct {
	cfg      Config
	format   encode.Format
	tracker  *pitch.Tracker
	renderer *render.Renderer

	logger  *slog.Logger
	metrics *observe.Metrics
	tracer  trace.Tracer

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	mu   sync.Mutex
	busy map[string]struct{}
}

// New builds a Service. A nil cfg selects DefaultConfig.
func New(cfg *Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		def := DefaultConfig()
		cfg = &def
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}

	tracker, err := pitch.NewTracker(cfg.Analysis.Policy(), o.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	ropts, format, err := cfg.Render.Options()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	ropts.Logger = o.logger
	ropts.TracerProvider = o.tracerProvider
	if o.renderHook != nil {
		o.renderHook(&ropts)
	}
	renderer, err := render.New(ropts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	metrics, err := observe.NewMetrics(o.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	return &Service{
		cfg:      *cfg,
		format:   format,
		tracker:  tracker,
		renderer: renderer,
		logger:   o.logger,
		metrics:  metrics,
		tracer:   observe.Tracer(o.tracerProvider),
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		busy:     make(map[string]struct{}),
	}, nil
}

// Config returns the configuration the Service was built with.
func (s *Service) Config() Config { return s.cfg }

// Trustworthy reports whether result is backed by at least
// MinReliability analysis frames.
func (s *Service) Trustworthy(result AnalysisResult) bool {
	return result.Reliable(s.cfg.Analysis.MinReliability)
}

// Wait blocks until every operation started so far has resolved.
func (s *Service) Wait() { s.wg.Wait() }

// Analyze estimates the tuning reference of the file at path.
//
// Silence and unpitched material resolve to NoPitch with a nil error. An
// unreadable file resolves to NoPitch with an error wrapping
// ErrUnreadableSource. Cancelling ctx stops the analysis between frames.
func (s *Service) Analyze(ctx context.Context, path string) *Future[AnalysisResult] {
	f := newFuture[AnalysisResult]()
	run(s, ctx, observe.OpAnalyze, f, func(ctx context.Context) (AnalysisResult, string, error) {
		span := trace.SpanFromContext(ctx)
		span.SetAttributes(attribute.String("source", path))

		release, err := s.slot(ctx, observe.OpAnalyze)
		if err != nil {
			return NoPitch(), statusOf(err), err
		}
		defer release()

		src, err := audio.Open(path)
		if err != nil {
			return NoPitch(), observe.StatusError, fmt.Errorf("%w: %w", ErrUnreadableSource, err)
		}

		deviations, err := s.tracker.Track(ctx, src)
		if err != nil {
			return NoPitch(), statusOf(err), err
		}
		res := pitch.Aggregate(deviations)

		span.SetAttributes(
			attribute.Float64("detected_hz", res.DetectedHz),
			attribute.Float64("cents_offset", res.CentsOffset),
			attribute.Int("reliability", res.Reliability),
		)
		s.logger.Info("analysis complete",
			"source", path,
			"detected_hz", res.DetectedHz,
			"cents_offset", res.CentsOffset,
			"reliability", res.Reliability,
			"trustworthy", s.Trustworthy(res))

		if !res.Found() {
			return res, observe.StatusNoPitch, nil
		}
		return res, observe.StatusOK, nil
	})
	return f
}

// Correct renders a copy of source shifted by result.CentsOffset, used as
// is, to dest. It does not check whether result is trustworthy; that
// decision belongs to the caller.
func (s *Service) Correct(ctx context.Context, source string, result AnalysisResult, dest string) *Future[CorrectionResult] {
	return s.CorrectCents(ctx, source, result.CentsOffset, dest)
}

// CorrectCents renders a copy of source shifted by cents to dest in the
// configured output format. The destination appears only when the whole
// render succeeds; on failure or cancellation nothing is left behind and
// an existing file at dest is untouched.
func (s *Service) CorrectCents(ctx context.Context, source string, cents float64, dest string) *Future[CorrectionResult] {
	f := newFuture[CorrectionResult]()

	key, err := s.claim(source, dest)
	if err != nil {
		s.metrics.RecordOperation(ctx, observe.OpCorrect, observe.StatusRejected, 0)
		s.logger.Warn("correction rejected", "source", source, "destination", dest, "error", err)
		f.resolve(CorrectionResult{}, err)
		return f
	}

	run(s, ctx, observe.OpCorrect, f, func(ctx context.Context) (CorrectionResult, string, error) {
		defer s.unclaim(key)

		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("source", source),
			attribute.String("destination", dest),
			attribute.Float64("cents", cents),
		)

		release, err := s.slot(ctx, observe.OpCorrect)
		if err != nil {
			return CorrectionResult{}, statusOf(err), err
		}
		defer release()

		return s.correct(ctx, source, cents, dest)
	})
	return f
}

func (s *Service) correct(ctx context.Context, source string, cents float64, dest string) (CorrectionResult, string, error) {
	src, err := audio.Open(source)
	if err != nil {
		return CorrectionResult{}, observe.StatusError, fmt.Errorf("%w: %w", ErrUnreadableSource, err)
	}

	stats, err := s.renderer.Render(ctx, render.Request{
		Source:      src,
		Cents:       cents,
		Destination: dest,
		Format:      s.format,
	})
	if err != nil {
		return CorrectionResult{}, statusOf(err), err
	}
	s.metrics.RenderFrames.Add(ctx, stats.OutputFrames,
		metric.WithAttributes(attribute.String("format", stats.Format.String())))

	return CorrectionResult{
		Source:       source,
		Destination:  dest,
		CentsApplied: cents,
		SourceFrames: stats.SourceFrames,
		OutputFrames: stats.OutputFrames,
		SampleRate:   stats.SampleRate,
		Channels:     stats.Channels,
		Format:       stats.Format.String(),
		Elapsed:      stats.Elapsed,
	}, observe.StatusOK, nil
}

// run executes fn on its own goroutine and resolves f with its outcome
// exactly once. A panic in fn resolves f with ErrInternal.
func run[T any](s *Service, ctx context.Context, op string, f *Future[T], fn func(context.Context) (T, string, error)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		start := time.Now()
		spanCtx, span := s.tracer.Start(ctx, op)
		var (
			value  T
			status string
			err    error
		)
		defer func() {
			if r := recover(); r != nil {
				var zero T
				value, status = zero, observe.StatusError
				err = fmt.Errorf("%w: %s: %v", ErrInternal, op, r)
				s.logger.Error("operation panicked",
					"op", op,
					"panic", r,
					"stack", string(debug.Stack()))
			}
			observe.EndSpan(span, err)
			s.metrics.RecordOperation(context.WithoutCancel(ctx), op, status, time.Since(start))
			f.resolve(value, err)
		}()

		value, status, err = fn(spanCtx)
	}()
}

// slot waits for a free concurrency slot and marks op active. The returned
// func gives the slot back.
func (s *Service) slot(ctx context.Context, op string) (func(), error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	end := s.metrics.Begin(ctx, op)
	return func() {
		end()
		s.sem.Release(1)
	}, nil
}

// claim reserves dest for one correction. It fails when dest is the
// source or another correction holds it.
func (s *Service) claim(source, dest string) (string, error) {
	key, err := filepath.Abs(dest)
	if err != nil {
		return "", fmt.Errorf("resolve destination %q: %w", dest, err)
	}
	if sameFile(source, key) {
		return "", fmt.Errorf("%w: %s", ErrDestinationIsSource, dest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.busy[key]; ok {
		return "", fmt.Errorf("%w: %s", ErrDestinationBusy, dest)
	}
	s.busy[key] = struct{}{}
	return key, nil
}

func (s *Service) unclaim(key string) {
	s.mu.Lock()
	delete(s.busy, key)
	s.mu.Unlock()
}

// sameFile compares cleaned absolute paths, and the files themselves when
// both exist, so links to the source are caught too.
func sameFile(source, dest string) bool {
	abs, err := filepath.Abs(source)
	if err == nil && abs == dest {
		return true
	}
	si, err := os.Stat(source)
	if err != nil {
		return false
	}
	di, err := os.Stat(dest)
	if err != nil {
		return false
	}
	return os.SameFile(si, di)
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return observe.StatusOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return observe.StatusCancelled
	case errors.Is(err, ErrDestinationBusy), errors.Is(err, ErrDestinationIsSource):
		return observe.StatusRejected
	default:
		return observe.StatusError
	}
}
