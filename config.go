package retune

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tphakala/go-audio-retune/internal/encode"
	"github.com/tphakala/go-audio-retune/internal/pitch"
	"github.com/tphakala/go-audio-retune/internal/render"
	"github.com/tphakala/go-audio-retune/internal/resample"
	"github.com/tphakala/go-audio-retune/internal/shift"
)

// Config holds every tunable of a Service.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Render   RenderConfig   `yaml:"render"`

	// MaxConcurrent bounds the number of operations running at once.
	// Further calls queue until a slot frees up.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// AnalysisConfig controls which part of a file is analyzed and which
// frames are trusted.
type AnalysisConfig struct {
	// StartFraction skips this fraction of the file before the analysis
	// window, to step over leading silence and fade-ins.
	StartFraction float64 `yaml:"start_fraction"`

	// WindowDuration is the amount of material analyzed. Files too short
	// for the window past the offset slide the window back toward the
	// start.
	WindowDuration time.Duration `yaml:"window_duration"`

	FrameSize int `yaml:"frame_size"`
	HopSize   int `yaml:"hop_size"`

	// SilenceThreshold is the frame RMS at or below which a frame is
	// dropped.
	SilenceThreshold float64 `yaml:"silence_threshold"`

	// YINThreshold is the absolute threshold of the pitch detector.
	YINThreshold float64 `yaml:"yin_threshold"`

	MinFrequency float64 `yaml:"min_frequency"`
	MaxFrequency float64 `yaml:"max_frequency"`

	// MinReliability is the number of accepted frames a result needs to
	// be considered trustworthy.
	MinReliability int `yaml:"min_reliability"`
}

// RenderConfig controls the correction render.
type RenderConfig struct {
	BlockSize  int `yaml:"block_size"`
	QueueDepth int `yaml:"queue_depth"`

	// Quality is the resampler quality: low, medium or high.
	Quality string `yaml:"quality"`

	// Format is the output format: opus or wav.
	Format string `yaml:"format"`

	// Bitrate is the Opus bitrate in bits per second.
	Bitrate int `yaml:"bitrate"`

	SequenceMS float64 `yaml:"sequence_ms"`
	OverlapMS  float64 `yaml:"overlap_ms"`
	SearchMS   float64 `yaml:"search_ms"`

	// Parallel shifts channels concurrently.
	Parallel bool `yaml:"parallel"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	p := pitch.DefaultPolicy()
	return Config{
		Analysis: AnalysisConfig{
			StartFraction:    p.StartFraction,
			WindowDuration:   p.Window,
			FrameSize:        p.FrameSize,
			HopSize:          p.HopSize,
			SilenceThreshold: p.SilenceThreshold,
			YINThreshold:     p.YINThreshold,
			MinFrequency:     p.MinFrequency,
			MaxFrequency:     p.MaxFrequency,
			MinReliability:   DefaultMinReliability,
		},
		Render: RenderConfig{
			BlockSize:  render.DefaultBlockSize,
			QueueDepth: render.DefaultQueueDepth,
			Quality:    resample.QualityMedium.String(),
			Format:     encode.FormatOpus.String(),
			Bitrate:    encode.OpusBitrate,
			SequenceMS: shift.DefaultSequenceMS,
			OverlapMS:  shift.DefaultOverlapMS,
			SearchMS:   shift.DefaultSearchMS,
			Parallel:   true,
		},
		MaxConcurrent: DefaultMaxConcurrent,
	}
}

// Policy converts the analysis settings into a tracker policy.
func (c AnalysisConfig) Policy() pitch.Policy {
	return pitch.Policy{
		StartFraction:    c.StartFraction,
		Window:           c.WindowDuration,
		FrameSize:        c.FrameSize,
		HopSize:          c.HopSize,
		SilenceThreshold: c.SilenceThreshold,
		YINThreshold:     c.YINThreshold,
		MinFrequency:     c.MinFrequency,
		MaxFrequency:     c.MaxFrequency,
	}
}

// Options converts the render settings into renderer options.
func (c RenderConfig) Options() (render.Options, encode.Format, error) {
	quality, err := resample.ParseQuality(c.Quality)
	if err != nil {
		return render.Options{}, 0, err
	}
	format, err := encode.ParseFormat(c.Format)
	if err != nil {
		return render.Options{}, 0, err
	}
	return render.Options{
		BlockSize:  c.BlockSize,
		QueueDepth: c.QueueDepth,
		Quality:    quality,
		SequenceMS: c.SequenceMS,
		OverlapMS:  c.OverlapMS,
		SearchMS:   c.SearchMS,
		Parallel:   c.Parallel,
		Bitrate:    c.Bitrate,
	}, format, nil
}

// Validate checks the configuration and returns every problem found,
// joined, each wrapping ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if err := c.Analysis.Policy().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: analysis: %w", ErrInvalidConfig, err))
	}
	if c.Analysis.MinReliability < 0 {
		add("analysis.min_reliability %d must not be negative", c.Analysis.MinReliability)
	}

	r := c.Render
	if r.BlockSize < 1 {
		add("render.block_size %d must be positive", r.BlockSize)
	}
	if r.QueueDepth < 1 {
		add("render.queue_depth %d must be positive", r.QueueDepth)
	}
	if _, err := resample.ParseQuality(r.Quality); err != nil {
		add("render.quality %q is invalid; valid values: low, medium, high", r.Quality)
	}
	if _, err := encode.ParseFormat(r.Format); err != nil {
		add("render.format %q is invalid; valid values: opus, wav", r.Format)
	}
	if r.Bitrate < encode.MinOpusBitrate || r.Bitrate > encode.MaxOpusBitrate {
		add("render.bitrate %d is outside [%d, %d]", r.Bitrate, encode.MinOpusBitrate, encode.MaxOpusBitrate)
	}
	if r.OverlapMS <= 0 || r.SequenceMS < 2*r.OverlapMS {
		add("render sequence_ms %v must be at least twice overlap_ms %v", r.SequenceMS, r.OverlapMS)
	}
	if r.SearchMS < 0 {
		add("render.search_ms %v must not be negative", r.SearchMS)
	}

	if c.MaxConcurrent < 1 {
		add("max_concurrent %d must be positive", c.MaxConcurrent)
	}

	return errors.Join(errs...)
}

// LoadConfig reads a YAML config file. See LoadConfigFromReader.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadConfigFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigFromReader decodes YAML onto DefaultConfig, so keys missing
// from the document keep their defaults, and validates the result.
// Unknown keys are an error.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
