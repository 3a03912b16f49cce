package retune

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-retune/internal/encode"
	"github.com/tphakala/go-audio-retune/internal/resample"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.InDelta(t, 0.25, cfg.Analysis.StartFraction, 0)
	assert.Equal(t, 3*time.Second, cfg.Analysis.WindowDuration)
	assert.Equal(t, 4096, cfg.Analysis.FrameSize)
	assert.Equal(t, 2048, cfg.Analysis.HopSize)
	assert.Equal(t, DefaultMinReliability, cfg.Analysis.MinReliability)
	assert.Equal(t, "opus", cfg.Render.Format)
	assert.Equal(t, "medium", cfg.Render.Quality)
	assert.Equal(t, 4096, cfg.Render.BlockSize)
	assert.Equal(t, DefaultMaxConcurrent, cfg.MaxConcurrent)
}

func TestLoadConfigFromReader_FillsDefaults(t *testing.T) {
	cfg, err := LoadConfigFromReader(strings.NewReader(`
analysis:
  window_duration: 5s
  min_reliability: 10
render:
  format: wav
  quality: high
max_concurrent: 4
`))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Analysis.WindowDuration)
	assert.Equal(t, 10, cfg.Analysis.MinReliability)
	assert.Equal(t, 4, cfg.MaxConcurrent)

	// Untouched keys keep their defaults.
	def := DefaultConfig()
	assert.Equal(t, def.Analysis.HopSize, cfg.Analysis.HopSize)
	assert.Equal(t, def.Render.BlockSize, cfg.Render.BlockSize)
	assert.Equal(t, def.Render.SequenceMS, cfg.Render.SequenceMS)

	opts, format, err := cfg.Render.Options()
	require.NoError(t, err)
	assert.Equal(t, encode.FormatWAV, format)
	assert.Equal(t, resample.QualityHigh, opts.Quality)
}

func TestLoadConfigFromReader_Empty(t *testing.T) {
	cfg, err := LoadConfigFromReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoadConfigFromReader_UnknownField(t *testing.T) {
	_, err := LoadConfigFromReader(strings.NewReader("render:\n  codec: aac\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "codec")
}

func TestValidate_JoinsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Analysis.HopSize = 0
	cfg.Render.Format = "aac"
	cfg.Render.Quality = "ultra"
	cfg.MaxConcurrent = 0

	err := cfg.Validate()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidConfig)

	msg := err.Error()
	for _, want := range []string{"hop size", "render.format", "render.quality", "max_concurrent"} {
		assert.Contains(t, msg, want)
	}

	var joined interface{ Unwrap() []error }
	require.True(t, errors.As(err, &joined))
	assert.Len(t, joined.Unwrap(), 4)
}

func TestValidate_Table(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"start fraction", func(c *Config) { c.Analysis.StartFraction = 1 }},
		{"window", func(c *Config) { c.Analysis.WindowDuration = 0 }},
		{"frequency range", func(c *Config) { c.Analysis.MaxFrequency = c.Analysis.MinFrequency }},
		{"yin threshold", func(c *Config) { c.Analysis.YINThreshold = 1 }},
		{"min reliability", func(c *Config) { c.Analysis.MinReliability = -1 }},
		{"block size", func(c *Config) { c.Render.BlockSize = 0 }},
		{"queue depth", func(c *Config) { c.Render.QueueDepth = 0 }},
		{"bitrate", func(c *Config) { c.Render.Bitrate = 100 }},
		{"overlap", func(c *Config) { c.Render.SequenceMS = c.Render.OverlapMS }},
		{"search", func(c *Config) { c.Render.SearchMS = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "retune.yaml")
	require.NoError(t, os.WriteFile(path, []byte("render:\n  block_size: 1024\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Render.BlockSize)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(path, []byte("render:\n  block_size: 0\n"), 0o600))
	_, err = LoadConfig(path)
	require.ErrorIs(t, err, ErrInvalidConfig)
}
