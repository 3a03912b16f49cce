package testutil

import (
	"math"
	"os"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

// Sine returns n samples of a sine at freq Hz sampled at rate.
func Sine(freq, rate float64, n int, amplitude float64) []float64 {
	out := make([]float64, n)
	w := 2 * math.Pi * freq / rate
	for i := range out {
		out[i] = amplitude * math.Sin(w*float64(i))
	}
	return out
}

// Planar repeats one channel into a planar buffer with the given channel count.
func Planar(ch []float64, channels int) [][]float64 {
	out := make([][]float64, channels)
	for c := range out {
		out[c] = append([]float64(nil), ch...)
	}
	return out
}

// RMS returns the root mean square of s.
func RMS(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(s)))
}

// WriteWAV writes planar samples in [-1, 1] to a PCM WAV file at path.
func WriteWAV(t *testing.T, path string, rate, bitDepth int, planar [][]float64) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	channels := len(planar)
	require.Positive(t, channels)
	frames := len(planar[0])

	enc := wav.NewEncoder(f, rate, bitDepth, channels, 1)
	scale := float64(int64(1)<<(bitDepth-1)) - 1
	data := make([]int, frames*channels)
	for i := range frames {
		for c := range channels {
			v := int(math.Round(planar[c][i] * scale))
			if bitDepth == 8 {
				v += 128
			}
			data[i*channels+c] = v
		}
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

// WriteSineWAV writes a 16-bit sine fixture of the given duration.
func WriteSineWAV(t *testing.T, path string, freq float64, rate, channels int, seconds float64) {
	t.Helper()
	n := int(seconds * float64(rate))
	WriteWAV(t, path, rate, 16, Planar(Sine(freq, float64(rate), n, 0.5), channels))
}

// ReadWAV decodes a PCM WAV file into planar samples in [-1, 1] and returns
// them with the sample rate.
func ReadWAV(t *testing.T, path string) ([][]float64, int) {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile(), "not a valid WAV file: %s", path)

	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)

	channels := buf.Format.NumChannels
	scale := float64(int64(1) << (dec.BitDepth - 1))
	frames := len(buf.Data) / channels
	out := make([][]float64, channels)
	for c := range out {
		out[c] = make([]float64, frames)
		for i := range frames {
			out[c][i] = float64(buf.Data[i*channels+c]) / scale
		}
	}
	return out, buf.Format.SampleRate
}
