package shift

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-retune/internal/pitch"
)

// stage is the streaming surface shared by Stretcher and Shifter.
type stage interface {
	Process(block [][]float64) ([][]float64, error)
	Flush() ([][]float64, error)
}

// run feeds input through st in blocks of blockSize and returns the
// concatenated output including the flushed tail.
func run(t *testing.T, st stage, input [][]float64, blockSize int) [][]float64 {
	t.Helper()
	channels := len(input)
	out := make([][]float64, channels)
	collect := func(block [][]float64) {
		require.Len(t, block, channels)
		for ch := range block {
			out[ch] = append(out[ch], block[ch]...)
		}
	}

	n := len(input[0])
	for off := 0; off < n; off += blockSize {
		end := min(off+blockSize, n)
		block := make([][]float64, channels)
		for ch := range block {
			block[ch] = input[ch][off:end]
		}
		res, err := st.Process(block)
		require.NoError(t, err)
		collect(res)
	}
	tail, err := st.Flush()
	require.NoError(t, err)
	collect(tail)
	return out
}

// frequencyAt estimates the pitch of the frame starting at the middle of s.
func frequencyAt(t *testing.T, s []float64, rate float64) float64 {
	t.Helper()
	est, err := pitch.NewEstimator(pitch.EstimatorConfig{
		SampleRate:       rate,
		Threshold:        pitch.DefaultYINThreshold,
		MinFrequency:     pitch.DefaultMinFrequency,
		MaxFrequency:     pitch.DefaultMaxFrequency,
		SilenceThreshold: pitch.DefaultSilenceThreshold,
	})
	require.NoError(t, err)
	mid := len(s) / 2
	require.GreaterOrEqual(t, len(s)-mid, pitch.DefaultFrameSize)
	return est.Estimate(s[mid : mid+pitch.DefaultFrameSize]).FrequencyHz
}
