package shift

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-retune/internal/testutil"
)

func testParams(ratio float64, channels int) StretchParams {
	const rate = 44100.0
	return StretchParams{
		Ratio:    ratio,
		Channels: channels,
		Sequence: msToSamples(DefaultSequenceMS, rate),
		Overlap:  msToSamples(DefaultOverlapMS, rate),
		Search:   msToSamples(DefaultSearchMS, rate),
	}
}

func TestStretchParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*StretchParams)
		wantErr bool
	}{
		{"defaults", func(*StretchParams) {}, false},
		{"ratio too small", func(p *StretchParams) { p.Ratio = 0.1 }, true},
		{"ratio too large", func(p *StretchParams) { p.Ratio = 5 }, true},
		{"ratio NaN", func(p *StretchParams) { p.Ratio = math.NaN() }, true},
		{"no channels", func(p *StretchParams) { p.Channels = 0 }, true},
		{"tiny overlap", func(p *StretchParams) { p.Overlap = 2 }, true},
		{"sequence shorter than two overlaps", func(p *StretchParams) { p.Sequence = 2*p.Overlap - 1 }, true},
		{"negative search", func(p *StretchParams) { p.Search = -1 }, true},
		{"zero search", func(p *StretchParams) { p.Search = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams(1.1, 2)
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestStretcher_ExactLength(t *testing.T) {
	ratios := []float64{0.5, 0.8, 1, 1.0594630943592953, 1.5, 2}
	lengths := []int{0, 10, 1000, 44100}
	blocks := []int{333, 4096}

	for _, ratio := range ratios {
		for _, n := range lengths {
			for _, bs := range blocks {
				t.Run(fmt.Sprintf("r=%.3f/n=%d/block=%d", ratio, n, bs), func(t *testing.T) {
					st, err := NewStretcher(testParams(ratio, 2))
					require.NoError(t, err)

					mono := testutil.Sine(440, 44100, n, 0.5)
					out := run(t, st, [][]float64{mono, mono}, bs)

					want := int(math.Round(float64(n) * ratio))
					assert.Len(t, out[0], want)
					assert.Len(t, out[1], want)

					in, produced := st.Counts()
					assert.Equal(t, int64(n), in)
					assert.Equal(t, int64(want), produced)
				})
			}
		}
	}
}

func TestStretcher_Passthrough(t *testing.T) {
	st, err := NewStretcher(testParams(1, 1))
	require.NoError(t, err)

	in := testutil.Sine(440, 44100, 5000, 0.5)
	out := run(t, st, [][]float64{in}, 1024)
	assert.Equal(t, in, out[0])
}

func TestStretcher_PreservesFrequency(t *testing.T) {
	const rate = 44100.0
	for _, ratio := range []float64{0.7, 1.2, 1.8} {
		t.Run(fmt.Sprintf("r=%.1f", ratio), func(t *testing.T) {
			st, err := NewStretcher(testParams(ratio, 1))
			require.NoError(t, err)

			in := testutil.Sine(440, rate, int(rate), 0.5)
			out := run(t, st, [][]float64{in}, 4096)

			testutil.AssertFinite(t, out[0])
			testutil.AssertRelativeError(t, 440, frequencyAt(t, out[0], rate), 0.01)
			// Cross-fading correlated segments keeps the level.
			assert.InDelta(t, testutil.RMS(in), testutil.RMS(out[0][:len(out[0])/2]), 0.05)
		})
	}
}

func TestStretcher_StereoImageKept(t *testing.T) {
	st, err := NewStretcher(testParams(1.3, 2))
	require.NoError(t, err)

	left := testutil.Sine(330, 44100, 20000, 0.5)
	right := make([]float64, len(left))
	for i, v := range left {
		right[i] = -0.5 * v
	}
	out := run(t, st, [][]float64{left, right}, 2048)

	for i := range out[0] {
		require.InDelta(t, -0.5*out[0][i], out[1][i], 1e-12, "sample %d", i)
	}
}

func TestStretcher_Errors(t *testing.T) {
	st, err := NewStretcher(testParams(1.2, 2))
	require.NoError(t, err)

	_, err = st.Process([][]float64{make([]float64, 10)})
	require.ErrorIs(t, err, ErrChannelMismatch)

	_, err = st.Process([][]float64{make([]float64, 10), make([]float64, 9)})
	require.ErrorIs(t, err, ErrChannelMismatch)

	_, err = st.Flush()
	require.NoError(t, err)

	_, err = st.Process([][]float64{{}, {}})
	require.ErrorIs(t, err, ErrFlushed)
	_, err = st.Flush()
	require.ErrorIs(t, err, ErrFlushed)
}

func TestStretcher_Deterministic(t *testing.T) {
	in := testutil.Sine(440, 44100, 10000, 0.5)

	a, err := NewStretcher(testParams(1.5, 1))
	require.NoError(t, err)
	b, err := NewStretcher(testParams(1.5, 1))
	require.NoError(t, err)

	assert.Equal(t, run(t, a, [][]float64{in}, 1000), run(t, b, [][]float64{in}, 1000))
}

func TestWindow(t *testing.T) {
	w := newWindow(4)
	w.Write([]float64{0, 1, 2, 3, 4, 5})
	assert.Equal(t, int64(0), w.Base())
	assert.Equal(t, int64(6), w.End())
	assert.Equal(t, []float64{2, 3}, w.Slice(2, 4))

	w.Discard(4)
	assert.Equal(t, int64(4), w.Base())
	assert.Equal(t, []float64{4, 5}, w.Slice(4, 6))

	w.WriteZeros(2)
	assert.Equal(t, []float64{5, 0, 0}, w.Slice(5, 8))

	w.Discard(2) // already gone
	assert.Equal(t, int64(4), w.Base())

	w.Discard(100)
	assert.Equal(t, w.End(), w.Base())
}
