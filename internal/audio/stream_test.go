package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStream_Validation(t *testing.T) {
	_, err := NewStream(0, [][]float32{{0}})
	assert.ErrorIs(t, err, ErrInvalidStream)

	_, err = NewStream(44100, nil)
	assert.ErrorIs(t, err, ErrInvalidStream)

	_, err = NewStream(44100, [][]float32{{0, 1}, {0}})
	assert.ErrorIs(t, err, ErrInvalidStream)

	s, err := NewStream(4, [][]float32{{0, 1, 2, 3, 4, 5}})
	require.NoError(t, err)
	assert.Equal(t, 6, s.Len())
	assert.Equal(t, 1, s.Channels())
	assert.Equal(t, 4, s.SampleRate())
	assert.Equal(t, 1500*time.Millisecond, s.Duration())
}

func TestStream_ReadBlock(t *testing.T) {
	s, err := NewStream(8000, [][]float32{
		{0, 1, 2, 3, 4},
		{10, 11, 12, 13, 14},
	})
	require.NoError(t, err)

	dst := [][]float64{make([]float64, 3), make([]float64, 3)}
	n := s.ReadBlock(dst, 0)
	assert.Equal(t, 3, n)
	assert.Equal(t, []float64{0, 1, 2}, dst[0])
	assert.Equal(t, []float64{10, 11, 12}, dst[1])

	n = s.ReadBlock(dst, 3)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float64{3, 4}, dst[0][:n])

	assert.Zero(t, s.ReadBlock(dst, 5))
	assert.Zero(t, s.ReadBlock(dst, -1))
}

func TestStream_Mono(t *testing.T) {
	s, err := NewStream(8000, [][]float32{
		{1, 1, 0},
		{0, -1, 0.5},
	})
	require.NoError(t, err)

	dst := make([]float64, 4)
	n := s.Mono(dst, 0)
	assert.Equal(t, 3, n)
	assert.InDeltaSlice(t, []float64{0.5, 0, 0.25}, dst[:n], 1e-7)

	assert.Zero(t, s.Mono(dst, 3))
}

func TestStream_ReadDoesNotAlias(t *testing.T) {
	s, err := NewStream(8000, [][]float32{{1, 2, 3}})
	require.NoError(t, err)

	dst := [][]float64{make([]float64, 3)}
	s.ReadBlock(dst, 0)
	dst[0][0] = 99

	again := [][]float64{make([]float64, 3)}
	s.ReadBlock(again, 0)
	assert.InDelta(t, 1.0, again[0][0], 0)
}
