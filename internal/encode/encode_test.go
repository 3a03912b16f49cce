package encode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-retune/internal/testutil"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatOpus, false},
		{"opus", FormatOpus, false},
		{"OGG", FormatOpus, false},
		{" wav ", FormatWAV, false},
		{"aac", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_Layout(t *testing.T) {
	assert.Equal(t, Layout{SampleRate: 48000, Channels: 2}, FormatOpus.Layout())
	assert.Equal(t, Layout{SampleRate: 44100, Channels: 2}, FormatWAV.Layout())
	assert.Equal(t, ".opus", FormatOpus.Extension())
	assert.Equal(t, ".wav", FormatWAV.Extension())
	assert.Equal(t, "wav", FormatWAV.String())
}

func TestRemix(t *testing.T) {
	mono := []float64{1, 2, 3}
	out := Remix([][]float64{mono}, 2)
	require.Len(t, out, 2)
	assert.Equal(t, mono, out[0])
	assert.Equal(t, mono, out[1])

	stereo := [][]float64{{1}, {2}}
	assert.Equal(t, stereo, Remix(stereo, 2))

	surround := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}}
	assert.Equal(t, [][]float64{{1}, {2}}, Remix(surround, 2))
}

func TestInterleaveInt16_Clamps(t *testing.T) {
	got := InterleaveInt16([][]float64{{0, 1.5, -2}, {0.5, -0.5, 1}}, nil)
	assert.Equal(t, []int16{0, 16383, 32767, -16383, -32767, 32767}, got)

	mono := InterleaveInt16([][]float64{{0.25}}, got)
	assert.Equal(t, []int16{8191}, mono)

	assert.Empty(t, InterleaveInt16([][]float64{{}, {}}, nil))
}

func TestCheckBlock(t *testing.T) {
	n, err := CheckBlock([][]float64{{1, 2}, {3, 4}}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = CheckBlock([][]float64{{1}}, 2)
	require.ErrorIs(t, err, ErrChannelMismatch)

	_, err = CheckBlock([][]float64{{1}, {1, 2}}, 2)
	require.ErrorIs(t, err, ErrChannelMismatch)
}

func TestOutput_CommitRenames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	out, err := Create(path)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(out.TempPath()))
	assert.NotEqual(t, path, out.TempPath())

	_, err = out.Write([]byte("hello"))
	require.NoError(t, err)
	assert.NoFileExists(t, path, "destination must not appear before commit")

	require.NoError(t, out.Commit())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.NoFileExists(t, out.TempPath())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(outputPerm), info.Mode().Perm())

	require.ErrorIs(t, out.Commit(), ErrClosed)
	require.NoError(t, out.Abort(), "abort after commit is a no-op")
	assert.FileExists(t, path)
}

func TestOutput_AbortRemoves(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	out, err := Create(path)
	require.NoError(t, err)
	_, err = out.Write([]byte("partial"))
	require.NoError(t, err)

	require.NoError(t, out.Abort())
	require.NoError(t, out.Abort())
	assert.NoFileExists(t, out.TempPath())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data), "existing destination is left alone")

	_, err = out.Write([]byte("x"))
	require.ErrorIs(t, err, ErrClosed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCreate_MissingDirectory(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "missing", "out.wav"))
	require.Error(t, err)
}

func TestWAVEncoder_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	out, err := Create(path)
	require.NoError(t, err)

	enc := NewWAV(out)
	left := testutil.Sine(440, WAVSampleRate, 10000, 0.5)
	right := testutil.Sine(880, WAVSampleRate, 10000, 0.25)
	for off := 0; off < len(left); off += 3000 {
		end := min(off+3000, len(left))
		require.NoError(t, enc.Write([][]float64{left[off:end], right[off:end]}))
	}
	require.NoError(t, enc.Close())
	require.NoError(t, out.Commit())
	assert.Equal(t, int64(10000), enc.Frames())

	got, rate := testutil.ReadWAV(t, path)
	assert.Equal(t, WAVSampleRate, rate)
	require.Len(t, got, 2)
	require.Len(t, got[0], 10000)
	for i := range left {
		require.InDelta(t, left[i], got[0][i], 1e-4)
		require.InDelta(t, right[i], got[1][i], 1e-4)
	}
}

func TestWAVEncoder_EmptyHasHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	out, err := Create(path)
	require.NoError(t, err)

	enc := NewWAV(out)
	require.NoError(t, enc.Close())
	require.NoError(t, out.Commit())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, info.Size(), int64(44))
}

func TestWAVEncoder_Errors(t *testing.T) {
	out, err := Create(filepath.Join(t.TempDir(), "x.wav"))
	require.NoError(t, err)
	defer func() { _ = out.Abort() }()

	enc := NewWAV(out)
	require.ErrorIs(t, enc.Write([][]float64{{0}}), ErrChannelMismatch)
	require.NoError(t, enc.Close())
	require.ErrorIs(t, enc.Write([][]float64{{0}, {0}}), ErrClosed)
}
