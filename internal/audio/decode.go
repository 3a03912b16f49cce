package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Open decodes the audio file at path. The file is closed before Open
// returns.
func Open(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("audio: read %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("audio: seek %s: %w", path, err)
	}

	format := DetectFormat(header[:n])
	if format == FormatUnknown {
		format = FormatFromPath(path)
	}

	s, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("audio: decode %s: %w", path, err)
	}
	return s, nil
}

// Decode reads a whole stream of the given format from r.
func Decode(r io.ReadSeeker, format Format) (*Stream, error) {
	var (
		s   *Stream
		err error
	)
	switch format {
	case FormatWAV:
		s, err = decodeWAV(r)
	case FormatMP3:
		s, err = decodeMP3(r)
	case FormatOpus:
		s, err = decodeOpus(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	if s.Len() == 0 {
		return nil, ErrEmptyStream
	}
	return s, nil
}

// planar allocates per-channel sample slices with room for frames.
func planar(channels, frames int) [][]float32 {
	out := make([][]float32, channels)
	for ch := range out {
		out[ch] = make([]float32, 0, frames)
	}
	return out
}
