// Package encode writes shifted audio to disk in one of the fixed output
// formats. Files are written under a temporary name next to the
// destination and only renamed into place once complete.
package encode

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for unknown output format names.
	ErrUnsupportedFormat = errors.New("encode: unsupported format")
	// ErrChannelMismatch is returned when a block does not match the layout.
	ErrChannelMismatch = errors.New("encode: channel mismatch")
	// ErrClosed is returned when writing to a closed encoder or output.
	ErrClosed = errors.New("encode: closed")
)

// Encoder consumes planar blocks in a fixed layout.
type Encoder interface {
	// Write encodes one planar block. Every channel must have the same
	// length and the channel count must match the layout.
	Write(block [][]float64) error
	// Close finishes the stream. It does not close the underlying writer.
	Close() error
	// Frames returns the number of sample frames accepted so far.
	Frames() int64
}

// CheckBlock validates a planar block against a channel count and returns
// its length in frames.
func CheckBlock(block [][]float64, channels int) (int, error) {
	if len(block) != channels {
		return 0, fmt.Errorf("%w: got %d channels, want %d", ErrChannelMismatch, len(block), channels)
	}
	if channels == 0 {
		return 0, nil
	}
	n := len(block[0])
	for ch := 1; ch < channels; ch++ {
		if len(block[ch]) != n {
			return 0, fmt.Errorf("%w: channel %d has %d frames, want %d", ErrChannelMismatch, ch, len(block[ch]), n)
		}
	}
	return n, nil
}
