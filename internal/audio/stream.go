// Package audio holds decoded PCM audio and the decoders that produce it.
package audio

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnsupportedFormat is returned when a source is not a recognized
	// container or uses an encoding the decoders cannot read.
	ErrUnsupportedFormat = errors.New("audio: unsupported format")

	// ErrEmptyStream is returned when a source decodes to zero frames.
	ErrEmptyStream = errors.New("audio: stream has no frames")

	// ErrInvalidStream is returned when stream parameters are inconsistent.
	ErrInvalidStream = errors.New("audio: invalid stream")
)

// Stream is decoded audio: planar float32 samples in [-1, 1] at a fixed
// sample rate. A Stream never changes after construction; every accessor
// copies out of it, so one Stream can be read from several goroutines.
type Stream struct {
	rate int
	data [][]float32
}

// NewStream wraps planar samples. It takes ownership of data; the caller
// must not modify it afterwards.
func NewStream(rate int, data [][]float32) (*Stream, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidStream, rate)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidStream)
	}
	n := len(data[0])
	for ch := range data {
		if len(data[ch]) != n {
			return nil, fmt.Errorf("%w: channel %d has %d frames, channel 0 has %d",
				ErrInvalidStream, ch, len(data[ch]), n)
		}
	}
	return &Stream{rate: rate, data: data}, nil
}

// SampleRate returns frames per second.
func (s *Stream) SampleRate() int { return s.rate }

// Channels returns the number of channels.
func (s *Stream) Channels() int { return len(s.data) }

// Len returns the number of frames.
func (s *Stream) Len() int { return len(s.data[0]) }

// Duration returns the stream length.
func (s *Stream) Duration() time.Duration {
	return time.Duration(float64(s.Len()) / float64(s.rate) * float64(time.Second))
}

// ReadBlock copies frames starting at start into dst, one slice per channel,
// and returns the number of frames copied. It copies at most len(dst[0])
// frames and never past the end of the stream.
func (s *Stream) ReadBlock(dst [][]float64, start int) int {
	if len(dst) == 0 || start < 0 || start >= s.Len() {
		return 0
	}
	n := min(len(dst[0]), s.Len()-start)
	for ch, src := range s.data {
		if ch >= len(dst) {
			break
		}
		out := dst[ch][:n]
		for i, v := range src[start : start+n] {
			out[i] = float64(v)
		}
	}
	return n
}

// Mono writes the channel average of frames [start, start+len(dst)) into dst
// and returns the number of frames written.
func (s *Stream) Mono(dst []float64, start int) int {
	if start < 0 || start >= s.Len() {
		return 0
	}
	n := min(len(dst), s.Len()-start)
	clear(dst[:n])
	for _, src := range s.data {
		for i, v := range src[start : start+n] {
			dst[i] += float64(v)
		}
	}
	if ch := len(s.data); ch > 1 {
		inv := 1 / float64(ch)
		for i := range dst[:n] {
			dst[i] *= inv
		}
	}
	return n
}
