package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

const (
	// go-mp3 always produces 16-bit little-endian stereo.
	mp3Channels      = 2
	mp3BytesPerFrame = 4
	mp3ReadFrames    = 4096
	int16Scale       = 1.0 / 32768
)

func decodeMP3(r io.Reader) (*Stream, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}

	expected := 0
	if l := dec.Length(); l > 0 {
		expected = int(l / mp3BytesPerFrame)
	}
	data := planar(mp3Channels, expected)

	buf := make([]byte, mp3ReadFrames*mp3BytesPerFrame)
	pending := 0
	for {
		n, err := dec.Read(buf[pending:])
		n += pending
		whole := n - n%mp3BytesPerFrame
		for i := 0; i < whole; i += mp3BytesPerFrame {
			left := int16(binary.LittleEndian.Uint16(buf[i:]))
			right := int16(binary.LittleEndian.Uint16(buf[i+2:]))
			data[0] = append(data[0], float32(float64(left)*int16Scale))
			data[1] = append(data[1], float32(float64(right)*int16Scale))
		}
		pending = copy(buf, buf[whole:n])

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read MP3 samples: %w", err)
		}
	}

	return NewStream(dec.SampleRate(), data)
}
