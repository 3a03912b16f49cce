package audio

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE

	wavChunkFrames = 8192
	wav8BitOffset  = 128
)

func decodeWAV(r io.ReadSeeker) (*Stream, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrUnsupportedFormat)
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: WAV encoding %d (only PCM is supported)", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	format := dec.Format()
	channels := format.NumChannels
	bitDepth := int(dec.BitDepth)
	if channels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: WAV header has %d channels at %d Hz", ErrInvalidStream, channels, format.SampleRate)
	}
	if bitDepth != 8 && bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return nil, fmt.Errorf("%w: %d-bit WAV", ErrUnsupportedFormat, bitDepth)
	}

	var expected int
	if d, err := dec.Duration(); err == nil {
		expected = int(d.Seconds() * float64(format.SampleRate))
	}

	scale := 1 / float64(int64(1)<<(bitDepth-1))
	offset := 0
	if bitDepth == 8 {
		offset = wav8BitOffset
	}

	data := planar(channels, expected)
	buf := &goaudio.IntBuffer{
		Format: format,
		Data:   make([]int, wavChunkFrames*channels),
	}

	idx := 0
	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil {
			return nil, fmt.Errorf("read WAV samples: %w", err)
		}
		if n == 0 {
			break
		}
		for _, v := range buf.Data[:n] {
			data[idx%channels] = append(data[idx%channels], float32(float64(v-offset)*scale))
			idx++
		}
	}

	// Drop a trailing partial frame.
	frames := idx / channels
	for ch := range data {
		data[ch] = data[ch][:frames]
	}

	return NewStream(format.SampleRate, data)
}
