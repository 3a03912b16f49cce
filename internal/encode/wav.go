package encode

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVEncoder writes 16-bit PCM WAV.
type WAVEncoder struct {
	enc    *wav.Encoder
	buf    *goaudio.IntBuffer
	layout Layout
	frames int64
	closed bool
}

// NewWAV returns a WAV encoder in the fixed WAV layout writing to w.
func NewWAV(w io.WriteSeeker) *WAVEncoder {
	layout := FormatWAV.Layout()
	return &WAVEncoder{
		enc:    wav.NewEncoder(w, layout.SampleRate, WAVBitDepth, layout.Channels, wavFormatPCM),
		layout: layout,
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: layout.Channels,
				SampleRate:  layout.SampleRate,
			},
			SourceBitDepth: WAVBitDepth,
		},
	}
}

// Write encodes one block.
func (e *WAVEncoder) Write(block [][]float64) error {
	if e.closed {
		return ErrClosed
	}
	n, err := CheckBlock(block, e.layout.Channels)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	e.buf.Data = interleaveInt(block, e.buf.Data)
	if err := e.enc.Write(e.buf); err != nil {
		return fmt.Errorf("write WAV samples: %w", err)
	}
	e.frames += int64(n)
	return nil
}

// Close writes the final header sizes.
func (e *WAVEncoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if e.frames == 0 {
		// The header is only emitted with the first buffer.
		e.buf.Data = e.buf.Data[:0]
		if err := e.enc.Write(e.buf); err != nil {
			return fmt.Errorf("write WAV header: %w", err)
		}
	}
	if err := e.enc.Close(); err != nil {
		return fmt.Errorf("finish WAV: %w", err)
	}
	return nil
}

// Frames returns the number of frames written.
func (e *WAVEncoder) Frames() int64 { return e.frames }
