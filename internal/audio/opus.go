package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pion/webrtc/v3/pkg/media/oggreader"
	"layeh.com/gopus"
)

const (
	// Opus always decodes at 48 kHz; the OpusHead rate is informational.
	opusDecodeRate = 48000
	// opusMaxFrame is the longest Opus packet (120 ms) in samples per channel.
	opusMaxFrame = 5760
)

var opusTagsSignature = []byte("OpusTags")

// decodeOpus reads an Ogg Opus stream. Each Ogg page is decoded as one Opus
// packet, which is how this module and most streaming muxers write them.
func decodeOpus(r io.Reader) (*Stream, error) {
	ogg, head, err := oggreader.NewWith(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}
	channels := int(head.Channels)
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("%w: Opus stream with %d channels", ErrUnsupportedFormat, channels)
	}

	dec, err := gopus.NewDecoder(opusDecodeRate, channels)
	if err != nil {
		return nil, fmt.Errorf("create opus decoder: %w", err)
	}

	data := planar(channels, 0)
	skip := int(head.PreSkip)

	for {
		payload, _, err := ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ogg page: %w", err)
		}
		if len(payload) == 0 || bytes.HasPrefix(payload, opusTagsSignature) {
			continue
		}

		pcm, err := dec.Decode(payload, opusMaxFrame, false)
		if err != nil {
			return nil, fmt.Errorf("decode opus packet: %w", err)
		}

		frames := len(pcm) / channels
		start := min(skip, frames)
		skip -= start
		for i := start; i < frames; i++ {
			for ch := range channels {
				data[ch] = append(data[ch], float32(float64(pcm[i*channels+ch])*int16Scale))
			}
		}
	}

	return NewStream(opusDecodeRate, data)
}
