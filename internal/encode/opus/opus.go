// Package opus writes Ogg Opus files: 48 kHz, 20 ms packets, one packet
// per Ogg page.
package opus

import (
	"fmt"
	"io"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3/pkg/media/oggwriter"
	"layeh.com/gopus"

	"github.com/tphakala/go-audio-retune/internal/encode"
)

const (
	sampleRate = encode.OpusSampleRate
	// frameSize is the number of samples per channel in a 20 ms packet.
	frameSize      = sampleRate * 20 / 1000
	maxPacketBytes = 4000

	// muxerPreSkip is the pre-skip the Ogg muxer declares in OpusHead.
	muxerPreSkip = 3840
	// encoderLookahead is the algorithmic delay of the encoder at 48 kHz.
	encoderLookahead = 312
	// leadingSilence aligns the first real sample with the end of pre-skip.
	leadingSilence = muxerPreSkip - encoderLookahead
	// granuleLag is how far the muxer's granule positions trail the samples
	// written: the first page is stamped 1 instead of frameSize.
	granuleLag = frameSize - 1
)

// packetsFor returns the number of packets needed for the final granule
// position to cover pre-skip plus frames real samples.
func packetsFor(frames int64) int64 {
	need := muxerPreSkip + frames + granuleLag
	return (need + frameSize - 1) / frameSize
}

// writerOnly hides Close from the Ogg muxer so the caller keeps ownership
// of the destination.
type writerOnly struct{ io.Writer }

// Encoder encodes stereo blocks to Ogg Opus.
type Encoder struct {
	enc      *gopus.Encoder
	ogg      *oggwriter.OggWriter
	channels int

	pending   []int16
	scratch   []int16
	timestamp uint32
	frames    int64
	packets   int64
	closed    bool
}

// New returns an encoder writing to w at the given bitrate in bits per
// second. The Ogg headers are written immediately.
func New(w io.Writer, bitrate int) (*Encoder, error) {
	channels := encode.FormatOpus.Layout().Channels

	enc, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}
	enc.SetBitrate(bitrate)

	ogg, err := oggwriter.NewWith(writerOnly{w}, sampleRate, uint16(channels))
	if err != nil {
		return nil, fmt.Errorf("write ogg headers: %w", err)
	}

	return &Encoder{
		enc:      enc,
		ogg:      ogg,
		channels: channels,
		pending:  make([]int16, leadingSilence*channels, (leadingSilence+frameSize)*channels),
	}, nil
}

// Write encodes one planar block, emitting every complete packet.
func (e *Encoder) Write(block [][]float64) error {
	if e.closed {
		return encode.ErrClosed
	}
	n, err := encode.CheckBlock(block, e.channels)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	e.scratch = encode.InterleaveInt16(block, e.scratch)
	e.pending = append(e.pending, e.scratch...)
	e.frames += int64(n)
	return e.drain()
}

// Close pads the stream with silence until the last granule position
// covers every real sample, then ends the stream.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	written := e.packets*frameSize + int64(len(e.pending)/e.channels)
	pad := packetsFor(e.frames)*frameSize - written
	e.pending = append(e.pending, make([]int16, pad*int64(e.channels))...)
	if err := e.drain(); err != nil {
		return err
	}
	if err := e.ogg.Close(); err != nil {
		return fmt.Errorf("close ogg stream: %w", err)
	}
	return nil
}

// Frames returns the number of sample frames accepted, excluding padding.
func (e *Encoder) Frames() int64 { return e.frames }

// Packets returns the number of Opus packets written.
func (e *Encoder) Packets() int64 { return e.packets }

func (e *Encoder) drain() error {
	packet := frameSize * e.channels
	consumed := 0
	for len(e.pending)-consumed >= packet {
		data, err := e.enc.Encode(e.pending[consumed:consumed+packet], frameSize, maxPacketBytes)
		if err != nil {
			return fmt.Errorf("opus encode: %w", err)
		}
		err = e.ogg.WriteRTP(&rtp.Packet{
			Header:  rtp.Header{Timestamp: e.timestamp},
			Payload: data,
		})
		if err != nil {
			return fmt.Errorf("write ogg page: %w", err)
		}
		e.timestamp += frameSize
		e.packets++
		consumed += packet
	}
	if consumed > 0 {
		e.pending = append(e.pending[:0], e.pending[consumed:]...)
	}
	return nil
}
