package encode

import (
	"fmt"
	"strings"
)

// Format selects one of the fixed output encodings.
type Format int

const (
	// FormatOpus is Ogg Opus, 48 kHz stereo at 192 kbps.
	FormatOpus Format = iota
	// FormatWAV is 16-bit PCM WAV, 44.1 kHz stereo.
	FormatWAV
)

// Layout describes the fixed sample layout of a Format.
type Layout struct {
	SampleRate int
	Channels   int
}

func (f Format) String() string {
	switch f {
	case FormatOpus:
		return "opus"
	case FormatWAV:
		return "wav"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Layout returns the sample rate and channel count every file of this
// format is written with.
func (f Format) Layout() Layout {
	if f == FormatWAV {
		return Layout{SampleRate: WAVSampleRate, Channels: WAVChannels}
	}
	return Layout{SampleRate: OpusSampleRate, Channels: OpusChannels}
}

// Extension returns the conventional file extension, including the dot.
func (f Format) Extension() string {
	if f == FormatWAV {
		return ".wav"
	}
	return ".opus"
}

// ParseFormat maps a config name to a Format. The empty string selects
// FormatOpus.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "opus", "ogg":
		return FormatOpus, nil
	case "wav":
		return FormatWAV, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}
