package audio

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Format identifies a container/codec the decoders understand.
type Format int

const (
	FormatUnknown Format = iota
	FormatWAV
	FormatMP3
	FormatOpus
)

func (f Format) String() string {
	switch f {
	case FormatWAV:
		return "wav"
	case FormatMP3:
		return "mp3"
	case FormatOpus:
		return "opus"
	default:
		return "unknown"
	}
}

const sniffLen = 12

// DetectFormat identifies the format from the first bytes of a file.
func DetectFormat(header []byte) Format {
	switch {
	case len(header) >= 12 && bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")):
		return FormatWAV
	case len(header) >= 4 && bytes.Equal(header[0:4], []byte("OggS")):
		return FormatOpus
	case len(header) >= 3 && bytes.Equal(header[0:3], []byte("ID3")):
		return FormatMP3
	case len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		// MPEG audio frame sync.
		return FormatMP3
	default:
		return FormatUnknown
	}
}

// FormatFromPath guesses the format from the file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return FormatWAV
	case ".mp3":
		return FormatMP3
	case ".opus", ".ogg", ".oga":
		return FormatOpus
	default:
		return FormatUnknown
	}
}
