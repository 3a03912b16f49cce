package encode

// Fixed output layouts.
const (
	OpusSampleRate = 48000
	OpusChannels   = 2
	OpusBitrate    = 192000

	// Opus bitrate limits in bits per second.
	MinOpusBitrate = 6000
	MaxOpusBitrate = 510000

	WAVSampleRate = 44100
	WAVChannels   = 2
	WAVBitDepth   = 16
)

const (
	wavFormatPCM = 1

	maxInt16 = 32767.0

	// outputPerm is applied to the temp file before it is renamed into place.
	outputPerm = 0o644
)
