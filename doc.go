// Package retune estimates the tuning reference of a recording and renders
// a copy re-tuned to A4 = 440 Hz, in pure Go.
//
// # Analysis
//
// A window of the recording (by default 3 seconds starting a quarter of the
// way in) is cut into overlapping frames. Each frame's fundamental is found
// with the YIN estimator and expressed as its distance from the nearest
// semitone of the 440 Hz equal-tempered grid, in cents within (-50, +50].
// Silent frames and frames without a clear period are dropped. The median
// of the remaining deviations gives the tuning offset; its negation is the
// shift that corrects the recording. A recording tuned to 432 Hz therefore
// yields a CentsOffset of about +31.8.
//
// Reliability is the number of frames behind a result. A result with zero
// reliability is the NoPitch sentinel and is distinct from a measured
// offset of zero.
//
// # Correction
//
// Correction shifts the pitch of the whole file by a fixed number of cents
// without changing its duration: a WSOLA time stretch by 2^(cents/1200)
// followed by a polyphase resampler to the fixed output rate. Rendering is
// block by block with a bounded queue between the shifter and the encoder.
// The output format is constant regardless of the source:
//
//   - opus: Ogg Opus, 48 kHz stereo, 192 kbit/s (default)
//   - wav: 16-bit PCM, 44.1 kHz stereo
//
// The destination is written to a temporary file and renamed into place
// only when every block succeeded, so a failed or cancelled correction
// leaves nothing behind.
//
// # Quick Start
//
//	svc, err := retune.New(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := svc.Analyze(ctx, "take1.wav").Wait(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !svc.Trustworthy(res) {
//	    log.Fatal("no reliable pitch")
//	}
//
//	out, err := svc.Correct(ctx, "take1.wav", res, "take1-440.opus").Wait(ctx)
//
// Every call returns a [Future] that resolves exactly once. Analyses may run
// concurrently; a second correction targeting a destination that is still
// being written is rejected with [ErrDestinationBusy].
//
// # Input Formats
//
// WAV (PCM, 8 to 32 bit), MP3 and Ogg Opus are decoded. The container is
// detected from the file header, falling back to the extension.
package retune
