package encode

// Remix maps a planar block onto a fixed channel count. Mono is duplicated
// into every output channel; surplus channels are dropped, keeping the
// leading ones (front left/right for common layouts). Channels are shared
// with the input, not copied.
func Remix(block [][]float64, channels int) [][]float64 {
	if len(block) == channels || len(block) == 0 {
		return block
	}
	out := make([][]float64, channels)
	if len(block) == 1 {
		for ch := range out {
			out[ch] = block[0]
		}
		return out
	}
	for ch := range out {
		if ch < len(block) {
			out[ch] = block[ch]
		} else {
			out[ch] = block[len(block)-1]
		}
	}
	return out
}
