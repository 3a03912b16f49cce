package encode

// clamp limits a sample to [-1, 1].
func clamp(sample float64) float64 {
	if sample > 1.0 {
		return 1.0
	}
	if sample < -1.0 {
		return -1.0
	}
	return sample
}

// InterleaveInt16 clamps and interleaves a planar block into dst as 16-bit
// PCM, growing dst when needed. It returns the filled slice.
func InterleaveInt16(block [][]float64, dst []int16) []int16 {
	channels := len(block)
	if channels == 0 || len(block[0]) == 0 {
		return dst[:0]
	}
	frames := len(block[0])
	total := frames * channels
	if cap(dst) < total {
		dst = make([]int16, total)
	}
	dst = dst[:total]

	// Fast path for stereo
	if channels == 2 {
		left, right := block[0], block[1]
		for i := range frames {
			dst[2*i] = int16(clamp(left[i]) * maxInt16)
			dst[2*i+1] = int16(clamp(right[i]) * maxInt16)
		}
		return dst
	}

	for i := range frames {
		base := i * channels
		for ch := range channels {
			dst[base+ch] = int16(clamp(block[ch][i]) * maxInt16)
		}
	}
	return dst
}

// interleaveInt is InterleaveInt16 widened to int, the sample type of
// go-audio buffers.
func interleaveInt(block [][]float64, dst []int) []int {
	channels := len(block)
	if channels == 0 || len(block[0]) == 0 {
		return dst[:0]
	}
	frames := len(block[0])
	total := frames * channels
	if cap(dst) < total {
		dst = make([]int, total)
	}
	dst = dst[:total]

	for i := range frames {
		base := i * channels
		for ch := range channels {
			dst[base+ch] = int(clamp(block[ch][i]) * maxInt16)
		}
	}
	return dst
}
