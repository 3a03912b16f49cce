package shift

// window is a growable FIFO of samples addressed by absolute stream
// position. Unlike a ring buffer it keeps the live region contiguous so
// segments can be sliced without copying.
type window struct {
	data []float64
	base int64 // absolute index of data[0]
}

func newWindow(capacity int) *window {
	if capacity < 1 {
		capacity = 1
	}
	return &window{data: make([]float64, 0, capacity)}
}

// Write appends samples at the end of the window.
func (w *window) Write(samples []float64) {
	w.data = append(w.data, samples...)
}

// WriteZeros appends n zero samples.
func (w *window) WriteZeros(n int) {
	for range n {
		w.data = append(w.data, 0)
	}
}

// End returns the absolute index one past the last buffered sample.
func (w *window) End() int64 {
	return w.base + int64(len(w.data))
}

// Base returns the absolute index of the oldest buffered sample.
func (w *window) Base() int64 {
	return w.base
}

// Slice returns the samples in [from, to). The range must be buffered.
// The result aliases the window and is valid until the next Write.
func (w *window) Slice(from, to int64) []float64 {
	return w.data[from-w.base : to-w.base]
}

// Discard drops every sample before the absolute index upTo.
func (w *window) Discard(upTo int64) {
	if upTo <= w.base {
		return
	}
	n := int(min(upTo-w.base, int64(len(w.data))))
	// Compact once the dead prefix dominates, so appends stay amortized O(1).
	if n >= len(w.data)/2 {
		copy(w.data, w.data[n:])
		w.data = w.data[:len(w.data)-n]
	} else {
		w.data = w.data[n:]
	}
	w.base += int64(n)
}
