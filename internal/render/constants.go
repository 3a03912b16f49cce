package render

const (
	// DefaultBlockSize is the number of source frames read per block.
	DefaultBlockSize = 4096
	// DefaultQueueDepth is the number of shifted blocks that may wait for
	// the encoder.
	DefaultQueueDepth = 2
)
