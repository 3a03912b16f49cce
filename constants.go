package retune

// Service defaults.
const (
	// DefaultMinReliability is the number of accepted analysis frames a
	// result needs before it is trusted.
	DefaultMinReliability = 3

	// DefaultMaxConcurrent bounds operations in flight per Service.
	DefaultMaxConcurrent = 2
)
