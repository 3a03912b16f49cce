package retune

import "errors"

var (
	// ErrInvalidConfig wraps every configuration problem.
	ErrInvalidConfig = errors.New("retune: invalid configuration")

	// ErrUnreadableSource is returned when the source cannot be opened or
	// decoded. Analyze still resolves with the NoPitch result.
	ErrUnreadableSource = errors.New("retune: unreadable source")

	// ErrDestinationBusy is returned by Correct when another correction is
	// already writing the same destination.
	ErrDestinationBusy = errors.New("retune: destination is busy")

	// ErrDestinationIsSource is returned by Correct when the destination
	// and the source are the same file.
	ErrDestinationIsSource = errors.New("retune: destination is the source")

	// ErrInternal is returned when an operation panicked.
	ErrInternal = errors.New("retune: internal error")

	// ErrPending is returned by Future.Result before the future resolves.
	ErrPending = errors.New("retune: result pending")
)
