package transfer

import "errors"

var (
	// ErrInvalidRequest is returned when a request fails structural validation.
	ErrInvalidRequest = errors.New("invalid transfer request")

	// ErrUnknownStation is returned when a request names a station that is not registered.
	ErrUnknownStation = errors.New("unknown station")

	// ErrSizeOutOfRange is returned when the payload size is outside [1 B, 100 GiB].
	ErrSizeOutOfRange = errors.New("payload size out of range")

	// ErrUnhealthyStation is returned when the source or destination fails the health gate.
	ErrUnhealthyStation = errors.New("unhealthy station")

	// ErrDuplicateID is returned when a request id is already tracked.
	ErrDuplicateID = errors.New("transfer id already exists")

	// ErrLinkDropped is returned by the simulated link when a step is lost.
	ErrLinkDropped = errors.New("link dropped step")

	// ErrFrameMismatch is returned when a frame does not survive a seal/open round trip.
	ErrFrameMismatch = errors.New("frame integrity check failed")
)

// Messages recorded on transfers failed from outside the executor.
const (
	StoppedByUserMessage = "transfer stopped by user"
	ShutdownMessage      = "manager shutting down"
)
