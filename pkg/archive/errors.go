package archive

import "errors"

var (
	// ErrTransferNotFound is returned when no archived transfer has the requested id.
	ErrTransferNotFound = errors.New("archived transfer not found")

	// ErrNotTerminal is returned when asked to archive a transfer that is still active.
	ErrNotTerminal = errors.New("transfer is not in a terminal status")

	// ErrDatabaseError is returned when a database operation fails.
	ErrDatabaseError = errors.New("database error")
)
