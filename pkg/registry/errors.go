package registry

import "errors"

var (
	// ErrNoStations is returned when a configuration declares no stations.
	ErrNoStations = errors.New("no stations configured")

	// ErrInvalidStation is returned when a station record fails validation.
	ErrInvalidStation = errors.New("invalid station")

	// ErrDuplicateStation is returned when two stations share an id.
	ErrDuplicateStation = errors.New("duplicate station id")

	// ErrUnknownHub is returned when the hub id does not name a configured station.
	ErrUnknownHub = errors.New("hub is not a configured station")
)
