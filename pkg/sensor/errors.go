package sensor

import "errors"

var (
	// ErrNotFound is returned when a sensor name is not in the registry.
	ErrNotFound = errors.New("sensor not found")
)
