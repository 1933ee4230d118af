package mqtt

import "errors"

var (
	// ErrNotRunning is returned when publishing through a stopped broker.
	ErrNotRunning = errors.New("mqtt: broker is not running")

	// ErrAlreadyRunning is returned by Start on a running broker.
	ErrAlreadyRunning = errors.New("mqtt: broker is already running")
)
