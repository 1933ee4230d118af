package session

import "errors"

var (
	// ErrInvalidMessage is returned by ParseAction for payloads that are not
	// a JSON object or carry fields of the wrong type.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrClosed is returned when a closed session is asked to do work.
	ErrClosed = errors.New("session closed")
)
