package store

import "errors"

// Common errors returned by stores
var (
	// ErrJobNotFound indicates the requested job does not exist in the store.
	ErrJobNotFound = errors.New("job not found")

	// ErrCharacterNotFound indicates the requested character profile does not exist.
	ErrCharacterNotFound = errors.New("character not found")

	// ErrInvalidTransition indicates an attempt to move a job along an edge
	// the state machine does not allow (e.g. mutating a terminal record).
	ErrInvalidTransition = errors.New("invalid job status transition")
)
