package generation

import "errors"

// Common errors returned by enhancement and production implementations
var (
	// ErrProductionFailed is returned when the backend fails to produce an artifact.
	ErrProductionFailed = errors.New("failed to produce artifact")

	// ErrInvalidResponse is returned when a backend response cannot be parsed or is malformed.
	ErrInvalidResponse = errors.New("invalid response from backend")

	// ErrContentBlocked is returned when the backend blocks the content via safety filters.
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry.
	ErrTransientFailure = errors.New("transient backend error")

	// ErrInvalidConfig is returned when a collaborator's configuration is invalid.
	ErrInvalidConfig = errors.New("invalid generation configuration")
)
