package jobs

import "errors"

var (
	// ErrUnknownJobType indicates no handler is registered for the job type.
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrHandlerRegistered indicates a handler is already registered for the type.
	ErrHandlerRegistered = errors.New("handler already registered")

	// ErrJobNotFound indicates the job id is not known to the runner.
	ErrJobNotFound = errors.New("job not found")

	// ErrRunnerClosed indicates the runner has been closed.
	ErrRunnerClosed = errors.New("job runner is closed")
)
