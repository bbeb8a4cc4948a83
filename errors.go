package notifykit

import "errors"

var (
	// ErrEmptyUserID is returned when an operation names no target user.
	ErrEmptyUserID = errors.New("user ID is required")

	// ErrAlreadyRunning is returned when Start is called on a service
	// whose drain loop is already live.
	ErrAlreadyRunning = errors.New("delivery loop already running")

	// ErrMissingDependency is returned when New is called without one of
	// the required collaborators.
	ErrMissingDependency = errors.New("missing required dependency")
)
