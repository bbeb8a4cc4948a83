package notification

import "errors"

var (
	// ErrNotFound is returned when a notification is not found.
	ErrNotFound = errors.New("notification not found")

	// ErrTypeNotFound is returned when a notification type id is not
	// present in the registry catalog.
	ErrTypeNotFound = errors.New("notification type not found")

	// ErrDuplicateTypeID is returned when a catalog defines the same
	// notification type id more than once.
	ErrDuplicateTypeID = errors.New("duplicate notification type id")

	// ErrInvalidChannel is returned for channels outside the closed enumeration.
	ErrInvalidChannel = errors.New("invalid channel")

	// ErrInvalidCategory is returned for categories outside the closed enumeration.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrInvalidPriority is returned for priorities outside the known range.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrInvalidType is returned when a notification type fails catalog validation.
	ErrInvalidType = errors.New("invalid notification type")
)
