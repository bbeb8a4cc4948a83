package preferences

import "errors"

var (
	// ErrInvalidQuietHours is returned when a quiet hours window cannot be
	// interpreted (bad clock value or unknown timezone).
	ErrInvalidQuietHours = errors.New("invalid quiet hours window")

	// ErrInvalidDigestFrequency is returned for frequencies outside the
	// closed enumeration.
	ErrInvalidDigestFrequency = errors.New("invalid digest frequency")

	// ErrEmptyUserID is returned when preferences are stored without an owner.
	ErrEmptyUserID = errors.New("user ID is required")
)
