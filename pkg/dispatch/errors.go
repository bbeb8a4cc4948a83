package dispatch

import "errors"

var (
	// ErrNoSender is returned when no sender is registered for the
	// delivery channel. Terminal: retrying cannot make a sender appear.
	ErrNoSender = errors.New("no sender registered for channel")

	// ErrInvalidRecipient is returned when the provider rejects the
	// address itself (malformed email, unknown device token). Terminal.
	ErrInvalidRecipient = errors.New("invalid recipient")

	// ErrPermissionRevoked is returned when the user withdrew consent for
	// the channel (push permission revoked, unsubscribed). Terminal.
	ErrPermissionRevoked = errors.New("delivery permission revoked")

	// ErrProviderUnavailable is returned for transient provider outages.
	// Retryable.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// SendError wraps a delivery failure with its retry classification.
type SendError struct {
	Err       error
	Retryable bool
}

func (e *SendError) Error() string {
	return e.Err.Error()
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Retryable marks err as worth another attempt after a backoff.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &SendError{Err: err, Retryable: true}
}

// Terminal marks err as permanent: further attempts would fail the same way.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &SendError{Err: err, Retryable: false}
}

// IsTerminal reports whether err should stop the retry cycle. Errors that
// carry no classification default to retryable, so only an explicit
// Terminal wrap or a known-permanent sentinel short-circuits.
func IsTerminal(err error) bool {
	var se *SendError
	if errors.As(err, &se) {
		return !se.Retryable
	}
	return errors.Is(err, ErrNoSender) ||
		errors.Is(err, ErrInvalidRecipient) ||
		errors.Is(err, ErrPermissionRevoked)
}
