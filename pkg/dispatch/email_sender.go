package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// EmailConfig holds Postmark credentials and sender identity.
// Both tokens are required; a half-configured email channel fails at
// construction rather than on the first send.
type EmailConfig struct {
	PostmarkServerToken  string `env:"NOTIFY_POSTMARK_SERVER_TOKEN,required"`
	PostmarkAccountToken string `env:"NOTIFY_POSTMARK_ACCOUNT_TOKEN,required"`
	SenderEmail          string `env:"NOTIFY_SENDER_EMAIL,required"`
}

// ErrInvalidEmailConfig is returned when the Postmark sender is constructed
// with missing credentials.
var ErrInvalidEmailConfig = errors.New("invalid email sender config")

// RecipientFunc resolves a user id to a deliverable email address.
// Returning an empty address means the user has no email on file; the
// delivery fails terminally.
type RecipientFunc func(ctx context.Context, userID string) (string, error)

// EmailSender delivers notifications through Postmark's transactional API.
type EmailSender struct {
	client    *postmark.Client
	from      string
	recipient RecipientFunc
}

// NewEmailSender creates a Postmark-backed email sender.
func NewEmailSender(cfg EmailConfig, recipient RecipientFunc) (*EmailSender, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidEmailConfig)
	}
	if cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: PostmarkAccountToken is required", ErrInvalidEmailConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: SenderEmail is required", ErrInvalidEmailConfig)
	}
	if recipient == nil {
		return nil, fmt.Errorf("%w: recipient resolver is required", ErrInvalidEmailConfig)
	}

	return &EmailSender{
		client:    postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		from:      cfg.SenderEmail,
		recipient: recipient,
	}, nil
}

// Postmark error codes that indicate the recipient itself is bad. Retrying
// these wastes the delivery budget.
const (
	postmarkErrInvalidEmailRequest = 300
	postmarkErrInactiveRecipient   = 406
)

// Send resolves the recipient address and submits the email. Provider
// errors are classified: bad-recipient codes are terminal, everything else
// (rate limits, outages) is retryable.
func (s *EmailSender) Send(ctx context.Context, d Delivery) error {
	to, err := s.recipient(ctx, d.UserID)
	if err != nil {
		return Retryable(fmt.Errorf("resolve recipient for user %s: %w", d.UserID, err))
	}
	if to == "" {
		return Terminal(fmt.Errorf("%w: user %s has no email address", ErrInvalidRecipient, d.UserID))
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     s.from,
		To:       to,
		Subject:  d.Title,
		TextBody: d.Body,
		Tag:      d.NotificationID,
	})
	if err != nil {
		return Retryable(fmt.Errorf("%w: %w", ErrProviderUnavailable, err))
	}
	if resp.ErrorCode > 0 {
		cause := fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message)
		switch resp.ErrorCode {
		case postmarkErrInvalidEmailRequest, postmarkErrInactiveRecipient:
			return Terminal(errors.Join(ErrInvalidRecipient, cause))
		default:
			return Retryable(errors.Join(ErrProviderUnavailable, cause))
		}
	}
	return nil
}
