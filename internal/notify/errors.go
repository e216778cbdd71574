package notify

import "errors"

var (
	// ErrNotConfigured is returned by senders that are missing credentials.
	ErrNotConfigured = errors.New("notify: email sender not configured")

	// ErrNoRecipient is returned when the operations inbox is not set.
	ErrNoRecipient = errors.New("notify: notification recipient not configured")
)
