package crm

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when no Kit API key is available.
	ErrNotConfigured = errors.New("crm: kit api key not configured")

	// ErrEmailRequired is returned when a subscriber has no email address.
	ErrEmailRequired = errors.New("crm: email address required")
)

// APIError is a non-2xx response from the Kit API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crm: kit returned status %d: %s", e.StatusCode, e.Body)
}

// IsUnprocessable reports whether err is Kit's 422, which it uses for
// duplicates when creating tags and custom fields.
func IsUnprocessable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 422
}
