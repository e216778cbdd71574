package leads

import (
	"errors"
	"strings"
)

// ErrUnexpected marks failures outside the guarded side effects. Callers
// answer with a generic 500 and no lead id.
var ErrUnexpected = errors.New("leads: unexpected pipeline failure")

var errTrailingData = errors.New("leads: trailing data after JSON body")

// FieldError is one violated constraint, named by its JSON key.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every violated constraint of a submission.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "leads: invalid submission: " + strings.Join(parts, "; ")
}

// IsValidation reports whether err carries field errors.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
