package registration

import (
	"errors"
	"strings"
)

var (
	ErrDuplicateEmail   = errors.New("email already in use")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrInvalidSelection = errors.New("invalid selection")
)

// ValidationError carries every problem found in a submission.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// Reason is the short failure label used in metrics and logs.
func Reason(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return "validation"
	case errors.Is(err, ErrDuplicateEmail):
		return "duplicate"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity"
	case errors.Is(err, ErrInvalidSelection):
		return "selection"
	default:
		return "persistence"
	}
}
