package pingback

import (
	"errors"
	"strings"
)

var (
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrUnauthorizedSource = errors.New("unauthorized source")
	ErrMissingParameter   = errors.New("missing parameter")
	ErrUnclassifiedEvent  = errors.New("unclassified event")
	ErrOrderNotFound      = errors.New("order not found")

	// ErrStoreMutation marks a failed write. The processor retries the notification.
	ErrStoreMutation = errors.New("store mutation failed")
)

// ValidationError is returned when a pingback is rejected before any store access.
type ValidationError struct {
	Kind     error
	Messages []string
}

func (e *ValidationError) Error() string {
	return e.Kind.Error() + ": " + e.Summary()
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// Summary is the text sent back to the processor.
func (e *ValidationError) Summary() string {
	return strings.Join(e.Messages, "\n")
}
