package pingback

import (
	"errors"
	"net/http"
)

const (
	// SuccessToken is the exact body the processor needs to stop retrying.
	SuccessToken = "OK"

	InvalidOrderMessage = "The order is Invalid!"
	RetryMessage        = "Temporary failure, please retry"
)

// Response is the plain-text acknowledgement written back to the processor.
type Response struct {
	Status  int
	Body    string
	Outcome Outcome
}

// Respond maps a reconciliation outcome or error to the wire acknowledgement.
func Respond(outcome Outcome, err error) Response {
	if err == nil {
		return Response{Status: http.StatusOK, Body: SuccessToken, Outcome: outcome}
	}

	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return Response{Status: http.StatusBadRequest, Body: verr.Summary()}
	case errors.Is(err, ErrOrderNotFound):
		return Response{Status: http.StatusNotFound, Body: InvalidOrderMessage}
	}
	return Response{Status: http.StatusInternalServerError, Body: RetryMessage}
}
