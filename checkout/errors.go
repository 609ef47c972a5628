package checkout

import (
	"fmt"
	"net/http"

	"storefront-svc/models"
)

// Error is a rejected checkout. Status is the HTTP status to answer with and Message is
// safe to show the customer. Reason is set for the failures kept as FailedOrder rows.
type Error struct {
	Status  int
	Message string
	Reason  models.FailureReason
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func badRequest(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

func internal(message string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: message, Err: err}
}
