package blog

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a request-aborting failure carrying the HTTP status it maps to.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

// Is matches any *Error with the same status, so errors.Is(err, ErrNotFound) holds for
// every not-found error regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Status == e.Status
}

var (
	ErrNotFound  = &Error{Status: http.StatusNotFound}
	ErrForbidden = &Error{Status: http.StatusForbidden}
)

func notFound(id int64) *Error {
	return &Error{Status: http.StatusNotFound, Message: fmt.Sprintf("Post id %d doesn't exist.", id)}
}

// ValidationError is handled inside the handler: the form is shown again with Notice.
type ValidationError struct {
	Notice string
}

func (e *ValidationError) Error() string { return e.Notice }

var ErrTitleRequired = &ValidationError{Notice: "Title is required."}

// StatusCode maps an error returned by the service to an HTTP status.
func StatusCode(err error) int {
	var be *Error
	if errors.As(err, &be) {
		return be.Status
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return http.StatusOK
	}
	return http.StatusInternalServerError
}
