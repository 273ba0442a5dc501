package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so handlers can map it to an HTTP status
// without string-matching messages.
type Kind int

const (
	Validation        Kind = iota + 1 // missing or malformed required fields
	NotFound                          // referenced entity does not exist
	InvalidState                      // operation not legal in the current lifecycle state
	NoDriversFound                    // driver search exhausted its deadline
	GeofenceViolation                 // proximity gate failed
	Store                             // underlying persistence failure
)

// Error carries a stable kind alongside a human-readable message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an error of the given kind.
func E(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Errorf builds an error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or 0 if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }

// HTTPStatus maps an error to the status code the API contract promises:
// 400 for caller-fixable failures, 404 for missing entities and exhausted
// searches, 500 for everything else.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation, InvalidState, GeofenceViolation:
		return http.StatusBadRequest
	case NotFound, NoDriversFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
