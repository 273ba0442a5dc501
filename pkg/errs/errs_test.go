package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	t.Parallel()
	err := E(NotFound, "bookings/b1 not found")
	if got := KindOf(err); got != NotFound {
		t.Errorf("KindOf: got %v, want NotFound", got)
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Error("KindOf(plain error): want 0")
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	t.Parallel()
	inner := E(GeofenceViolation, "too far")
	outer := fmt.Errorf("confirm payment: %w", inner)
	if !Is(outer, GeofenceViolation) {
		t.Error("kind lost through fmt.Errorf wrapping")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	t.Parallel()
	cause := errors.New("connection refused")
	err := Wrap(Store, "get document", cause)
	if !errors.Is(err, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
	if got, want := err.Error(), "get document: connection refused"; got != want {
		t.Errorf("Error(): got %q, want %q", got, want)
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()
	cases := []struct {
		err  error
		want int
	}{
		{E(Validation, "missing field"), http.StatusBadRequest},
		{E(InvalidState, "not confirmed"), http.StatusBadRequest},
		{E(GeofenceViolation, "too far"), http.StatusBadRequest},
		{E(NotFound, "absent"), http.StatusNotFound},
		{E(NoDriversFound, "timed out"), http.StatusNotFound},
		{E(Store, "db down"), http.StatusInternalServerError},
		{errors.New("untyped"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.err); got != c.want {
			t.Errorf("HTTPStatus(%v): got %d, want %d", c.err, got, c.want)
		}
	}
}
