package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapsKnownKinds(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindInvalidInput, http.StatusBadRequest},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindUnavailable, http.StatusServiceUnavailable},
		{KindUnknown, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(E(tc.kind, "boom")); got != tc.want {
			t.Fatalf("kind %s: expected %d, got %d", tc.kind, tc.want, got)
		}
	}
}

func TestHTTPStatusNilError(t *testing.T) {
	if got := HTTPStatus(nil); got != http.StatusOK {
		t.Fatalf("expected 200 for nil error, got %d", got)
	}
}

func TestHTTPStatusUntypedError(t *testing.T) {
	if got := HTTPStatus(stderrors.New("plain")); got != http.StatusInternalServerError {
		t.Fatalf("expected 500 for untyped error, got %d", got)
	}
}

func TestHTTPStatusThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", E(KindNotFound, "missing"))
	if got := HTTPStatus(wrapped); got != http.StatusNotFound {
		t.Fatalf("expected 404 through wrapping, got %d", got)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("root")
	err := Wrap(KindUnavailable, "store down", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to match errors.Is")
	}
	if KindOf(err) != KindUnavailable {
		t.Fatalf("expected kind unavailable, got %s", KindOf(err))
	}
}
