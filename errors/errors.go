package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	ErrUserNotFound      = fmt.Errorf("user not found")
	ErrRoomNotFound      = fmt.Errorf("room not found")
	ErrUserAlreadyExists = fmt.Errorf("user already exists")

	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrUnauthorized       = fmt.Errorf("identity could not be resolved")

	ErrNotRoomMember = fmt.Errorf("sender is not a member of the room")

	// ErrSessionBufferFull reports a delivery dropped because the session's
	// outbound buffer was saturated. The fan-out keeps going; the drop is
	// counted, not retried.
	ErrSessionBufferFull = fmt.Errorf("session buffer full")

	// ErrPersistenceUnavailable marks a transient storage failure.
	// The caller may retry the same operation: nothing was committed.
	ErrPersistenceUnavailable = fmt.Errorf("persistence unavailable")
)

// MapToHTTPStatus translates domain errors to an HTTP status code.
// Transport handlers are the only callers; services stay protocol-agnostic.
func MapToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidPassword):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotRoomMember):
		return http.StatusForbidden
	case errors.Is(err, ErrPersistenceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
