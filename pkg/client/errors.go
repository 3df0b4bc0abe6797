package client

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned before any request is made.
	ErrValidation = errors.New("validation failed")

	// ErrNetwork covers failures to reach the backend or read its response.
	ErrNetwork = errors.New("network failure")

	// ErrServer is returned for non-2xx responses; the concrete error is a
	// *StatusError.
	ErrServer = errors.New("server error")

	// ErrDecode means the backend answered but the body was not understood.
	ErrDecode = errors.New("malformed response")
)

type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrServer
}

func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

func IsServer(err error) bool {
	return errors.Is(err, ErrServer)
}

func IsDecode(err error) bool {
	return errors.Is(err, ErrDecode)
}
