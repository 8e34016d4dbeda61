package api

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions callers branch on with errors.Is.
var (
	// ErrInvalidRequest means we built a bad URL or body. Should not
	// happen with correct code; treated as fatal when it does.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAuthenticationFailed covers 401/422 on the login endpoint.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrNoToken means an authenticated call was attempted without a
	// stored credential.
	ErrNoToken = errors.New("no authentication token available")
)

// ServerError is any non-2xx response outside the login-specific cases.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error (%d)", e.Status)
	}
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the backend, which means
// the stored token is no longer valid and the session must be torn down.
func IsUnauthorized(err error) bool {
	var se *ServerError
	return errors.As(err, &se) && se.Status == 401
}

// DecodeError wraps a response-shape mismatch.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// NetworkError wraps a transport failure or timeout.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
