package seedr

import (
	"errors"
	"fmt"
)

// ErrUnauthorized means no credential is available or the remote rejected it.
var ErrUnauthorized = errors.New("seedr: unauthorized")

// ErrNotFound means the remote has no file or folder with the requested id.
var ErrNotFound = errors.New("seedr: not found")

// RemoteError is a non-2xx or malformed response from the wrapped API.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("seedr: remote error %d: %s", e.StatusCode, e.Body)
}

// TransientError wraps a failure that is eligible for bounded retry
// (network timeout or 5xx from the remote).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("seedr: transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is retry-eligible.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
