package remote

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned when no credential is stored or the server
// rejected it.
var ErrUnauthenticated = errors.New("not authenticated")

// HTTPError is a non-2xx response other than 401.
type HTTPError struct {
	Status     int
	StatusText string
	// Message is the server-provided error text, if any.
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d %s: %s", e.Status, e.StatusText, e.Message)
	}
	return fmt.Sprintf("http %d %s", e.Status, e.StatusText)
}

// NetworkError is a transport failure, including calls refused by an open
// circuit breaker.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a network failure or a 5xx response,
// the failures that the next scheduled tick is expected to retry.
func IsTransient(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status >= 500
}

// Message returns the most user-facing text for err.
func Message(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		return httpErr.Message
	}
	return err.Error()
}
