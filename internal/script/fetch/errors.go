package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrInsecureURL is returned before any request is attempted.
	ErrInsecureURL = errors.New("only HTTPS URLs are supported for security reasons")

	// ErrTimeout is returned when the request exceeds the configured timeout.
	ErrTimeout = errors.New("request timed out")

	// ErrTooLarge is returned for bodies over the configured size cap.
	ErrTooLarge = errors.New("script too large (>10MB)")
)

// ConnectError reports a failure to reach the remote host.
type ConnectError struct {
	URL string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to %s", e.URL)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// NetworkError reports a transport failure that is neither a timeout nor a
// connection failure.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx response.
type StatusError struct {
	Code   int
	Reason string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Reason)
}

// ContentTypeError rejects responses that are not script payloads.
type ContentTypeError struct {
	ContentType string
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("expected JavaScript, got content-type: %s", e.ContentType)
}
