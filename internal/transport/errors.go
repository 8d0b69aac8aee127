package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a network-level failure: the request never produced a response.
// These are the only failures callers should treat as transient.
type Error struct {
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusError is a response with a non-success status code.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.StatusCode == http.StatusNotFound {
		return "404 Not Found"
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// IsNotFound reports whether the status is 404.
func (e *StatusError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// CheckStatus returns a *StatusError when resp is not 2xx.
func CheckStatus(resp *Response) error {
	if resp.IsSuccess() {
		return nil
	}
	body := string(resp.Body)
	if len(body) > 512 {
		body = body[:512]
	}
	return &StatusError{StatusCode: resp.StatusCode, Body: body}
}

// IsTransient reports whether err is a network-level failure.
func IsTransient(err error) bool {
	var te *Error
	return errors.As(err, &te)
}

// IsNotFound reports whether err is a 404 status error.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.IsNotFound()
}
