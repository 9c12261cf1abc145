package client

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrEmptyResult = errors.New("query returned no result sets")

// ConfigurationError reports that the credentials needed to authenticate
// could not be loaded. No request is sent when it is returned.
type ConfigurationError struct {
	Cause error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("unable to load credentials: %s", e.Cause)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// RequestError reports a response the query service should not have sent:
// a non-success status, or a body that does not have the expected shape.
type RequestError struct {
	StatusCode int
	Body       string
	RequestID  string
	Reason     string
}

func (e *RequestError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("query service error (%d): %s: %s", e.StatusCode, reason, e.Body)
}

type EmptyResultError struct {
	Body string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("%s: %s", ErrEmptyResult, e.Body)
}

func (e *EmptyResultError) Is(target error) bool {
	return target == ErrEmptyResult
}
