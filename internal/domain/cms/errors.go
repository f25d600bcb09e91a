package cms

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable matches transport failures and timeouts talking to the CMS
	ErrUnavailable = errors.New("cms: unavailable")
	// ErrRequestFailed matches non-2xx responses and error payloads
	ErrRequestFailed = errors.New("cms: request failed")
	// ErrNotFoundLocal is a soft failure: a prerequisite entry is missing in the CMS.
	// Callers log it and treat the operation as skipped.
	ErrNotFoundLocal = errors.New("cms: prerequisite entry not found")
	// ErrConfiguration matches ConfigurationError
	ErrConfiguration = errors.New("cms: invalid configuration")
)

// ConfigurationError reports missing or invalid CMS settings. It is fatal at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("cms configuration: %s is required", e.Field)
	}
	return fmt.Sprintf("cms configuration: %s %s", e.Field, e.Reason)
}

// Is matches ErrConfiguration
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// UnavailableError wraps a network failure or timeout
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("cms unavailable during %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Is matches ErrUnavailable
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// RequestError is returned when the CMS answers with a non-success status or an error payload
type RequestError struct {
	Collection string
	Operation  string
	HTTPStatus int
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("cms %s %s failed (HTTP %d): %s", e.Operation, e.Collection, e.HTTPStatus, e.Message)
}

// Is matches ErrRequestFailed
func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}
