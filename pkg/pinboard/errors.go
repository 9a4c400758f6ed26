package pinboard

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrMissingToken is returned when no auth token is configured.
	ErrMissingToken = errors.New("pinboard auth token is required")
)

// ErrorClass represents a classification of API failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx and other unexpected statuses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport and timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a response body that could not be decoded.
	ErrorClassDecode ErrorClass = "decode"
)

// APIError is a failed call against the Pinboard API.
type APIError struct {
	// Op is the API method, e.g. "posts/all".
	Op         string
	StatusCode int
	Class      ErrorClass
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pinboard %s %s error (status %d): %v",
			e.Op, e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("pinboard %s %s error: the server responded %d",
		e.Op, e.Class, e.StatusCode)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps a non-200 status to an error class.
func classifyStatus(status int) ErrorClass {
	if status >= 400 && status < 500 {
		return ErrorClassClient
	}
	return ErrorClassServer
}
