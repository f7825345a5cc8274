package portal

import (
	"errors"
	"fmt"
)

// ErrFormNotFound is returned when the login page has no <form>, the student
// should not be retried.
var ErrFormNotFound = errors.New("could not find login form")

// NetworkError is a failed request, either in transport or by an HTTP error status.
type NetworkError struct {
	// Step is the walk step that failed (ex. "submit-login").
	Step string
	Url  string
	// Status is the HTTP status of the response, or 0 if there was no response.
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("network error: %s: %s returned status %d", e.Step, e.Url, e.Status)
	}
	return fmt.Sprintf("network error: %s: %s: %v", e.Step, e.Url, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// FetchError is any other failure while walking the portal.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("error fetching results: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
