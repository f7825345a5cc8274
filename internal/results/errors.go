package results

import "errors"

// ErrNoResultsFound matches every *NoResultsError with errors.Is.
var ErrNoResultsFound = errors.New("results not found")

// NoResultsError is returned when a page has no results table, this usually
// means the login was rejected or no results have been published yet.
type NoResultsError struct {
	// Reason is the portal's error banner text, or empty if there was none.
	Reason string
}

func (e *NoResultsError) Error() string {
	if e.Reason == "" {
		return "results not found, please check the credentials"
	}
	return "results not found: " + e.Reason
}

func (e *NoResultsError) Is(target error) bool {
	return target == ErrNoResultsFound
}
