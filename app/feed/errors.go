package feed

import (
	"fmt"
)

type FetchErrorKind string

const (
	FetchErrorTimeout   FetchErrorKind = "timeout"
	FetchErrorStatus    FetchErrorKind = "status"
	FetchErrorNetwork   FetchErrorKind = "network"
	FetchErrorMalformed FetchErrorKind = "malformed"
)

// SourceFetchError records why one feed endpoint produced no entries. It is
// never fatal to the batch.
type SourceFetchError struct {
	Source     string
	URL        string
	Kind       FetchErrorKind
	StatusCode int
	Err        error
}

func (e *SourceFetchError) Error() string {
	if e.Kind == FetchErrorStatus {
		return fmt.Sprintf("source %s: HTTP error: %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("source %s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *SourceFetchError) Unwrap() error {
	return e.Err
}
