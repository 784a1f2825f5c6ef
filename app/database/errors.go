package database

import (
	"errors"
	"fmt"
)

// ErrNotRelevant is returned when an article without the AI-relevance flag
// is offered to the store.
var ErrNotRelevant = errors.New("article is not AI-relevant")

// StorageConflictError reports a malformed identity key. It is fatal for the
// single record only.
type StorageConflictError struct {
	URL    string
	Reason string
}

func (e *StorageConflictError) Error() string {
	return fmt.Sprintf("storage conflict for %q: %s", e.URL, e.Reason)
}
