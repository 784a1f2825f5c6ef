package paywall

import (
	"fmt"
	"strings"
)

// ServiceError records why one bypass service gave up on a URL
type ServiceError struct {
	Service  string
	Attempts int
	Err      error
}

func (e ServiceError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Service, e.Attempts, e.Err)
}

// BypassExhaustedError is returned when no bypass service produced usable
// content. It is a soft failure for the caller.
type BypassExhaustedError struct {
	URL      string
	Attempts []ServiceError
}

func (e *BypassExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("no bypass services available for %s", e.URL)
	}

	parts := make([]string, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		parts = append(parts, attempt.Error())
	}
	return fmt.Sprintf("all bypass services failed for %s: %s", e.URL, strings.Join(parts, "; "))
}
