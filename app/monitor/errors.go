package monitor

import (
	"errors"

	"github.com/lysyi3m/media-monitor/app/config"
	"github.com/lysyi3m/media-monitor/app/database"
	"github.com/lysyi3m/media-monitor/app/feed"
	"github.com/lysyi3m/media-monitor/app/paywall"
)

// ErrInvalidConfig is returned for structurally invalid configuration
var ErrInvalidConfig = config.ErrInvalidConfig

// ErrInvalidArgument is returned for malformed operation parameters
var ErrInvalidArgument = errors.New("invalid argument")

type ErrorKind string

const (
	KindSourceFetch     ErrorKind = "source_fetch"
	KindStorageConflict ErrorKind = "storage_conflict"
	KindBypassExhausted ErrorKind = "bypass_exhausted"
	KindStorage         ErrorKind = "storage"
)

// ItemError is a per-item failure collected next to partial results
type ItemError struct {
	Kind    ErrorKind `json:"kind"`
	Item    string    `json:"item"`
	Message string    `json:"message"`
}

func itemError(item string, err error) ItemError {
	var (
		fetchErr     *feed.SourceFetchError
		conflictErr  *database.StorageConflictError
		exhaustedErr *paywall.BypassExhaustedError
	)

	kind := KindStorage
	switch {
	case errors.As(err, &fetchErr):
		kind = KindSourceFetch
	case errors.As(err, &conflictErr):
		kind = KindStorageConflict
	case errors.As(err, &exhaustedErr):
		kind = KindBypassExhausted
	}

	return ItemError{Kind: kind, Item: item, Message: err.Error()}
}
