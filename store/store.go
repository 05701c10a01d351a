package store

import (
	"context"
	"errors"

	"reprise/types"
)

// ErrNotFound is returned when no track exists for the given id
var ErrNotFound = errors.New("track not found")

// TrackStore is the record-store contract the rest of the system consumes.
// Implementations must make Update atomic with respect to concurrent
// readers and writers of the same track.
type TrackStore interface {
	// Create persists a new track and returns its assigned id.
	Create(ctx context.Context, track *types.Track) (int64, error)

	// Get returns a copy of the track, or ErrNotFound.
	Get(ctx context.Context, id int64) (*types.Track, error)

	// ListByOwner returns copies of all tracks owned by ownerID.
	ListByOwner(ctx context.Context, ownerID int64) ([]*types.Track, error)

	// Update applies mutate to the stored track atomically and returns the
	// updated copy. The mutation is discarded when mutate returns an error.
	Update(ctx context.Context, id int64, mutate func(*types.Track) error) (*types.Track, error)

	// DeleteByOwner removes every track owned by ownerID and returns the
	// removed records so callers can clean up referenced files.
	DeleteByOwner(ctx context.Context, ownerID int64) ([]*types.Track, error)
}
