package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"reprise/types"
)

// memoryStore is the in-process reference TrackStore
type memoryStore struct {
	mu     sync.RWMutex
	tracks map[int64]*types.Track
	nextID int64
}

// NewMemoryStore creates an in-memory track store
func NewMemoryStore() TrackStore {
	return &memoryStore{
		tracks: make(map[int64]*types.Track),
		nextID: 1,
	}
}

func (s *memoryStore) Create(ctx context.Context, track *types.Track) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	track.ID = s.nextID
	s.nextID++
	if track.CreatedAt.IsZero() {
		track.CreatedAt = time.Now()
	}

	s.tracks[track.ID] = track.Clone()
	return track.ID, nil
}

func (s *memoryStore) Get(ctx context.Context, id int64) (*types.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	track, ok := s.tracks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return track.Clone(), nil
}

func (s *memoryStore) ListByOwner(ctx context.Context, ownerID int64) ([]*types.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tracks := make([]*types.Track, 0)
	for _, track := range s.tracks {
		if track.OwnerID == ownerID {
			tracks = append(tracks, track.Clone())
		}
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].ID < tracks[j].ID })
	return tracks, nil
}

func (s *memoryStore) Update(ctx context.Context, id int64, mutate func(*types.Track) error) (*types.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	track, ok := s.tracks[id]
	if !ok {
		return nil, ErrNotFound
	}

	// Mutate a copy so a failed mutation leaves the stored record untouched.
	updated := track.Clone()
	if err := mutate(updated); err != nil {
		return nil, err
	}

	s.tracks[id] = updated
	return updated.Clone(), nil
}

func (s *memoryStore) DeleteByOwner(ctx context.Context, ownerID int64) ([]*types.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make([]*types.Track, 0)
	for id, track := range s.tracks {
		if track.OwnerID == ownerID {
			removed = append(removed, track)
			delete(s.tracks, id)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].ID < removed[j].ID })
	return removed, nil
}
