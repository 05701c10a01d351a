package types

import (
	"encoding/json"
	"time"
)

// TrackStatus represents the current lifecycle state of a track
type TrackStatus string

const (
	StatusUploaded   TrackStatus = "uploaded"
	StatusProcessing TrackStatus = "processing"
	StatusRegenerate TrackStatus = "regenerate"
	StatusCompleted  TrackStatus = "completed"
	StatusError      TrackStatus = "error"
)

// AudioMetadata represents metadata for an audio file, filled in
// asynchronously after upload. Every field is optional.
type AudioMetadata struct {
	Format   string   `json:"format,omitempty"`
	Bitrate  int      `json:"bitrate,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
	BPM      *float64 `json:"bpm,omitempty"`
	Key      string   `json:"key,omitempty"`
}

// ExtensionVersion is one successfully completed extension attempt.
// Duration is nil when metadata extraction failed for that version.
type ExtensionVersion struct {
	Path     string   `json:"path"`
	Duration *float64 `json:"duration"`
}

// Track represents one uploaded media file and its derived extended versions
type Track struct {
	ID               int64              `json:"id"`
	OwnerID          int64              `json:"ownerId"`
	OriginalFilename string             `json:"originalFilename"`
	OriginalPath     string             `json:"originalPath"`
	Metadata         *AudioMetadata     `json:"metadata,omitempty"`
	Status           TrackStatus        `json:"status"`
	Settings         *ExtensionSettings `json:"settings,omitempty"`
	Versions         []ExtensionVersion `json:"-"`
	VersionCount     int                `json:"versionCount"`
	CreatedAt        time.Time          `json:"createdAt"`
}

// ExtendedPaths returns the output file paths in version order.
func (t *Track) ExtendedPaths() []string {
	paths := make([]string, 0, len(t.Versions))
	for _, v := range t.Versions {
		paths = append(paths, v.Path)
	}
	return paths
}

// ExtendedDurations returns the per-version durations in version order,
// nil entries where extraction failed.
func (t *Track) ExtendedDurations() []*float64 {
	durations := make([]*float64, 0, len(t.Versions))
	for _, v := range t.Versions {
		durations = append(durations, v.Duration)
	}
	return durations
}

// Clone returns a deep copy so callers can hand tracks across goroutines
// without sharing the version slice.
func (t *Track) Clone() *Track {
	clone := *t
	if t.Metadata != nil {
		m := *t.Metadata
		clone.Metadata = &m
	}
	if t.Settings != nil {
		s := *t.Settings
		clone.Settings = &s
	}
	clone.Versions = make([]ExtensionVersion, len(t.Versions))
	copy(clone.Versions, t.Versions)
	return &clone
}

// MarshalJSON exposes the versions as the two parallel arrays clients expect
// while the single record sequence stays the source of truth internally.
func (t *Track) MarshalJSON() ([]byte, error) {
	type alias Track
	return json.Marshal(struct {
		*alias
		ExtendedPaths     []string   `json:"extendedPaths"`
		ExtendedDurations []*float64 `json:"extendedDurations"`
	}{
		alias:             (*alias)(t),
		ExtendedPaths:     t.ExtendedPaths(),
		ExtendedDurations: t.ExtendedDurations(),
	})
}
