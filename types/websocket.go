package types

import "time"

// StatusMessage is broadcast to WebSocket clients whenever a track
// transitions between lifecycle states.
type StatusMessage struct {
	TrackID   int64       `json:"trackId"`
	Status    TrackStatus `json:"status"`
	Version   int         `json:"version,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
