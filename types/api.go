package types

// ProcessAccepted is the acknowledgement returned when an extension job is accepted
type ProcessAccepted struct {
	TrackID int64       `json:"trackId"`
	Status  TrackStatus `json:"status"`
}

// StatusResponse is the read-only status projection for polling clients
type StatusResponse struct {
	Status TrackStatus `json:"status"`
}
