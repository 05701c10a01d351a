package handlers

import (
	"fmt"
	"net/http"

	"reprise/logger"
	"reprise/services"
	"reprise/store"
	"reprise/types"

	"github.com/gin-gonic/gin"
)

// TrackHandler handles track lifecycle endpoints
type TrackHandler struct {
	ingestor     *services.MediaIngestor
	orchestrator *services.ExtensionOrchestrator
	store        store.TrackStore
}

// NewTrackHandler creates a new track handler
func NewTrackHandler(ingestor *services.MediaIngestor, orchestrator *services.ExtensionOrchestrator, trackStore store.TrackStore) *TrackHandler {
	return &TrackHandler{
		ingestor:     ingestor,
		orchestrator: orchestrator,
		store:        trackStore,
	}
}

// Upload admits an uploaded media file from the multipart field "audio"
// and returns the created track
func (h *TrackHandler) Upload(c *gin.Context) {
	ownerID, ok := ownerFromRequest(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing audio file"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("failed to open uploaded file", logger.ErrorField(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}
	defer file.Close()

	track, err := h.ingestor.Ingest(
		c.Request.Context(),
		file,
		fileHeader.Size,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Filename,
		ownerID,
	)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, track)
}

// Get returns a single track by id
func (h *TrackHandler) Get(c *gin.Context) {
	trackID, ok := trackIDFromParam(c)
	if !ok {
		return
	}
	ownerID, ok := ownerFromRequest(c)
	if !ok {
		return
	}

	track, err := h.loadOwnedTrack(c, trackID, ownerID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, track)
}

// List returns all tracks for the owner
func (h *TrackHandler) List(c *gin.Context) {
	ownerID, ok := ownerFromRequest(c)
	if !ok {
		return
	}

	tracks, err := h.store.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		logger.Error("failed to list tracks", logger.ErrorField(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tracks"})
		return
	}

	c.JSON(http.StatusOK, tracks)
}

// Clear removes every track owned by the caller, along with all stored files
func (h *TrackHandler) Clear(c *gin.Context) {
	ownerID, ok := ownerFromRequest(c)
	if !ok {
		return
	}

	count, err := h.ingestor.Purge(c.Request.Context(), ownerID)
	if err != nil {
		logger.Error("failed to clear tracks", logger.ErrorField(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear tracks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "tracks cleared", "count": count})
}

// Process starts or regenerates an extension job. The response is sent as
// soon as the transition is persisted; completion is observed by polling
// the status endpoint. There is no cancellation: a client-side "cancel"
// has no effect on a job that is already running.
func (h *TrackHandler) Process(c *gin.Context) {
	trackID, ok := trackIDFromParam(c)
	if !ok {
		return
	}
	ownerID, ok := ownerFromRequest(c)
	if !ok {
		return
	}

	var settings types.ExtensionSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings body"})
		return
	}

	track, err := h.orchestrator.Start(c.Request.Context(), trackID, ownerID, settings)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, types.ProcessAccepted{
		TrackID: track.ID,
		Status:  track.Status,
	})
}

// Status is the read-only status projection polled by clients
func (h *TrackHandler) Status(c *gin.Context) {
	trackID, ok := trackIDFromParam(c)
	if !ok {
		return
	}
	ownerID, ok := ownerFromRequest(c)
	if !ok {
		return
	}

	track, err := h.loadOwnedTrack(c, trackID, ownerID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.StatusResponse{Status: track.Status})
}

func (h *TrackHandler) loadOwnedTrack(c *gin.Context, trackID, ownerID int64) (*types.Track, error) {
	track, err := h.store.Get(c.Request.Context(), trackID)
	if err != nil {
		return nil, err
	}
	if track.OwnerID != ownerID {
		return nil, fmt.Errorf("track %d not owned by caller: %w", trackID, store.ErrNotFound)
	}
	return track, nil
}
