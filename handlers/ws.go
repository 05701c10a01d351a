package handlers

import (
	"net/http"
	"strconv"

	"reprise/logger"
	"reprise/store"
	"reprise/websocket"

	"github.com/gin-gonic/gin"
)

// StatusFeedHandler upgrades clients onto the status broadcast hub
type StatusFeedHandler struct {
	hub   websocket.Hub
	store store.TrackStore
}

// NewStatusFeedHandler creates a new status feed handler
func NewStatusFeedHandler(hub websocket.Hub, trackStore store.TrackStore) *StatusFeedHandler {
	return &StatusFeedHandler{
		hub:   hub,
		store: trackStore,
	}
}

// SubscribeTrack streams status transitions for one track
func (h *StatusFeedHandler) SubscribeTrack(c *gin.Context) {
	trackID, ok := trackIDFromParam(c)
	if !ok {
		return
	}

	if _, err := h.store.Get(c.Request.Context(), trackID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "track not found"})
		return
	}

	h.upgrade(c, strconv.FormatInt(trackID, 10))
}

// SubscribeAll streams status transitions for every track
func (h *StatusFeedHandler) SubscribeAll(c *gin.Context) {
	h.upgrade(c, websocket.TopicAll)
}

func (h *StatusFeedHandler) upgrade(c *gin.Context, topic string) {
	upgrader := websocket.GetUpgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	client := websocket.NewClient(h.hub, conn, topic)
	h.hub.RegisterClient(client)
	client.StartPumps()
}
