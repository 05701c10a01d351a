package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"reprise/services"
	"reprise/store"

	"github.com/gin-gonic/gin"
)

// defaultOwnerID is used when a request carries no X-Owner-ID header
const defaultOwnerID = 1

// ownerFromRequest resolves the owner identifier for a request. Every
// operation receives the owner explicitly; there is no process-wide
// current owner.
func ownerFromRequest(c *gin.Context) (int64, bool) {
	header := c.GetHeader("X-Owner-ID")
	if header == "" {
		return defaultOwnerID, true
	}

	ownerID, err := strconv.ParseInt(header, 10, 64)
	if err != nil || ownerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid X-Owner-ID header"})
		return 0, false
	}
	return ownerID, true
}

// trackIDFromParam parses the :id route parameter
func trackIDFromParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid track ID"})
		return 0, false
	}
	return id, true
}

// writeServiceError maps the service error taxonomy onto HTTP status
// codes. Security denials get a fixed message so resolved paths never
// reach the client.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrVersionLimit):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrSecurityDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "track not found"})
	case errors.Is(err, services.ErrDerivedPath):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not derive output path"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
