package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"reprise/logger"
	"reprise/security"
	"reprise/store"
	"reprise/types"

	"github.com/gin-gonic/gin"
)

// Media kinds addressable through the streaming endpoint
const (
	KindOriginal = "original"
	KindExtended = "extended"
)

// streamableExtensions is the extension allow-list for serving media
var streamableExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".aiff": true,
}

// MediaHandler serves original and extended media with byte-range support
// and guarded file access
type MediaHandler struct {
	store       store.TrackStore
	uploadsRoot string
	resultsRoot string
}

// NewMediaHandler creates a new media handler. Roots must already be
// canonicalized.
func NewMediaHandler(trackStore store.TrackStore, uploadsRoot, resultsRoot string) *MediaHandler {
	return &MediaHandler{
		store:       trackStore,
		uploadsRoot: uploadsRoot,
		resultsRoot: resultsRoot,
	}
}

// Stream serves a track's media, honoring a single-range Range header
func (h *MediaHandler) Stream(c *gin.Context) {
	path, _, ok := h.resolveMedia(c, c.Param("kind"))
	if !ok {
		return
	}

	file, fileInfo, ok := h.openGuarded(c, path)
	if !ok {
		return
	}
	defer file.Close()

	c.Header("Content-Type", contentTypeFor(path))
	c.Header("Accept-Ranges", "bytes")

	rangeHeader := c.GetHeader("Range")
	if rangeHeader != "" {
		h.serveRange(c, file, fileInfo.Size(), rangeHeader)
		return
	}

	c.Header("Content-Length", strconv.FormatInt(fileInfo.Size(), 10))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		logger.Warn("error streaming file", logger.ErrorField(err))
	}
}

// Download serves an extended version as a full-file attachment. No
// partial-content support here.
func (h *MediaHandler) Download(c *gin.Context) {
	path, track, ok := h.resolveMedia(c, KindExtended)
	if !ok {
		return
	}

	file, fileInfo, ok := h.openGuarded(c, path)
	if !ok {
		return
	}
	defer file.Close()

	version, _ := strconv.Atoi(c.DefaultQuery("version", "0"))
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(track.OriginalFilename), filepath.Ext(track.OriginalFilename))
	attachment := fmt.Sprintf("%s_extended_v%d%s", base, version+1, ext)

	c.Header("Content-Type", contentTypeFor(path))
	c.Header("Content-Length", strconv.FormatInt(fileInfo.Size(), 10))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		logger.Warn("error sending download", logger.ErrorField(err))
	}
}

// resolveMedia loads the track and maps (kind, version) onto a stored
// path, applying the extension allow-list
func (h *MediaHandler) resolveMedia(c *gin.Context, kind string) (string, *types.Track, bool) {
	trackID, ok := trackIDFromParam(c)
	if !ok {
		return "", nil, false
	}
	ownerID, ok := ownerFromRequest(c)
	if !ok {
		return "", nil, false
	}

	track, err := h.store.Get(c.Request.Context(), trackID)
	if err != nil || track.OwnerID != ownerID {
		c.JSON(http.StatusNotFound, gin.H{"error": "track not found"})
		return "", nil, false
	}

	var path string
	switch kind {
	case KindOriginal:
		path = track.OriginalPath
	case KindExtended:
		version, err := strconv.Atoi(c.DefaultQuery("version", "0"))
		if err != nil || version < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version"})
			return "", nil, false
		}
		if version >= len(track.Versions) {
			c.JSON(http.StatusNotFound, gin.H{"error": "version not found"})
			return "", nil, false
		}
		path = track.Versions[version].Path
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "media kind must be original or extended"})
		return "", nil, false
	}

	if !streamableExtensions[strings.ToLower(filepath.Ext(path))] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file extension not allowed"})
		return "", nil, false
	}

	return path, track, true
}

// openGuarded validates the resolved path against both managed roots and
// opens it. Ownership of the path by a track record is never assumed to
// imply it is safe.
func (h *MediaHandler) openGuarded(c *gin.Context, path string) (*os.File, os.FileInfo, bool) {
	if !security.ValidatePath(path, h.uploadsRoot) && !security.ValidatePath(path, h.resultsRoot) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return nil, nil, false
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return nil, nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "file access error"})
		return nil, nil, false
	}
	if fileInfo.IsDir() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is a directory"})
		return nil, nil, false
	}

	file, err := os.Open(path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
		return nil, nil, false
	}
	return file, fileInfo, true
}

// serveRange serves a single byte range. Malformed syntax is a client
// error; a well-formed range beyond the file is unsatisfiable.
func (h *MediaHandler) serveRange(c *gin.Context, file *os.File, fileSize int64, rangeHeader string) {
	start, end, err := parseRange(rangeHeader, fileSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed Range header"})
		return
	}
	if start >= fileSize {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", fileSize))
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}
	if end >= fileSize {
		end = fileSize - 1
	}

	contentLength := end - start + 1
	if _, err := file.Seek(start, io.SeekStart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to seek file"})
		return
	}

	c.Header("Content-Length", strconv.FormatInt(contentLength, 10))
	c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, fileSize))
	c.Status(http.StatusPartialContent)

	if _, err := io.CopyN(c.Writer, file, contentLength); err != nil {
		logger.Warn("error streaming range",
			logger.Int64("start", start),
			logger.Int64("end", end),
			logger.ErrorField(err))
	}
}

// parseRange parses a single "bytes=start-end" range. The end is optional
// and defaults to the file end.
func parseRange(rangeHeader string, fileSize int64) (int64, int64, error) {
	if !strings.HasPrefix(rangeHeader, "bytes=") {
		return 0, 0, fmt.Errorf("unsupported range unit")
	}

	spec := strings.TrimPrefix(rangeHeader, "bytes=")
	parts := strings.Split(spec, "-")
	if len(parts) != 2 || (parts[0] == "" && parts[1] == "") {
		return 0, 0, fmt.Errorf("invalid range spec %q", spec)
	}

	var start, end int64
	var err error

	if parts[0] != "" {
		start, err = strconv.ParseInt(parts[0], 10, 64)
		if err != nil || start < 0 {
			return 0, 0, fmt.Errorf("invalid range start %q", parts[0])
		}
	}

	if parts[1] != "" {
		end, err = strconv.ParseInt(parts[1], 10, 64)
		if err != nil || end < start {
			return 0, 0, fmt.Errorf("invalid range end %q", parts[1])
		}
	} else {
		end = fileSize - 1
	}

	return start, end, nil
}

// contentTypeFor returns the MIME type for a media file path
func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".aiff":
		return "audio/aiff"
	default:
		return "application/octet-stream"
	}
}
