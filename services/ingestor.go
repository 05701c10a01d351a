package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reprise/logger"
	"reprise/security"
	"reprise/store"
	"reprise/types"

	"github.com/google/uuid"
)

// MaxUploadBytes is the admission-control size cap for uploads
const MaxUploadBytes = 15 << 20 // 15 MiB

// allowedUploadTypes is the declared mime-type allow-list for uploads
var allowedUploadTypes = map[string]bool{
	"audio/mpeg":   true,
	"audio/wav":    true,
	"audio/x-wav":  true,
	"audio/flac":   true,
	"audio/aiff":   true,
	"audio/x-aiff": true,
}

// MediaIngestor validates and persists uploaded media files, creating the
// track record and kicking off best-effort metadata extraction.
type MediaIngestor struct {
	store       store.TrackStore
	worker      Worker
	uploadsRoot string
}

// NewMediaIngestor creates a media ingestor writing under uploadsRoot.
// The root must already be canonicalized.
func NewMediaIngestor(trackStore store.TrackStore, worker Worker, uploadsRoot string) *MediaIngestor {
	return &MediaIngestor{
		store:       trackStore,
		worker:      worker,
		uploadsRoot: uploadsRoot,
	}
}

// Ingest admits one uploaded file and returns the created track with
// status "uploaded". Metadata fields fill in asynchronously; their absence
// is not an ingest failure.
func (in *MediaIngestor) Ingest(ctx context.Context, file io.Reader, size int64, declaredMime, declaredFilename string, ownerID int64) (*types.Track, error) {
	if !allowedUploadTypes[strings.ToLower(strings.TrimSpace(declaredMime))] {
		return nil, fmt.Errorf("%w: unsupported media type %q", ErrValidation, declaredMime)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrValidation)
	}
	if size > MaxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds %d MiB limit", ErrValidation, MaxUploadBytes>>20)
	}

	safeName := security.SanitizeFilename(declaredFilename)
	ext := strings.ToLower(filepath.Ext(safeName))
	if ext == "" {
		ext = extensionForMime(declaredMime)
	}

	// The stored file never uses the declared name: collision-resistant
	// generated name, declared name kept only as display metadata.
	storageName := fmt.Sprintf("%d_%s%s", time.Now().UnixNano(), shortSuffix(), ext)
	storagePath := filepath.Join(in.uploadsRoot, storageName)

	if err := in.writeFile(storagePath, file, size); err != nil {
		return nil, err
	}

	if !security.ValidatePath(storagePath, in.uploadsRoot) {
		// Security rejection, not an I/O error: remove what was written and
		// report the denial distinctly.
		if err := os.Remove(storagePath); err != nil {
			logger.Warn("failed to remove rejected upload",
				logger.String("file", storageName),
				logger.ErrorField(err))
		}
		return nil, fmt.Errorf("%w: stored path failed validation", ErrSecurityDenied)
	}

	track := &types.Track{
		OwnerID:          ownerID,
		OriginalFilename: safeName,
		OriginalPath:     storagePath,
		Status:           types.StatusUploaded,
		Versions:         []types.ExtensionVersion{},
	}

	id, err := in.store.Create(ctx, track)
	if err != nil {
		if removeErr := os.Remove(storagePath); removeErr != nil {
			logger.Warn("failed to remove orphaned upload",
				logger.String("file", storageName),
				logger.ErrorField(removeErr))
		}
		return nil, fmt.Errorf("creating track record: %w", err)
	}
	track.ID = id

	logger.Info("track ingested",
		logger.Int64("trackId", id),
		logger.Int64("ownerId", ownerID),
		logger.String("file", storageName),
		logger.Int64("size", size))

	// Fire-and-forget: metadata failures degrade to null fields.
	go in.fillMetadata(id, storagePath)

	return track, nil
}

// Purge removes every track owned by ownerID together with all referenced
// files. File removal failures are logged, not surfaced; the records are
// gone either way.
func (in *MediaIngestor) Purge(ctx context.Context, ownerID int64) (int, error) {
	removed, err := in.store.DeleteByOwner(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("clearing tracks: %w", err)
	}

	for _, track := range removed {
		in.removeFile(track.ID, track.OriginalPath)
		for _, version := range track.Versions {
			in.removeFile(track.ID, version.Path)
		}
	}

	logger.Info("tracks cleared",
		logger.Int64("ownerId", ownerID),
		logger.Int("count", len(removed)))
	return len(removed), nil
}

func (in *MediaIngestor) writeFile(path string, file io.Reader, size int64) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating upload file: %w", err)
	}

	// Copy one byte past the declared size so an understated Content-Length
	// cannot smuggle an oversized body past the cap.
	written, err := io.Copy(out, io.LimitReader(file, size+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("writing upload file: %w", err)
	}
	if written > size {
		os.Remove(path)
		return fmt.Errorf("%w: upload larger than declared size", ErrValidation)
	}
	return nil
}

func (in *MediaIngestor) fillMetadata(trackID int64, path string) {
	meta, err := in.worker.ExtractMetadata(context.Background(), path)
	if err != nil {
		logger.Warn("metadata extraction failed",
			logger.Int64("trackId", trackID),
			logger.ErrorField(err))
		return
	}

	if _, err := in.store.Update(context.Background(), trackID, func(t *types.Track) error {
		t.Metadata = meta
		return nil
	}); err != nil {
		logger.Warn("metadata update failed",
			logger.Int64("trackId", trackID),
			logger.ErrorField(err))
	}
}

func (in *MediaIngestor) removeFile(trackID int64, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove track file",
			logger.Int64("trackId", trackID),
			logger.ErrorField(err))
	}
}

func shortSuffix() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

func extensionForMime(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "audio/mpeg":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/flac":
		return ".flac"
	case "audio/aiff", "audio/x-aiff":
		return ".aiff"
	default:
		return ".dat"
	}
}
