package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"reprise/logger"
	"reprise/security"
	"reprise/store"
	"reprise/types"
)

// MaxVersions is the number of extension versions a track may accumulate
const MaxVersions = 3

// StatusBroadcaster receives track status transitions for real-time
// delivery. Implemented by the WebSocket hub; may be nil.
type StatusBroadcaster interface {
	BroadcastStatus(trackID int64, status types.TrackStatus, version int, message string)
}

// ExtensionOrchestrator drives the version-limited processing state
// machine. Admission and the synchronous status transition run under a
// per-track lock; the transform itself runs detached and reports back
// through the store.
type ExtensionOrchestrator struct {
	store       store.TrackStore
	worker      Worker
	resultsRoot string
	hub         StatusBroadcaster

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewExtensionOrchestrator creates an orchestrator writing extended
// versions under resultsRoot. The root must already be canonicalized.
func NewExtensionOrchestrator(trackStore store.TrackStore, worker Worker, resultsRoot string, hub StatusBroadcaster) *ExtensionOrchestrator {
	return &ExtensionOrchestrator{
		store:       trackStore,
		worker:      worker,
		resultsRoot: resultsRoot,
		hub:         hub,
		locks:       make(map[int64]*sync.Mutex),
	}
}

// Start validates and admits an extension job for the track, persists the
// processing/regenerate transition and returns before the transform runs.
// Completion is observed only through status polling.
func (o *ExtensionOrchestrator) Start(ctx context.Context, trackID, ownerID int64, settings types.ExtensionSettings) (*types.Track, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	// Serializes the admission check and transition against concurrent
	// requests for the same track, closing the version-limit race.
	lock := o.lockFor(trackID)
	lock.Lock()
	defer lock.Unlock()

	track, err := o.store.Get(ctx, trackID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: track %d", ErrNotFound, trackID)
		}
		return nil, fmt.Errorf("loading track %d: %w", trackID, err)
	}
	if track.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: track %d", ErrNotFound, trackID)
	}

	if track.VersionCount >= MaxVersions {
		return nil, fmt.Errorf("%w: track already has %d of %d versions",
			ErrVersionLimit, track.VersionCount, MaxVersions)
	}

	// One job per track at a time. The version counter only moves on
	// completion, so without this check a second admission could slip in
	// while a transform is still running and overshoot the limit.
	if track.Status == types.StatusProcessing || track.Status == types.StatusRegenerate {
		return nil, fmt.Errorf("%w: an extension job is already in progress", ErrValidation)
	}

	outputPath, err := o.deriveOutputPath(track)
	if err != nil {
		return nil, err
	}

	nextStatus := types.StatusProcessing
	if len(track.Versions) > 0 {
		nextStatus = types.StatusRegenerate
	}

	updated, err := o.store.Update(ctx, trackID, func(t *types.Track) error {
		t.Status = nextStatus
		t.Settings = &settings
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("persisting status transition: %w", err)
	}

	logger.Info("extension job accepted",
		logger.Int64("trackId", trackID),
		logger.String("status", string(nextStatus)),
		logger.String("output", filepath.Base(outputPath)))
	o.broadcast(trackID, nextStatus, updated.VersionCount+1, "extension started")

	go o.runTransform(trackID, updated.OriginalPath, outputPath, settings)

	return updated, nil
}

// deriveOutputPath builds the versioned output filename from the sanitized
// original name. An invalid derived path fails the triggering request.
func (o *ExtensionOrchestrator) deriveOutputPath(track *types.Track) (string, error) {
	ext := filepath.Ext(track.OriginalFilename)
	if ext == "" {
		ext = filepath.Ext(track.OriginalPath)
	}
	base := security.SanitizeFilename(strings.TrimSuffix(track.OriginalFilename, ext))

	name := fmt.Sprintf("%s_extended_v%d%s", base, track.VersionCount+1, ext)
	outputPath := filepath.Join(o.resultsRoot, name)

	if !security.ValidatePath(outputPath, o.resultsRoot) {
		return "", fmt.Errorf("%w for track %d", ErrDerivedPath, track.ID)
	}
	return outputPath, nil
}

// runTransform executes the detached portion of the job: transform, then
// best-effort duration extraction, then a single atomic record update.
func (o *ExtensionOrchestrator) runTransform(trackID int64, inputPath, outputPath string, settings types.ExtensionSettings) {
	ctx := context.Background()

	if err := o.worker.Transform(ctx, inputPath, outputPath, settings); err != nil {
		logger.Error("transform failed",
			logger.Int64("trackId", trackID),
			logger.ErrorField(err))

		// Failed attempts do not consume a version slot: nothing is
		// appended and the counter stays where it was.
		if _, updateErr := o.store.Update(ctx, trackID, func(t *types.Track) error {
			t.Status = types.StatusError
			return nil
		}); updateErr != nil {
			logger.Error("failed to record transform error",
				logger.Int64("trackId", trackID),
				logger.ErrorField(updateErr))
		}
		o.broadcast(trackID, types.StatusError, 0, "extension failed")
		return
	}

	var duration *float64
	if meta, err := o.worker.ExtractMetadata(ctx, outputPath); err != nil {
		logger.Warn("duration extraction failed for extended version",
			logger.Int64("trackId", trackID),
			logger.ErrorField(err))
	} else {
		duration = meta.Duration
	}

	updated, err := o.store.Update(ctx, trackID, func(t *types.Track) error {
		t.Versions = append(t.Versions, types.ExtensionVersion{
			Path:     outputPath,
			Duration: duration,
		})
		t.Status = types.StatusCompleted
		t.VersionCount++
		return nil
	})
	if err != nil {
		logger.Error("failed to record completed version",
			logger.Int64("trackId", trackID),
			logger.ErrorField(err))
		return
	}

	logger.Info("extension completed",
		logger.Int64("trackId", trackID),
		logger.Int("versionCount", updated.VersionCount))
	o.broadcast(trackID, types.StatusCompleted, updated.VersionCount, "extension completed")
}

func (o *ExtensionOrchestrator) lockFor(trackID int64) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	lock, ok := o.locks[trackID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[trackID] = lock
	}
	return lock
}

func (o *ExtensionOrchestrator) broadcast(trackID int64, status types.TrackStatus, version int, message string) {
	if o.hub != nil {
		o.hub.BroadcastStatus(trackID, status, version, message)
	}
}
