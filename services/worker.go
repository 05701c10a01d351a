package services

import (
	"context"

	"reprise/types"
)

// Worker is the external collaborator that performs the actual media
// transformation and metadata extraction. Both calls are synchronous from
// the worker's point of view; the orchestrator decides what runs in the
// background.
type Worker interface {
	// Transform runs the extension job, reading inputPath and writing the
	// extended result to outputPath.
	Transform(ctx context.Context, inputPath, outputPath string, settings types.ExtensionSettings) error

	// ExtractMetadata inspects a media file. Callers treat failures as
	// best-effort: missing metadata never fails a parent operation.
	ExtractMetadata(ctx context.Context, path string) (*types.AudioMetadata, error)
}
