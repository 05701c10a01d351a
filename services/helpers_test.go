package services

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"reprise/security"
	"reprise/store"
	"reprise/types"

	"github.com/stretchr/testify/require"
)

// fakeWorker stands in for the external transformation process. Transform
// copies the input to the output so downstream file checks work.
type fakeWorker struct {
	mu           sync.Mutex
	transformErr error
	metadataErr  error
	duration     float64
	delay        time.Duration
	transforms   int
}

func (w *fakeWorker) Transform(ctx context.Context, inputPath, outputPath string, settings types.ExtensionSettings) error {
	if w.delay > 0 {
		time.Sleep(w.delay)
	}

	w.mu.Lock()
	w.transforms++
	err := w.transformErr
	w.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWorkerFailure, err)
	}

	data, readErr := os.ReadFile(inputPath)
	if readErr != nil {
		return fmt.Errorf("%w: %v", ErrWorkerFailure, readErr)
	}
	return os.WriteFile(outputPath, data, 0644)
}

func (w *fakeWorker) ExtractMetadata(ctx context.Context, path string) (*types.AudioMetadata, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.metadataErr != nil {
		return nil, w.metadataErr
	}
	d := w.duration
	return &types.AudioMetadata{Format: "wav", Duration: &d}, nil
}

func (w *fakeWorker) transformCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.transforms
}

// testRoot returns a canonicalized temp directory usable as a managed root
func testRoot(t *testing.T) string {
	t.Helper()
	dir, err := security.CanonicalizeRoot(t.TempDir())
	require.NoError(t, err)
	return dir
}

// writeTestFile drops a small media file into a root and returns its path
func writeTestFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := dir + string(os.PathSeparator) + name
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

// waitForStatus polls the store until the track reaches one of the wanted
// statuses or the timeout elapses
func waitForStatus(t *testing.T, s store.TrackStore, id int64, wanted ...types.TrackStatus) *types.Track {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		track, err := s.Get(context.Background(), id)
		require.NoError(t, err)
		for _, status := range wanted {
			if track.Status == status {
				return track
			}
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("track %d did not reach %v in time", id, wanted)
	return nil
}
