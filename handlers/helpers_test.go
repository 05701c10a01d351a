package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"sync"
	"testing"
	"time"

	"reprise/security"
	"reprise/services"
	"reprise/store"
	"reprise/types"
	"reprise/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// fakeWorker stands in for the external transformation process so handler
// tests never shell out. Transform copies input to output.
type fakeWorker struct {
	mu           sync.Mutex
	transformErr error
	duration     float64
	transforms   int
}

func (w *fakeWorker) Transform(ctx context.Context, inputPath, outputPath string, settings types.ExtensionSettings) error {
	w.mu.Lock()
	w.transforms++
	err := w.transformErr
	w.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrWorkerFailure, err)
	}

	data, readErr := os.ReadFile(inputPath)
	if readErr != nil {
		return fmt.Errorf("%w: %v", services.ErrWorkerFailure, readErr)
	}
	return os.WriteFile(outputPath, data, 0644)
}

func (w *fakeWorker) ExtractMetadata(ctx context.Context, path string) (*types.AudioMetadata, error) {
	d := w.duration
	return &types.AudioMetadata{Format: "wav", Duration: &d}, nil
}

// testEnv is a fully wired router backed by temp roots and a fake worker
type testEnv struct {
	router  *gin.Engine
	store   store.TrackStore
	worker  *fakeWorker
	uploads string
	results string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	uploads, err := security.CanonicalizeRoot(t.TempDir())
	require.NoError(t, err)
	results, err := security.CanonicalizeRoot(t.TempDir())
	require.NoError(t, err)

	hub := websocket.NewHub()
	go hub.Run()

	trackStore := store.NewMemoryStore()
	worker := &fakeWorker{duration: 180}
	ingestor := services.NewMediaIngestor(trackStore, worker, uploads)
	orchestrator := services.NewExtensionOrchestrator(trackStore, worker, results, hub)

	router := gin.New()
	router.GET("/health", NewHealthHandler().HealthCheck)

	trackHandler := NewTrackHandler(ingestor, orchestrator, trackStore)
	mediaHandler := NewMediaHandler(trackStore, uploads, results)

	tracks := router.Group("/tracks")
	tracks.POST("/upload", trackHandler.Upload)
	tracks.GET("", trackHandler.List)
	tracks.DELETE("", trackHandler.Clear)
	tracks.GET("/:id", trackHandler.Get)
	tracks.POST("/:id/process", trackHandler.Process)
	tracks.GET("/:id/status", trackHandler.Status)
	tracks.GET("/:id/download", mediaHandler.Download)
	router.GET("/audio/:id/:kind", mediaHandler.Stream)

	return &testEnv{
		router:  router,
		store:   trackStore,
		worker:  worker,
		uploads: uploads,
		results: results,
	}
}

// do performs a request against the wired router
func (e *testEnv) do(method, target string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// upload posts content as the multipart "audio" field and returns the
// created track
func (e *testEnv) upload(t *testing.T, filename, contentType string, content []byte, headers map[string]string) *types.Track {
	t.Helper()

	w := e.uploadRaw(t, "audio", filename, contentType, content, headers)
	require.Equal(t, http.StatusCreated, w.Code, "upload failed: %s", w.Body.String())

	var track types.Track
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &track))
	return &track
}

func (e *testEnv) uploadRaw(t *testing.T, field, filename, contentType string, content []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	partHeader.Set("Content-Type", contentType)
	part, err := writer.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	if headers == nil {
		headers = map[string]string{}
	}
	headers["Content-Type"] = writer.FormDataContentType()
	return e.do(http.MethodPost, "/tracks/upload", &buf, headers)
}

// process posts valid default settings for a track
func (e *testEnv) process(t *testing.T, trackID int64, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"introLength":16,"outroLength":16,"preserveVocals":true,"beatDetection":"auto"}`
	if headers == nil {
		headers = map[string]string{}
	}
	headers["Content-Type"] = "application/json"
	return e.do(http.MethodPost, fmt.Sprintf("/tracks/%d/process", trackID),
		bytes.NewReader([]byte(body)), headers)
}

// waitForStatus polls the status endpoint until the track reaches one of
// the wanted statuses
func (e *testEnv) waitForStatus(t *testing.T, trackID int64, wanted ...types.TrackStatus) types.TrackStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		w := e.do(http.MethodGet, fmt.Sprintf("/tracks/%d/status", trackID), nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp types.StatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		for _, status := range wanted {
			if resp.Status == status {
				return resp.Status
			}
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("track %d did not reach %v in time", trackID, wanted)
	return ""
}
