package cmd

import (
	"os"
	"strconv"

	"reprise/config"
	"reprise/handlers"
	"reprise/logger"
	"reprise/middleware"
	"reprise/services"
	"reprise/store"
	"reprise/websocket"

	"github.com/gin-gonic/gin"
)

// StartServer wires the services together and serves the HTTP contract.
// cfg must already have passed Validate.
func StartServer(cfg *config.Config) {
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Services
	hub := websocket.NewHub()
	go hub.Run()

	trackStore := store.NewMemoryStore()
	worker := services.NewExecWorker(cfg.WorkerCommand, cfg.FFprobePath)
	ingestor := services.NewMediaIngestor(trackStore, worker, cfg.UploadsDir)
	orchestrator := services.NewExtensionOrchestrator(trackStore, worker, cfg.ResultsDir, hub)

	// Handlers
	trackHandler := handlers.NewTrackHandler(ingestor, orchestrator, trackStore)
	mediaHandler := handlers.NewMediaHandler(trackStore, cfg.UploadsDir, cfg.ResultsDir)
	statusFeedHandler := handlers.NewStatusFeedHandler(hub, trackStore)
	healthHandler := handlers.NewHealthHandler()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.Logging())
	r.Use(middleware.Security())

	SetupRoutes(r, trackHandler, mediaHandler, statusFeedHandler, healthHandler)

	addr := ":" + strconv.Itoa(cfg.Port)
	logger.Info("reprise server starting", logger.String("addr", addr))
	if err := r.Run(addr); err != nil {
		logger.Fatal("failed to start server", logger.ErrorField(err))
	}
}

// SetupRoutes configures all the HTTP routes
func SetupRoutes(r *gin.Engine, trackHandler *handlers.TrackHandler, mediaHandler *handlers.MediaHandler, statusFeedHandler *handlers.StatusFeedHandler, healthHandler *handlers.HealthHandler) {
	r.GET("/health", healthHandler.HealthCheck)

	tracksGroup := r.Group("/tracks")
	{
		tracksGroup.POST("/upload", trackHandler.Upload)
		tracksGroup.GET("", trackHandler.List)
		tracksGroup.DELETE("", trackHandler.Clear)
		tracksGroup.GET("/:id", trackHandler.Get)
		tracksGroup.POST("/:id/process", trackHandler.Process)
		tracksGroup.GET("/:id/status", trackHandler.Status)
		tracksGroup.GET("/:id/download", mediaHandler.Download)
	}

	r.GET("/audio/:id/:kind", mediaHandler.Stream)

	wsGroup := r.Group("/ws")
	{
		wsGroup.GET("/tracks", statusFeedHandler.SubscribeAll)
		wsGroup.GET("/tracks/:id", statusFeedHandler.SubscribeTrack)
	}
}
