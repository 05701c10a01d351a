package main

import (
	"flag"

	"reprise/cmd"
	"reprise/config"
	"reprise/logger"
)

func main() {
	var (
		port       int
		uploadsDir string
		resultsDir string
	)

	flag.IntVar(&port, "port", 0, "Port to listen on (overrides REPRISE_PORT)")
	flag.StringVar(&uploadsDir, "uploads", "", "Directory for stored originals (overrides REPRISE_UPLOADS_DIR)")
	flag.StringVar(&resultsDir, "results", "", "Directory for extended versions (overrides REPRISE_RESULTS_DIR)")
	flag.Parse()

	cfg := config.Load()
	if port != 0 {
		cfg.Port = port
	}
	if uploadsDir != "" {
		cfg.UploadsDir = uploadsDir
	}
	if resultsDir != "" {
		cfg.ResultsDir = resultsDir
	}

	logger.Init(logger.Config{
		Level:      logger.Level(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    50,
		MaxBackups: 3,
		MaxAge:     14,
		Compress:   true,
	})

	// A malformed root is a configuration error: refuse to serve traffic.
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", logger.ErrorField(err))
	}

	cmd.StartServer(cfg)
}
