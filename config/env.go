package config

import (
	"fmt"
	"os"
	"strconv"

	"reprise/logger"
	"reprise/security"

	"github.com/joho/godotenv"
)

// Config stores the application configuration
type Config struct {
	Port          int
	UploadsDir    string // root for stored originals, canonicalized by Validate
	ResultsDir    string // root for extended versions, canonicalized by Validate
	WorkerCommand string // external transformation command
	FFprobePath   string
	LogLevel      string
	LogPath       string
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// Load reads configuration from environment variables, honoring a .env
// file when present. Existing environment variables win over the file.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded, using environment and defaults")
	}

	return &Config{
		Port:          getEnvInt("REPRISE_PORT", 8080),
		UploadsDir:    getEnv("REPRISE_UPLOADS_DIR", "data/uploads"),
		ResultsDir:    getEnv("REPRISE_RESULTS_DIR", "data/results"),
		WorkerCommand: getEnv("REPRISE_WORKER_CMD", "reprise-worker"),
		FFprobePath:   getEnv("FFPROBE_PATH", "ffprobe"),
		LogLevel:      getEnv("REPRISE_LOG_LEVEL", "info"),
		LogPath:       getEnv("REPRISE_LOG_PATH", ""),
	}
}

// Validate canonicalizes the managed directory roots and creates them. A
// malformed root is a configuration error: the process must not serve
// traffic, so callers treat any error here as fatal.
func (c *Config) Validate() error {
	uploads, err := security.CanonicalizeRoot(c.UploadsDir)
	if err != nil {
		return fmt.Errorf("uploads root: %w", err)
	}
	results, err := security.CanonicalizeRoot(c.ResultsDir)
	if err != nil {
		return fmt.Errorf("results root: %w", err)
	}

	for _, dir := range []string{uploads, results} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	c.UploadsDir = uploads
	c.ResultsDir = results
	return nil
}
