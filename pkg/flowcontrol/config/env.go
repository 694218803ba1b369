package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a ".env" file next to the deployment config, if one
// exists, into the process environment. It is a no-op (not an error) if
// the file is absent — secrets may instead come from the OS keyring or
// be set directly in the environment by the process supervisor.
func LoadDotEnv(configDir string, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	path := filepath.Join(configDir, ".env")
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		logger.Warn("config: failed to load .env file", "path", path, "error", err)
		return
	}
	logger.Debug("config: loaded .env file", "path", path)
}
