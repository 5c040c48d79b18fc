// Package app wires configuration, logging, and storage for the jqfeed binaries
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tkasuya/jqfeed/internal/common"
	"github.com/tkasuya/jqfeed/internal/storage"
)

// App holds the initialized core shared by cmd/jqfeed-ingest and
// cmd/jqfeed-screen.
type App struct {
	Config *common.Config
	Logger *common.Logger
	Store  *storage.Store
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp loads configuration, initializes the logger, and opens the store.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	binDir := getBinaryDir()

	// Check provided path, JQFEED_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("JQFEED_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "jqfeed.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/jqfeed.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(config.Logging.Level)

	store, err := storage.Open(config.Storage.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	return &App{
		Config: config,
		Logger: logger,
		Store:  store,
	}, nil
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
		a.Store = nil
	}
}
