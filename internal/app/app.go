package app

import (
	"fmt"
	"os"
	"time"

	"mm-go/internal/config"
	"mm-go/internal/database"
	"mm-go/internal/fs"
	"mm-go/internal/mm"
)

// App is the application layer between the CLI/HTTP surface and the model
// manager service. It constructs all dependencies from config, exposes the
// high-level operations, and manages the DB lifecycle on Close.
type App struct {
	cfg     *config.Config
	db      mm.Database
	fsmgr   mm.FilesystemManager
	service *mm.Service
	logger  mm.Logger
	logFile *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the entry point being run (e.g. "Scan", "Serve");
// it tags every log line of this process.
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	fsmgr := fs.NewOSFilesystemManager()

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	opID := fmt.Sprintf("%s-%s", operation, time.Now().UTC().Format("20060102T150405Z"))
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	logger := &slogAdapter{l: slogger}
	svc := mm.NewService(db, fsmgr, logger, mm.RealClock{}, mm.UUIDGenerator{})

	return &App{
		cfg:     cfg,
		db:      db,
		fsmgr:   fsmgr,
		service: svc,
		logger:  logger,
		logFile: logFile,
	}, nil
}

// Scan reconciles the catalog against the models directory.
// When force is true every file is re-extracted regardless of mtime.
func (a *App) Scan(force bool) (*mm.ScanResult, error) {
	return a.service.Scan(force)
}

// List returns the catalog contents, scanning first if the catalog is empty.
func (a *App) List() (*mm.ListResult, error) {
	return a.service.List()
}

// UpdateRemoteMetadata applies externally fetched metadata to the catalog.
// Returns the number of models updated.
func (a *App) UpdateRemoteMetadata(updates []mm.RemoteUpdate) (int, error) {
	return a.service.UpdateRemoteMetadata(updates)
}

// ComputeStrongHash streams the full digest of each given model and stores it.
func (a *App) ComputeStrongHash(modelIDs []string) []mm.HashResult {
	return a.service.ComputeStrongHash(modelIDs)
}

// ModelsPath resolves the effective models root directory.
func (a *App) ModelsPath() (string, error) {
	return a.service.ModelsPath()
}

// SaveModelsPath validates and persists a new models root and clears the
// catalog so the next listing rebuilds it.
func (a *App) SaveModelsPath(rawPath string) error {
	return a.service.SaveModelsPath(rawPath)
}

// Ping verifies the catalog store is reachable.
func (a *App) Ping() error {
	return a.service.Ping()
}

// Logger exposes the process logger for surfaces that log outside the
// service, such as HTTP middleware.
func (a *App) Logger() mm.Logger {
	return a.logger
}

// Close releases all resources held by the App.
func (a *App) Close() error {
	var firstErr error

	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
