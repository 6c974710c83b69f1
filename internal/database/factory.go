package database

import (
	"fmt"
	"path/filepath"

	"mm-go/internal/config"
	"mm-go/internal/mm"
)

// catalogFile is the name of the SQLite database file inside data_dir.
const catalogFile = "catalog.db"

// NewDatabaseFromConfig creates a Database implementation based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (mm.Database, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		return NewSQLiteCatalog(filepath.Join(cfg.DataDir, catalogFile))
	case "memory":
		return NewSQLiteCatalog(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
