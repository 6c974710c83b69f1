package testutil

import (
	"testing"

	"mm-go/internal/database"
	"mm-go/internal/database/migrations"
	"mm-go/internal/mm"
)

// NewTestCatalog creates a new in-memory SQLite catalog with the schema
// migrated to the latest version. The database is automatically closed
// when the test completes.
func NewTestCatalog(t *testing.T) mm.Database {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := migrations.MigrateUp(sqlDB); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to migrate schema: %v", err)
	}

	db := database.NewSQLiteCatalogFromDB(sqlDB)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
