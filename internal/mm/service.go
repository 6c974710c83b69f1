package mm

import "fmt"

// Service is the orchestration layer that coordinates fingerprinting,
// metadata extraction, provenance merging and catalog reconciliation for
// the operations exposed by the CLI and the HTTP server.
type Service struct {
	database Database
	fsmgr    FilesystemManager
	logger   Logger
	clock    Clock
	idgen    IDGenerator
}

// NewService creates a new Service with the provided dependencies.
func NewService(database Database, fsmgr FilesystemManager, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		database: database,
		fsmgr:    fsmgr,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
	}
}

// Ping verifies the catalog store is reachable.
func (s *Service) Ping() error {
	if _, err := s.database.CatalogEmpty(); err != nil {
		return fmt.Errorf("pinging catalog: %w", err)
	}
	return nil
}
