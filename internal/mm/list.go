package mm

import (
	"fmt"

	"mm-go/internal/model"
)

// ListResult is the outcome of a catalog listing.
type ListResult struct {
	Models []*model.Model
	// InitialScan reports that the catalog was empty and the listing was
	// produced by an implicit first scan instead of a catalog read.
	InitialScan bool
}

// List returns the catalog ordered by kind, then name. On a completely
// empty catalog it runs one non-forced scan first and returns that scan's
// output; otherwise it reads from the catalog without touching the
// filesystem, so changes on disk only surface after an explicit scan.
func (s *Service) List() (*ListResult, error) {
	empty, err := s.database.CatalogEmpty()
	if err != nil {
		return nil, fmt.Errorf("checking catalog: %w", err)
	}

	if empty {
		s.logger.Info("catalog empty, running initial scan")
		res, err := s.Scan(false)
		if err != nil {
			return nil, err
		}
		return &ListResult{Models: res.Models, InitialScan: true}, nil
	}

	models, err := s.database.ListModels()
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	return &ListResult{Models: models}, nil
}
