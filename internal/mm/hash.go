package mm

import (
	"errors"
	"fmt"

	"mm-go/internal/fingerprint"
)

var (
	// ErrModelNotFound reports a model id with no catalog entry.
	ErrModelNotFound = errors.New("model not found")
	// ErrFileNotFound reports a catalog entry whose file is gone from disk.
	ErrFileNotFound = errors.New("file not found")
	// ErrHashFailed reports a file that could not be read through to the end.
	ErrHashFailed = errors.New("hash calculation failed")
)

// HashResult is the outcome of a strong-hash request for one model id.
// Exactly one of Hash and Err is set.
type HashResult struct {
	ModelID string
	Hash    string
	Err     error
}

// ComputeStrongHash streams the full content digest for each given model
// and stores it on the catalog row. Each id succeeds or fails on its own;
// a failed id never aborts the batch and never mutates the catalog.
func (s *Service) ComputeStrongHash(modelIDs []string) []HashResult {
	results := make([]HashResult, 0, len(modelIDs))
	for _, id := range modelIDs {
		hash, err := s.hashOne(id)
		if err != nil {
			s.logger.Warn("strong hash failed", "model_id", id, "error", err)
			results = append(results, HashResult{ModelID: id, Err: err})
			continue
		}
		results = append(results, HashResult{ModelID: id, Hash: hash})
	}
	return results
}

func (s *Service) hashOne(id string) (string, error) {
	m, err := s.database.FindModelByID(id)
	if err != nil {
		return "", fmt.Errorf("looking up model: %w", err)
	}
	if m == nil {
		return "", ErrModelNotFound
	}

	path, err := s.fsmgr.Resolve(m.Path)
	if err != nil {
		return "", ErrFileNotFound
	}

	f, err := s.fsmgr.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashFailed, err)
	}
	defer f.Close()

	s.logger.Info("computing full digest", "model_id", id, "path", m.Path)
	hash, err := fingerprint.Full(f)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashFailed, err)
	}

	ok, err := s.database.SetModelHash(id, hash)
	if err != nil {
		return "", fmt.Errorf("storing hash: %w", err)
	}
	if !ok {
		return "", ErrModelNotFound
	}

	return hash, nil
}
