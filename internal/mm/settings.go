package mm

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"mm-go/internal/model"
)

const (
	// EnvModelsPath overrides any persisted models path when set.
	EnvModelsPath = "MM_MODELS_PATH"

	// defaultModelsPath is used when neither the environment nor the
	// settings store names a models root.
	defaultModelsPath = "./models"
)

var (
	// ErrEmptyModelsPath reports a save request with a blank path.
	ErrEmptyModelsPath = errors.New("models path cannot be empty")
	// ErrNotDirectory reports a models path that is not an existing directory.
	ErrNotDirectory = errors.New("directory not found")
)

// ModelsPath resolves the models root directory. A process environment
// override wins unconditionally, then the persisted setting, then the
// hardcoded default.
func (s *Service) ModelsPath() (string, error) {
	if v := os.Getenv(EnvModelsPath); v != "" {
		return v, nil
	}

	v, err := s.database.GetSetting(model.SettingModelsPath)
	if err != nil {
		return "", fmt.Errorf("reading models path setting: %w", err)
	}
	if v != "" {
		return v, nil
	}
	return defaultModelsPath, nil
}

// SaveModelsPath validates and persists a new models root, then clears
// the whole catalog so the next listing rebuilds it from scratch. Stale
// entries from the old root must never leak into the new root's view.
func (s *Service) SaveModelsPath(rawPath string) error {
	trimmed := strings.TrimSpace(rawPath)
	if trimmed == "" {
		return ErrEmptyModelsPath
	}

	p, err := s.fsmgr.Resolve(trimmed)
	if err != nil || !p.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, trimmed)
	}

	if err := s.database.PutSetting(model.SettingModelsPath, trimmed); err != nil {
		return fmt.Errorf("saving models path: %w", err)
	}
	if err := s.database.ClearModels(); err != nil {
		return fmt.Errorf("clearing catalog: %w", err)
	}

	s.logger.Info("models path saved", "path", trimmed)
	return nil
}
