package mm

import (
	"fmt"

	"mm-go/internal/model"
)

// RemoteUpdate is one entry of an UpdateRemoteMetadata batch. When
// NotFound is set the metadata fields are ignored and only the checked
// timestamp is stamped, so the lookup is not repeated.
type RemoteUpdate struct {
	ModelID   string
	NotFound  bool
	Name      string
	Version   string
	Type      string
	BaseModel string
	Creator   string
	License   string
	URL       string
	Trigger   string
	Tags      string
}

// UpdateRemoteMetadata applies externally fetched metadata to the catalog.
// The remote tier of each named model is overwritten, local tiers are left
// alone, and the legacy compatibility columns are refreshed from the new
// merge result. Entries with an unknown or empty model id are skipped.
// Returns the number of models actually updated.
func (s *Service) UpdateRemoteMetadata(updates []RemoteUpdate) (int, error) {
	updated := 0
	for _, u := range updates {
		if u.ModelID == "" {
			continue
		}
		checkedAt := s.clock.Now().Unix()

		if u.NotFound {
			ok, err := s.database.MarkRemoteChecked(u.ModelID, checkedAt)
			if err != nil {
				return updated, fmt.Errorf("marking model %s checked: %w", u.ModelID, err)
			}
			if ok {
				updated++
			}
			continue
		}

		existing, err := s.database.FindModelByID(u.ModelID)
		if err != nil {
			return updated, fmt.Errorf("looking up model %s: %w", u.ModelID, err)
		}
		if existing == nil {
			s.logger.Warn("remote update for unknown model", "model_id", u.ModelID)
			continue
		}

		existing.Remote = model.RemoteInfo{
			Version:   u.Version,
			Type:      u.Type,
			BaseModel: u.BaseModel,
			Creator:   u.Creator,
			License:   u.License,
			URL:       u.URL,
			CheckedAt: checkedAt,
		}
		existing.Name.Remote = u.Name
		existing.Trigger.Remote = u.Trigger
		existing.Tags.Remote = u.Tags
		existing.Name.Legacy = existing.Name.Effective()
		existing.Trigger.Legacy = existing.Trigger.Effective()
		existing.Tags.Legacy = existing.Tags.Effective()

		ok, err := s.database.UpdateModelRemote(existing)
		if err != nil {
			return updated, fmt.Errorf("updating model %s: %w", u.ModelID, err)
		}
		if ok {
			updated++
			s.logger.Info("remote metadata updated", "model_id", u.ModelID, "name", u.Name)
		}
	}
	return updated, nil
}
