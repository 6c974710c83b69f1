package mm

import "mm-go/internal/model"

// Database provides an interface for catalog and settings storage.
// All methods should be implemented with appropriate transaction handling.
type Database interface {
	// Model operations

	// FindModelByID returns the model with the given fingerprint identity.
	// Returns (nil, nil) when no such model exists.
	FindModelByID(id string) (*model.Model, error)

	// UpsertModel inserts the model, or replaces every column of an
	// existing row with the same id.
	UpsertModel(m *model.Model) error

	// SetModelLocalName fills the local name tier of a model. Used to
	// backfill rows written before local tiers were tracked.
	SetModelLocalName(id, name string) error

	// ListModels returns the whole catalog ordered by kind, then by
	// effective name case-insensitively.
	ListModels() ([]*model.Model, error)

	// DeleteModelsNotIn removes every model whose path is absent from
	// observed and returns the number of rows removed. An empty observed
	// set removes all models.
	DeleteModelsNotIn(observed []string) (int64, error)

	// SetModelHash stores a full-content digest for a model.
	// Returns false when no model has the given id.
	SetModelHash(id, hash string) (bool, error)

	// UpdateModelRemote writes the remote metadata tier of the model
	// identified by m.ID, along with the legacy name/trigger/tags columns
	// carried on m. Local tiers are not modified. Returns false when no
	// row matched.
	UpdateModelRemote(m *model.Model) (bool, error)

	// MarkRemoteChecked stamps the time a remote lookup was attempted
	// without touching any metadata. Returns false when no row matched.
	MarkRemoteChecked(id string, checkedAt int64) (bool, error)

	// CatalogEmpty reports whether the catalog holds no models.
	CatalogEmpty() (bool, error)

	// ClearModels removes every model from the catalog.
	ClearModels() error

	// Settings operations

	// GetSetting returns the value stored under key, or the empty string
	// when the key has never been saved.
	GetSetting(key string) (string, error)

	// PutSetting stores value under key, replacing any previous value.
	PutSetting(key, value string) error

	// Close closes the database connection.
	Close() error
}
