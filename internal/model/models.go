package model

// Kind is the model category, assigned by which configured subfolder the
// file was found under — never inferred from file content.
type Kind string

const (
	KindCheckpoint     Kind = "checkpoints"
	KindDiffusionModel Kind = "diffusion_models"
	KindLora           Kind = "loras"
	KindEmbedding      Kind = "embeddings"
)

// Kinds lists all categories in scan order.
func Kinds() []Kind {
	return []Kind{KindCheckpoint, KindDiffusionModel, KindLora, KindEmbedding}
}

// TriField holds the three provenance tiers of one metadata field.
// Remote is supplied by an external metadata lookup, Local is derived from
// the file itself at scan time, and Legacy is the pre-provenance combined
// value kept for rows written by older schema versions.
type TriField struct {
	Remote string
	Local  string
	Legacy string
}

// Effective returns the single display value: remote strictly dominates
// local, local strictly dominates legacy. Empty string means absent.
func (f TriField) Effective() string {
	if f.Remote != "" {
		return f.Remote
	}
	if f.Local != "" {
		return f.Local
	}
	return f.Legacy
}

// RemoteInfo holds the remote-only descriptive fields that have no local
// equivalent. CheckedAt is the epoch-seconds timestamp of the last external
// lookup attempt; it is set even when the lookup found nothing, so repeat
// lookups can be avoided. Zero means never checked.
type RemoteInfo struct {
	Version   string
	Type      string
	BaseModel string
	Creator   string
	License   string
	URL       string
	CheckedAt int64
}

// Model is one catalog entry per distinct model file, keyed by the cheap
// fingerprint identity.
type Model struct {
	ID        string // sampled fingerprint, or path digest for small files
	Kind      Kind
	Path      string // absolute; unique across the catalog
	Size      int64
	MTime     int64 // epoch seconds; the change-detection key
	ScannedAt int64 // epoch seconds of the last (re)examination

	// Hash is the full-file digest, empty until explicitly requested.
	Hash string

	Name    TriField
	Trigger TriField
	Tags    TriField
	Remote  RemoteInfo
}

// SettingModelsPath is the key of the model root directory setting, the
// only setting currently defined.
const SettingModelsPath = "models_path"
