package mm

import (
	"fmt"
	"path/filepath"
	"strings"

	"mm-go/internal/fingerprint"
	"mm-go/internal/model"
	"mm-go/internal/safetensors"
)

// modelSubfolders maps each model kind to the folder names searched for it
// under the models root. The kind of a model is decided by the folder it
// was found under, never by its content.
var modelSubfolders = map[model.Kind][]string{
	model.KindCheckpoint:     {"checkpoints"},
	model.KindDiffusionModel: {"diffusion_models"},
	model.KindLora:           {"loras"},
	model.KindEmbedding:      {"embeddings"},
}

// modelExtensions is the set of file extensions recognized as model files,
// matched case-insensitively.
var modelExtensions = []string{".ckpt", ".safetensors", ".pt", ".bin"}

// ScanResult is the outcome of one scan pass.
type ScanResult struct {
	// ScanID correlates log lines of one pass.
	ScanID string
	// Models holds every model observed by the pass, both reused and
	// freshly written records. Order follows the directory walk and is
	// not guaranteed stable.
	Models []*model.Model
	// Skipped lists files that were seen but could not be processed.
	Skipped []SkippedFile
}

// SkippedFile records one file a scan pass had to give up on.
type SkippedFile struct {
	Path   string
	Reason string
}

// Scan walks the recognized subfolders under the models root and brings
// the catalog in line with what it finds: new and changed files are
// (re)extracted and upserted, unchanged files are reused without touching
// their stored tiers, and records whose paths were not observed are
// deleted. When force is true the unchanged fast path is disabled and
// every file is re-extracted.
//
// Per-file failures are logged and reported in the result's Skipped list;
// they never abort the pass. A skipped file stays in the catalog since
// its path was still observed on disk.
func (s *Service) Scan(force bool) (*ScanResult, error) {
	started := s.clock.Now()
	result, err := s.scan(force)
	scanDuration.Observe(s.clock.Now().Sub(started).Seconds())
	if err != nil {
		scansTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	scansTotal.WithLabelValues("success").Inc()
	scanModels.Set(float64(len(result.Models)))
	scanSkipped.Add(float64(len(result.Skipped)))
	return result, nil
}

func (s *Service) scan(force bool) (*ScanResult, error) {
	scanID := s.idgen.New()

	basePath, err := s.ModelsPath()
	if err != nil {
		return nil, err
	}
	s.logger.Info("scan started", "scan_id", scanID, "path", basePath, "force", force)

	result := &ScanResult{ScanID: scanID}
	observed := []string{}
	scannedAt := s.clock.Now().Unix()

	for _, kind := range model.Kinds() {
		for _, folder := range modelSubfolders[kind] {
			root, err := s.fsmgr.Resolve(filepath.Join(basePath, folder))
			if err != nil || !root.IsDir() {
				// Absent category folders are normal, not an error.
				continue
			}

			files, err := s.fsmgr.FindFiles(root, true)
			if err != nil {
				s.logger.Warn("walking category folder failed", "scan_id", scanID, "folder", root.String(), "error", err)
				continue
			}

			for _, f := range files {
				if !recognizedExtension(f.Base()) {
					continue
				}
				// Observe before processing: a file that fails below is
				// still present on disk and must survive the prune step.
				observed = append(observed, f.String())

				m, err := s.processFile(f, kind, force, scannedAt)
				if err != nil {
					s.logger.Warn("skipping model file", "scan_id", scanID, "path", f.String(), "error", err)
					result.Skipped = append(result.Skipped, SkippedFile{Path: f.String(), Reason: err.Error()})
					continue
				}
				result.Models = append(result.Models, m)
			}
		}
	}

	removed, err := s.database.DeleteModelsNotIn(observed)
	if err != nil {
		return nil, fmt.Errorf("pruning vanished models: %w", err)
	}
	scanRemoved.Add(float64(removed))

	s.logger.Info("scan complete", "scan_id", scanID,
		"models", len(result.Models), "skipped", len(result.Skipped), "removed", removed)
	return result, nil
}

// processFile reconciles a single recognized file against the catalog and
// returns the record observed for it.
func (s *Service) processFile(path *Path, kind model.Kind, force bool, scannedAt int64) (*model.Model, error) {
	info, err := s.fsmgr.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stating file: %w", err)
	}
	size := info.Size()
	mtime := info.ModTime().Unix()
	localName := localNameOf(path.Base())

	id := s.fileID(path)

	existing, err := s.database.FindModelByID(id)
	if err != nil {
		return nil, fmt.Errorf("looking up model: %w", err)
	}

	if existing != nil && !force && existing.MTime == mtime {
		// Unchanged: reuse the stored tiers untouched. The only write is
		// a local-name backfill for rows from before tiers were tracked.
		if existing.Name.Local == "" {
			existing.Name.Local = localName
			if err := s.database.SetModelLocalName(id, localName); err != nil {
				return nil, fmt.Errorf("backfilling local name: %w", err)
			}
		}
		// The record reflects the walk, even where the stored row lags.
		existing.Kind = kind
		existing.Path = path.String()
		existing.Size = size
		return existing, nil
	}

	meta := s.extractMetadata(path)

	m := &model.Model{
		ID:        id,
		Kind:      kind,
		Path:      path.String(),
		Size:      size,
		MTime:     mtime,
		ScannedAt: scannedAt,
		Name:      model.TriField{Local: localName},
		Trigger:   model.TriField{Local: meta.Trigger},
		Tags:      model.TriField{Local: meta.Tags},
	}
	if existing != nil {
		// Remote metadata and a previously computed digest survive a
		// rescan; only local tiers and file facts are refreshed.
		m.Hash = existing.Hash
		m.Remote = existing.Remote
		m.Name.Remote = existing.Name.Remote
		m.Trigger.Remote = existing.Trigger.Remote
		m.Tags.Remote = existing.Tags.Remote
	}
	m.Name = refreshLegacy(m.Name)
	m.Trigger = refreshLegacy(m.Trigger)
	m.Tags = refreshLegacy(m.Tags)

	if err := s.database.UpsertModel(m); err != nil {
		return nil, fmt.Errorf("upserting model: %w", err)
	}
	return m, nil
}

// fileID computes the cheap content identity of a file, falling back to a
// path-derived identity when the file cannot be opened or sampled. Small
// files below the sampling window are therefore identified by location,
// not content.
func (s *Service) fileID(path *Path) string {
	f, err := s.fsmgr.Open(path)
	if err != nil {
		return fingerprint.PathID(path.String())
	}
	defer f.Close()

	id, err := fingerprint.Quick(f)
	if err != nil {
		return fingerprint.PathID(path.String())
	}
	return id
}

// extractMetadata reads trigger text and tags from the file's embedded
// header. Files without a parseable header yield empty metadata; absence
// is a normal state, not an error.
func (s *Service) extractMetadata(path *Path) safetensors.Metadata {
	f, err := s.fsmgr.Open(path)
	if err != nil {
		return safetensors.Metadata{}
	}
	defer f.Close()

	meta, err := safetensors.Extract(f)
	if err != nil {
		s.logger.Debug("no embedded metadata", "path", path.String(), "error", err)
		return safetensors.Metadata{}
	}
	return meta
}

// refreshLegacy recomputes the legacy compatibility value of a field from
// its remote and local tiers. The prior legacy value is dropped: rewritten
// rows carry a compatibility value derived from current data only.
func refreshLegacy(f model.TriField) model.TriField {
	f.Legacy = ""
	f.Legacy = f.Effective()
	return f
}

// localNameOf strips the extension from a file name. A bare dotfile name
// is kept whole.
func localNameOf(base string) string {
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" {
		return base
	}
	return name
}

func recognizedExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range modelExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
