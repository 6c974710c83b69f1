package server

import (
	"mm-go/internal/mm"
	"mm-go/internal/model"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// modelJSON is the wire form of one catalog entry. The key set and the
// null-for-absent convention match what the frontend already consumes.
type modelJSON struct {
	ID               string  `json:"id"`
	Type             string  `json:"type"`
	Name             string  `json:"name"`
	Path             string  `json:"path"`
	Size             int64   `json:"size"`
	Hash             *string `json:"hash"`
	MTime            int64   `json:"mtime"`
	Trigger          *string `json:"trigger"`
	Tags             *string `json:"tags"`
	NameLocal        *string `json:"name_local"`
	NameCivitai      *string `json:"name_civitai"`
	VersionName      *string `json:"version_name"`
	TypeCivitai      *string `json:"type_civitai"`
	BaseModel        *string `json:"base_model"`
	Creator          *string `json:"creator"`
	License          *string `json:"license"`
	CivitaiModelURL  *string `json:"civitai_model_url"`
	CivitaiCheckedAt *int64  `json:"civitai_checked_at"`
	TriggerLocal     *string `json:"trigger_local"`
	TriggerCivitai   *string `json:"trigger_civitai"`
	TagsLocal        *string `json:"tags_local"`
	TagsCivitai      *string `json:"tags_civitai"`
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optInt64(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

func toModelJSON(m *model.Model) modelJSON {
	return modelJSON{
		ID:               m.ID,
		Type:             string(m.Kind),
		Name:             m.Name.Effective(),
		Path:             m.Path,
		Size:             m.Size,
		Hash:             optString(m.Hash),
		MTime:            m.MTime,
		Trigger:          optString(m.Trigger.Effective()),
		Tags:             optString(m.Tags.Effective()),
		NameLocal:        optString(m.Name.Local),
		NameCivitai:      optString(m.Name.Remote),
		VersionName:      optString(m.Remote.Version),
		TypeCivitai:      optString(m.Remote.Type),
		BaseModel:        optString(m.Remote.BaseModel),
		Creator:          optString(m.Remote.Creator),
		License:          optString(m.Remote.License),
		CivitaiModelURL:  optString(m.Remote.URL),
		CivitaiCheckedAt: optInt64(m.Remote.CheckedAt),
		TriggerLocal:     optString(m.Trigger.Local),
		TriggerCivitai:   optString(m.Trigger.Remote),
		TagsLocal:        optString(m.Tags.Local),
		TagsCivitai:      optString(m.Tags.Remote),
	}
}

func toModelList(models []*model.Model) []modelJSON {
	out := make([]modelJSON, 0, len(models))
	for _, m := range models {
		out = append(out, toModelJSON(m))
	}
	return out
}

type skippedJSON struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func toSkippedList(skipped []mm.SkippedFile) []skippedJSON {
	if len(skipped) == 0 {
		return nil
	}
	out := make([]skippedJSON, 0, len(skipped))
	for _, s := range skipped {
		out = append(out, skippedJSON{Path: s.Path, Reason: s.Reason})
	}
	return out
}

type scanRequest struct {
	Force bool `json:"force"`
}

type scanResponse struct {
	Status  string        `json:"status"`
	Count   int           `json:"count"`
	Models  []modelJSON   `json:"models"`
	Skipped []skippedJSON `json:"skipped,omitempty"`
}

type listResponse struct {
	Status      string      `json:"status"`
	Count       int         `json:"count"`
	Models      []modelJSON `json:"models"`
	InitialScan bool        `json:"initial_scan,omitempty"`
}

// civitaiData carries the metadata fields of one external lookup. Older
// frontend builds send creator and triggerWords under different keys, so
// both spellings are accepted.
type civitaiData struct {
	Name            string `json:"name"`
	VersionName     string `json:"versionName"`
	ModelType       string `json:"modelType"`
	BaseModel       string `json:"baseModel"`
	CreatorUsername string `json:"creatorUsername"`
	Creator         string `json:"creator"`
	License         string `json:"license"`
	CivitaiModelURL string `json:"civitaiModelUrl"`
	TriggerWords    string `json:"triggerWords"`
	Tags            string `json:"tags"`
	ModelTags       string `json:"modelTags"`
}

type civitaiUpdate struct {
	ModelID     string      `json:"modelId"`
	CivitaiData civitaiData `json:"civitaiData"`
	NotFound    bool        `json:"civitaiNotFound"`
}

func (u civitaiUpdate) toRemoteUpdate() mm.RemoteUpdate {
	d := u.CivitaiData

	creator := d.CreatorUsername
	if creator == "" {
		creator = d.Creator
	}
	trigger := d.TriggerWords
	if trigger == "" {
		trigger = d.Tags
	}

	return mm.RemoteUpdate{
		ModelID:   u.ModelID,
		NotFound:  u.NotFound,
		Name:      d.Name,
		Version:   d.VersionName,
		Type:      d.ModelType,
		BaseModel: d.BaseModel,
		Creator:   creator,
		License:   d.License,
		URL:       d.CivitaiModelURL,
		Trigger:   trigger,
		Tags:      d.ModelTags,
	}
}

type updateCivitaiRequest struct {
	Updates []civitaiUpdate `json:"updates"`
}

type updateCivitaiResponse struct {
	Status  string `json:"status"`
	Updated int    `json:"updated"`
	Message string `json:"message"`
}

type calculateHashRequest struct {
	ModelIDs []string `json:"modelIds"`
}

type hashResultJSON struct {
	ModelID string `json:"modelId"`
	Status  string `json:"status"`
	Hash    string `json:"hash,omitempty"`
	Message string `json:"message,omitempty"`
}

type calculateHashResponse struct {
	Status  string           `json:"status"`
	Results []hashResultJSON `json:"results"`
}

type settingsJSON struct {
	ModelsPath string `json:"models_path"`
}

type settingsResponse struct {
	Status   string       `json:"status"`
	Settings settingsJSON `json:"settings"`
}

type saveSettingsRequest struct {
	ModelsPath string `json:"models_path"`
}

type messageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
