package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mm-go/internal/mm"
)

// Catalog is the slice of the model manager the HTTP layer depends on.
// Both *mm.Service and *app.App satisfy it.
type Catalog interface {
	Scan(force bool) (*mm.ScanResult, error)
	List() (*mm.ListResult, error)
	UpdateRemoteMetadata(updates []mm.RemoteUpdate) (int, error)
	ComputeStrongHash(modelIDs []string) []mm.HashResult
	ModelsPath() (string, error)
	SaveModelsPath(rawPath string) error
	Ping() error
}

// Handler holds the route implementations of the catalog API.
type Handler struct {
	catalog Catalog
	logger  mm.Logger
}

// NewHandler creates a Handler serving the given catalog.
func NewHandler(catalog Catalog, logger mm.Logger) *Handler {
	return &Handler{catalog: catalog, logger: logger}
}

// Scan handles POST /api/v1/scan. A missing or malformed body means a
// default, non-forced scan.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	res, err := h.catalog.Scan(req.Force)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, scanResponse{
		Status:  statusSuccess,
		Count:   len(res.Models),
		Models:  toModelList(res.Models),
		Skipped: toSkippedList(res.Skipped),
	})
}

// List handles GET /api/v1/list.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	res, err := h.catalog.List()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, listResponse{
		Status:      statusSuccess,
		Count:       len(res.Models),
		Models:      toModelList(res.Models),
		InitialScan: res.InitialScan,
	})
}

// UpdateCivitai handles POST /api/v1/update-civitai.
func (h *Handler) UpdateCivitai(w http.ResponseWriter, r *http.Request) {
	var req updateCivitaiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Updates == nil {
		h.writeError(w, http.StatusBadRequest, "Missing updates data")
		return
	}

	updates := make([]mm.RemoteUpdate, 0, len(req.Updates))
	for _, u := range req.Updates {
		updates = append(updates, u.toRemoteUpdate())
	}

	updated, err := h.catalog.UpdateRemoteMetadata(updates)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, updateCivitaiResponse{
		Status:  statusSuccess,
		Updated: updated,
		Message: fmt.Sprintf("Updated %d models", updated),
	})
}

// CalculateFullHash handles POST /api/v1/calculate-full-hash.
func (h *Handler) CalculateFullHash(w http.ResponseWriter, r *http.Request) {
	var req calculateHashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ModelIDs == nil {
		h.writeError(w, http.StatusBadRequest, "Missing modelIds")
		return
	}

	results := h.catalog.ComputeStrongHash(req.ModelIDs)

	out := make([]hashResultJSON, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			out = append(out, hashResultJSON{
				ModelID: res.ModelID,
				Status:  statusError,
				Message: hashErrorMessage(res.Err),
			})
			continue
		}
		out = append(out, hashResultJSON{
			ModelID: res.ModelID,
			Status:  statusSuccess,
			Hash:    res.Hash,
		})
	}

	h.writeJSON(w, http.StatusOK, calculateHashResponse{
		Status:  statusSuccess,
		Results: out,
	})
}

// hashErrorMessage maps the service's hash failures onto the messages the
// frontend matches on.
func hashErrorMessage(err error) string {
	switch {
	case errors.Is(err, mm.ErrModelNotFound):
		return "Model not found"
	case errors.Is(err, mm.ErrFileNotFound):
		return "File not found"
	default:
		return "Hash calculation failed"
	}
}

// GetSettings handles GET /api/v1/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	path, err := h.catalog.ModelsPath()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, settingsResponse{
		Status:   statusSuccess,
		Settings: settingsJSON{ModelsPath: path},
	})
}

// SaveSettings handles POST /api/v1/settings.
func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var req saveSettingsRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := h.catalog.SaveModelsPath(req.ModelsPath); err != nil {
		switch {
		case errors.Is(err, mm.ErrEmptyModelsPath):
			h.writeError(w, http.StatusBadRequest, "Models path cannot be empty")
		case errors.Is(err, mm.ErrNotDirectory):
			h.writeError(w, http.StatusBadRequest,
				fmt.Sprintf("Directory not found: %s", strings.TrimSpace(req.ModelsPath)))
		default:
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.writeJSON(w, http.StatusOK, messageResponse{
		Status:  statusSuccess,
		Message: "Settings saved successfully",
	})
}

// HealthLive handles GET /health/live. It reports that the process is up
// and nothing more.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "mm",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthReady handles GET /health/ready. Ready means the catalog store
// answers a round trip.
func (h *Handler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	if err := h.catalog.Ping(); err != nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "fail",
			"service":   "mm",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"message":   err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "mm",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("encoding response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Status: statusError, Message: message})
}
