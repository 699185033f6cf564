package handlers

import (
	"net/http"

	"p9e.in/requisition/models"
)

// GetSync reports the mirror status.
// GET /api/v1/sync
func (h *RequisitionHandler) GetSync(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.SyncStatus())
}

// ToggleSync turns mirroring on or off. Turning it on pushes immediately.
// POST /api/v1/sync/toggle
func (h *RequisitionHandler) ToggleSync(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.ToggleSync(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// PushSync uploads the current state now.
// POST /api/v1/sync/push
func (h *RequisitionHandler) PushSync(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SyncNow(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.SyncStatus())
}

// RestoreSync replaces local data with the remote copy.
// POST /api/v1/sync/restore?confirm=true
func (h *RequisitionHandler) RestoreSync(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Restore(r.Context(), confirmed(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "data restored from remote",
		"summary": h.svc.Summary(),
		"sync":    h.svc.SyncStatus(),
	})
}

// GetSettings returns the persisted UI settings and sync state.
// GET /api/v1/settings
func (h *RequisitionHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	dark, err := h.svc.DarkMode(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		models.SettingDarkMode: dark,
		"sync":                 h.svc.SyncStatus(),
	})
}

// SetDarkMode persists the dark-mode flag.
// PUT /api/v1/settings/dark-mode
func (h *RequisitionHandler) SetDarkMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.svc.SetDarkMode(r.Context(), req.Enabled); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{models.SettingDarkMode: req.Enabled})
}
