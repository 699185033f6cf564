package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"p9e.in/requisition/pkg/export"
	"p9e.in/requisition/pkg/ingest"
	"p9e.in/requisition/pkg/mirror"
	"p9e.in/requisition/pkg/requisition"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes. State is never modified
// on these paths, so the client can retry or correct its input.
func writeError(w http.ResponseWriter, err error) {
	var ingestErr *ingest.Error
	var syncErr *mirror.SyncError

	switch {
	case errors.As(err, &ingestErr):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, requisition.ErrConfirmationRequired):
		http.Error(w, "confirmation required: repeat with confirm=true", http.StatusPreconditionRequired)
	case errors.Is(err, requisition.ErrLineNotFound), errors.Is(err, requisition.ErrSKUNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, requisition.ErrNoMaterialsFound):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, requisition.ErrUnknownSortField):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, export.ErrNoDataToExport):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, requisition.ErrMirrorDisabled), errors.Is(err, mirror.ErrPushInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, mirror.ErrNoBackup):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &syncErr):
		log.Printf("❌ [SYNC] %v", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		log.Printf("❌ Internal error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func lineIndex(r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

func confirmed(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return ok
}
