package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"p9e.in/requisition/pkg/ingest"
	"p9e.in/requisition/pkg/metrics"
)

// ImportMaster replaces the master table with an uploaded workbook or CSV.
// POST /api/v1/master (multipart, field "file")
func (h *RequisitionHandler) ImportMaster(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadLimit)
	if err := r.ParseMultipartForm(h.uploadLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}

	records, err := ingest.ReadBytes(header.Filename, data)
	if err != nil {
		metrics.Imports.WithLabelValues(metrics.ResultError).Inc()
		log.Printf("⚠️ [IMPORT] %s rejected: %v", header.Filename, err)
		writeError(w, err)
		return
	}

	if err := h.svc.ImportMaster(r.Context(), header.Filename, records); err != nil {
		metrics.Imports.WithLabelValues(metrics.ResultError).Inc()
		writeError(w, err)
		return
	}
	metrics.Imports.WithLabelValues(metrics.ResultOK).Inc()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "master data loaded",
		"summary": h.svc.Summary(),
	})
}

// GetMaster returns what master data is loaded.
// GET /api/v1/master
func (h *RequisitionHandler) GetMaster(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Summary())
}

// GetCategories lists the categories of the master table.
// GET /api/v1/categories
func (h *RequisitionHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": h.svc.Categories(),
	})
}

// GetCategorySKUs lists the SKUs of one category.
// GET /api/v1/categories/{category}/skus
func (h *RequisitionHandler) GetCategorySKUs(w http.ResponseWriter, r *http.Request) {
	category := mux.Vars(r)["category"]
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"category": category,
		"skus":     h.svc.SKUsForCategory(category),
	})
}
