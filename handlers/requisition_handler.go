package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"p9e.in/requisition/pkg/export"
	"p9e.in/requisition/pkg/metrics"
	"p9e.in/requisition/pkg/requisition"
)

// RequisitionHandler serves the requisition API.
type RequisitionHandler struct {
	svc         *requisition.Service
	uploadLimit int64
	now         func() time.Time
}

// NewRequisitionHandler creates the handler. uploadLimit is in bytes.
func NewRequisitionHandler(svc *requisition.Service, uploadLimit int64) *RequisitionHandler {
	return &RequisitionHandler{svc: svc, uploadLimit: uploadLimit, now: time.Now}
}

// GetLines returns the current page. search, sort, dir and page update the
// view before it is projected.
// GET /api/v1/lines
func (h *RequisitionHandler) GetLines(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Has("search") {
		h.svc.SetSearch(q.Get("search"))
	}
	if q.Has("sort") {
		asc := q.Get("dir") != "desc"
		if err := h.svc.SetSort(requisition.SortField(q.Get("sort")), asc); err != nil {
			writeError(w, err)
			return
		}
	}
	if q.Has("page") {
		page, err := strconv.Atoi(q.Get("page"))
		if err != nil {
			http.Error(w, "invalid page", http.StatusBadRequest)
			return
		}
		h.svc.SetPage(page)
	}
	writeJSON(w, http.StatusOK, h.svc.View())
}

type addLineRequest struct {
	Category string `json:"category"`
	SKUCode  string `json:"skuCode"`
	SKUName  string `json:"skuName"`
}

// AddLine adds a requisition line for a SKU.
// POST /api/v1/lines
func (h *RequisitionHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req addLineRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Category = strings.TrimSpace(req.Category)
	req.SKUCode = strings.TrimSpace(req.SKUCode)
	req.SKUName = strings.TrimSpace(req.SKUName)
	if req.Category == "" || req.SKUCode == "" || req.SKUName == "" {
		http.Error(w, "category, skuCode and skuName are required", http.StatusBadRequest)
		return
	}

	line, err := h.svc.AddLine(r.Context(), req.Category, req.SKUCode, req.SKUName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "line added",
		"line":    line,
		"view":    h.svc.View(),
	})
}

// SetQuantity updates the quantity of a line. Out-of-range or non-numeric
// input is clamped rather than rejected.
// PUT /api/v1/lines/{index}/quantity
func (h *RequisitionHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	idx, ok := lineIndex(r)
	if !ok {
		http.Error(w, "invalid line index", http.StatusBadRequest)
		return
	}
	var req struct {
		Value interface{} `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	raw := ""
	if req.Value != nil {
		raw = fmt.Sprint(req.Value)
	}

	qty, err := h.svc.SetQuantity(r.Context(), idx, raw)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"index":     idx,
		"qtyNeeded": qty,
	})
}

// SetSupplier updates the supplier of a line.
// PUT /api/v1/lines/{index}/supplier
func (h *RequisitionHandler) SetSupplier(w http.ResponseWriter, r *http.Request) {
	idx, ok := lineIndex(r)
	if !ok {
		http.Error(w, "invalid line index", http.StatusBadRequest)
		return
	}
	var req struct {
		Supplier string `json:"supplier"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.svc.SetSupplier(r.Context(), idx, req.Supplier); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"index":    idx,
		"supplier": strings.TrimSpace(req.Supplier),
	})
}

// RemoveLine deletes a line.
// DELETE /api/v1/lines/{index}?confirm=true
func (h *RequisitionHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	idx, ok := lineIndex(r)
	if !ok {
		http.Error(w, "invalid line index", http.StatusBadRequest)
		return
	}

	removed, err := h.svc.RemoveLine(r.Context(), idx, confirmed(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "line removed",
		"removed": removed,
		"view":    h.svc.View(),
	})
}

// ToggleSort sorts by a column, flipping direction on a repeat.
// POST /api/v1/lines/sort/{field}
func (h *RequisitionHandler) ToggleSort(w http.ResponseWriter, r *http.Request) {
	field := requisition.SortField(mux.Vars(r)["field"])
	if _, err := h.svc.ToggleSort(field); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.View())
}

// Reset clears all lines and master data.
// POST /api/v1/reset?confirm=true
func (h *RequisitionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Clear(r.Context(), confirmed(r)); err != nil {
		writeError(w, err)
		return
	}
	log.Println("🗑️ [STATE] all data cleared")
	writeJSON(w, http.StatusOK, map[string]string{"message": "all data cleared"})
}

// Export downloads the lines passing the current search as a workbook.
// GET /api/v1/export
func (h *RequisitionHandler) Export(w http.ResponseWriter, r *http.Request) {
	lines, fileName := h.svc.ExportLines()
	now := h.now()

	buffer, err := export.WriteBuffer(lines, export.Meta{FileName: fileName, GeneratedAt: now})
	if err != nil {
		metrics.Exports.WithLabelValues(metrics.ResultError).Inc()
		writeError(w, err)
		return
	}
	metrics.Exports.WithLabelValues(metrics.ResultOK).Inc()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.FileName(now)))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buffer.Len()))

	w.WriteHeader(http.StatusOK)
	w.Write(buffer.Bytes())
}
