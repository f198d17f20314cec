package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/GonzoDMX/citation-index/internal/ingest"
	"github.com/GonzoDMX/citation-index/internal/models"
	"github.com/GonzoDMX/citation-index/internal/store"
)

// ==========================================
// CITATION OPERATIONS
// ==========================================

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// HandleCitationList - GET /api/v1/citations?limit=&offset=
// Newest first.
func (h *Handlers) HandleCitationList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	citations, err := h.Store.List(r.Context(), limit, offset)
	if err != nil {
		h.Log.Error("listing citations", "error", err.Error())
		errorResponse(w, http.StatusInternalServerError, "Failed to list citations")
		return
	}
	total, err := h.Store.Count(r.Context())
	if err != nil {
		h.Log.Error("counting citations", "error", err.Error())
		errorResponse(w, http.StatusInternalServerError, "Failed to list citations")
		return
	}

	jsonResponse(w, http.StatusOK, StandardResponse{
		Success: true,
		Data: CitationListResponse{
			Citations: citations,
			Total:     total,
			Limit:     limit,
			Offset:    offset,
		},
	})
}

// HandleCitationCreate - POST /api/v1/citations
// Body is CitationFields; date_of_judgement must be YYYY-MM-DD.
func (h *Handlers) HandleCitationCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CitationFields
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// pdf_path names a file in the uploads dir, never a path.
	if req.PDFPath != "" && ingest.SafeFilename(req.PDFPath) != req.PDFPath {
		errorResponse(w, http.StatusBadRequest, "Error adding citation: invalid pdf_path")
		return
	}

	c, err := req.ToCitation()
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Error adding citation: "+err.Error())
		return
	}

	if err := h.Store.Create(r.Context(), &c); err != nil {
		if errors.Is(err, store.ErrInvalidCitation) {
			errorResponse(w, http.StatusBadRequest, "Error adding citation: "+err.Error())
			return
		}
		h.Log.Error("creating citation", "error", err.Error())
		errorResponse(w, http.StatusInternalServerError, "Error adding citation")
		return
	}

	jsonResponse(w, http.StatusCreated, StandardResponse{
		Success: true,
		Data:    c,
		Message: "Citation added successfully!",
	})
}

// HandleCitationGet - GET /api/v1/citations/{id}
func (h *Handlers) HandleCitationGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid citation id")
		return
	}

	c, err := h.Store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		errorResponse(w, http.StatusNotFound, "Citation not found")
		return
	}
	if err != nil {
		h.Log.Error("reading citation", "id", id, "error", err.Error())
		errorResponse(w, http.StatusInternalServerError, "Failed to read citation")
		return
	}
	jsonResponse(w, http.StatusOK, StandardResponse{Success: true, Data: c})
}

// HandleCitationDelete - DELETE /api/v1/citations/{id}
func (h *Handlers) HandleCitationDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid citation id")
		return
	}

	err = h.Store.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		errorResponse(w, http.StatusNotFound, "Citation not found")
		return
	}
	if err != nil {
		h.Log.Error("deleting citation", "id", id, "error", err.Error())
		errorResponse(w, http.StatusInternalServerError, "Error deleting citation")
		return
	}
	jsonResponse(w, http.StatusOK, StandardResponse{Success: true, Message: "Citation deleted successfully!"})
}
