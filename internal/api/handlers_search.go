package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/GonzoDMX/citation-index/internal/models"
	"github.com/GonzoDMX/citation-index/internal/search"
)

// ==========================================
// SEARCH OPERATIONS
// ==========================================

// HandleSearch - GET /api/v1/search?q=
// A query the index rejects yields an empty result, not an error status.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	resp := SearchResponse{Query: q, Results: []models.SearchResult{}}

	if q == "" {
		resp.Took = "0"
		jsonResponse(w, http.StatusOK, StandardResponse{Success: true, Data: resp})
		return
	}

	start := time.Now()
	results, err := h.Search.Search(r.Context(), q)
	resp.Took = fmt.Sprintf("%d", time.Since(start).Milliseconds())

	if errors.Is(err, search.ErrQuery) {
		h.Log.Warn("search query rejected", "query", q, "error", err.Error())
		jsonResponse(w, http.StatusOK, StandardResponse{
			Success: true,
			Data:    resp,
			Message: "Search failed for this query; try different terms",
		})
		return
	}
	if err != nil {
		h.Log.Error("search failed", "query", q, "error", err.Error())
		errorResponse(w, http.StatusInternalServerError, "Search failed")
		return
	}

	resp.Results = results
	resp.Total = len(results)
	jsonResponse(w, http.StatusOK, StandardResponse{Success: true, Data: resp})
}
