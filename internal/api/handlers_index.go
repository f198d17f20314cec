package api

import (
	"net/http"
)

// ==========================================
// INDEX OPERATIONS
// ==========================================

// HandleIndexInfo - GET /api/v1/index/info
func (h *Handlers) HandleIndexInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.Store.Info(r.Context())
	if err != nil {
		h.Log.Error("index info failed", "error", err.Error())
		errorResponse(w, http.StatusInternalServerError, "Failed to read index info")
		return
	}
	jsonResponse(w, http.StatusOK, StandardResponse{Success: true, Data: info})
}

// HandleIndexVerify - POST /api/v1/index/verify
func (h *Handlers) HandleIndexVerify(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Verify(r.Context()); err != nil {
		h.Log.Warn("index integrity check failed", "error", err.Error())
		errorResponse(w, http.StatusConflict, "Index is out of sync with citations; run a rebuild")
		return
	}
	jsonResponse(w, http.StatusOK, StandardResponse{Success: true, Message: "Index is consistent"})
}

// HandleIndexRebuild - POST /api/v1/index/rebuild
func (h *Handlers) HandleIndexRebuild(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Rebuild(r.Context()); err != nil {
		h.Log.Error("index rebuild failed", "error", err.Error())
		errorResponse(w, http.StatusInternalServerError, "Index rebuild failed")
		return
	}
	jsonResponse(w, http.StatusOK, StandardResponse{Success: true, Message: "Index rebuilt"})
}
