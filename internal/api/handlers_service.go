package api

import (
	"net/http"
	"runtime"
	"time"
)

// ==========================================
// SERVICE OPERATIONS
// ==========================================

// HandleHealth - GET /health
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HandleStatus - GET /api/v1/system/status
// Reports "degraded" when the index is missing, stale or out of shape.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	info, err := h.Store.Info(r.Context())
	if err != nil {
		h.Log.Error("status: reading index info", "error", err.Error())
		errorResponse(w, http.StatusInternalServerError, "Failed to read database status")
		return
	}

	status := "healthy"
	if !info.Exists || info.Triggers < 3 || len(info.Issues) > 0 {
		status = "degraded"
	}
	extraction := "disabled"
	if h.Extractor != nil {
		extraction = "enabled"
	}

	jsonResponse(w, http.StatusOK, StandardResponse{
		Success: true,
		Data: StatusResponse{
			Status:     status,
			Uptime:     time.Since(h.started).Round(time.Second).String(),
			Database:   h.Store.Path(),
			Driver:     h.Store.Driver(),
			Citations:  info.Citations,
			Extraction: extraction,
			Version:    h.Version,
			GoVersion:  runtime.Version(),
		},
	})
}
