package api

import (
	"github.com/GonzoDMX/citation-index/internal/models"
)

// ==========================================
// 1. STANDARD ENVELOPE
// ==========================================

// StandardResponse wraps all API responses to ensure consistency.
// Frontend checks "success" first. If false, display "error".
type StandardResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`    // The actual payload (one of the structs below)
	Message string      `json:"message,omitempty"` // User-friendly message
	Error   string      `json:"error,omitempty"`   // User-friendly error message
	Meta    interface{} `json:"meta,omitempty"`    // Pagination, timing, request_id, etc.
}

// ==========================================
// 2. GENERAL SERVICE
// ==========================================

type StatusResponse struct {
	Status     string `json:"status"` // "healthy", "degraded"
	Uptime     string `json:"uptime"` // Human readable duration
	Database   string `json:"database"`
	Driver     string `json:"driver"`
	Citations  int64  `json:"citations"`
	Extraction string `json:"extraction"` // "enabled", "disabled"
	Version    string `json:"version"`
	GoVersion  string `json:"go_version"`
}

// ==========================================
// 3. CITATIONS
// ==========================================

type CitationListResponse struct {
	Citations []models.Citation `json:"citations"`
	Total     int64             `json:"total"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}

// ExtractResponse pre-fills the create form. PDFFilename is the stored
// upload name; send it back as pdf_path when creating the citation.
type ExtractResponse struct {
	Fields      models.CitationFields `json:"fields"`
	PDFFilename string                `json:"pdf_filename"`
}

// ==========================================
// 4. SEARCH
// ==========================================

type SearchResponse struct {
	Query   string                `json:"query"`
	Results []models.SearchResult `json:"results"`
	Total   int                   `json:"total_hits"`
	Took    string                `json:"took_ms"` // Execution time
}
