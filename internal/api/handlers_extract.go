package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/GonzoDMX/citation-index/internal/ai"
	"github.com/GonzoDMX/citation-index/internal/ingest"
	"github.com/GonzoDMX/citation-index/internal/pipeline"
)

// ==========================================
// EXTRACTION & UPLOADS
// ==========================================

// extractField is the multipart field carrying the PDF.
const extractField = "pdf_for_extraction"

// HandleExtract - POST /api/v1/extract
// Synchronous: Uploads -> Extracts first page -> Gemini -> Returns fields.
// The PDF is kept only when extraction succeeds.
func (h *Handlers) HandleExtract(w http.ResponseWriter, r *http.Request) {
	// 1. Parse Multipart
	r.Body = http.MaxBytesReader(w, r.Body, h.Uploads.MaxBytes)
	if err := r.ParseMultipartForm(h.Uploads.MaxBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			errorResponse(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		errorResponse(w, http.StatusBadRequest, "No file part in the request.")
		return
	}

	// 2. Get File
	file, header, err := r.FormFile(extractField)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "No file part in the request.")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		errorResponse(w, http.StatusBadRequest, "No file selected for upload.")
		return
	}

	// 3. Validation (extension + magic number)
	buffer := make([]byte, 512)
	n, _ := io.ReadFull(file, buffer)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		errorResponse(w, http.StatusBadRequest, "Unreadable upload")
		return
	}
	if !ingest.IsSupported(header.Filename, buffer[:n]) {
		errorResponse(w, http.StatusUnsupportedMediaType, "Only PDF files are supported")
		return
	}
	safeName := ingest.SafeFilename(header.Filename)
	if safeName == "" {
		errorResponse(w, http.StatusBadRequest, "Invalid file name")
		return
	}

	if h.Extractor == nil {
		errorResponse(w, http.StatusServiceUnavailable, "AI extraction is not configured on this server")
		return
	}

	// 4. Save to uploads
	stored, err := saveUpload(h.Uploads.Dir, file, safeName)
	if err != nil {
		h.Log.Error("saving upload", "file", safeName, "error", err.Error())
		errorResponse(w, http.StatusInternalServerError, "Failed to save file")
		return
	}
	path := filepath.Join(h.Uploads.Dir, stored)
	keep := false
	defer func() {
		if !keep {
			os.Remove(path)
		}
	}()

	// 5. PIPELINE: Extract Text
	text, err := pipeline.ExtractFirstPage(path)
	if err != nil {
		h.Log.Warn("pdf text extraction failed", "file", stored, "error", err.Error())
		errorResponse(w, http.StatusUnprocessableEntity, "Could not extract text from PDF. Please check the file format.")
		return
	}
	h.Log.Debug("extracted first page", "file", stored, "chars", len(text))

	// 6. Gateway
	fields, err := h.Extractor.Extract(r.Context(), text)
	switch {
	case errors.Is(err, ai.ErrInsufficientText):
		errorResponse(w, http.StatusUnprocessableEntity, "Not enough text on the first page to extract a citation.")
		return
	case err != nil:
		h.Log.Error("ai extraction failed", "file", stored, "error", err.Error())
		errorResponse(w, http.StatusBadGateway, "AI extraction failed. Please check the logs and try again.")
		return
	}

	keep = true
	fields.PDFPath = stored
	jsonResponse(w, http.StatusOK, StandardResponse{
		Success: true,
		Data:    ExtractResponse{Fields: fields, PDFFilename: stored},
		Message: "Information extracted successfully! Please review and save.",
	})
}

// HandleUpload - GET /uploads/{filename}
func (h *Handlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "filename")
	if name == "" || ingest.SafeFilename(name) != name {
		errorResponse(w, http.StatusNotFound, "File not found")
		return
	}

	path := filepath.Join(h.Uploads.Dir, name)
	if _, err := os.Stat(path); err != nil {
		errorResponse(w, http.StatusNotFound, "File not found")
		return
	}
	http.ServeFile(w, r, path)
}
