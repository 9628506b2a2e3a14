package handler

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"medicare/internal/storage"
)

const maxEvidenceBytes = 5 << 20

type EvidenceHandler struct {
	Store *storage.EvidenceStore
	DB    *gorm.DB
}

// Upload stores a dose-evidence photo and returns its URL for attachment to
// a log entry.
func (h *EvidenceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(r, h.DB)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxEvidenceBytes+4096)
	if err := r.ParseMultipartForm(maxEvidenceBytes); err != nil {
		writeErr(w, http.StatusBadRequest, "File size exceeds 5MB limit")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeErr(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if header.Size > maxEvidenceBytes {
		writeErr(w, http.StatusBadRequest, "File size exceeds 5MB limit")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeErr(w, http.StatusBadRequest, "Only image files are allowed")
		return
	}

	url, err := h.Store.Upload(r.Context(), u.ID, header.Filename, contentType, file)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "Upload failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"url": url})
}
