package docsvc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/pagemark/pagemark/backend-go/internal/auth"
	"github.com/pagemark/pagemark/backend-go/internal/importer"
)

// maxUploadSize caps imported source PDFs at 50MB.
const maxUploadSize = 50 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create accepts a multipart form with a "file" PDF and optional "name",
// imports it, and returns the new document.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file"})
		return
	}
	defer file.Close()

	source, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read upload"})
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = strings.TrimSuffix(header.Filename, ".pdf")
	}
	if name == "" {
		name = "Untitled"
	}

	doc, err := h.service.Create(r.Context(), name, userID, source)
	if err != nil {
		switch {
		case errors.Is(err, importer.ErrEncrypted):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "document is password protected"})
		case errors.Is(err, importer.ErrCorrupt), errors.Is(err, importer.ErrNoPages):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "document could not be read"})
		default:
			slog.Error("create document failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	docs, err := h.service.List(r.Context(), userID)
	if err != nil {
		slog.Error("list documents failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	documentID := mux.Vars(r)["id"]

	doc, err := h.service.Get(r.Context(), documentID, userID)
	if err != nil {
		writeServiceError(w, err, "get document")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	documentID := mux.Vars(r)["id"]

	if err := h.service.Delete(r.Context(), documentID, userID); err != nil {
		writeServiceError(w, err, "delete document")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetSnapshot serves the latest serialized model, used by the editor to
// seed its engine before opening the session socket.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	documentID := mux.Vars(r)["id"]

	model, err := h.service.GetLatestSnapshot(r.Context(), documentID, userID)
	if err != nil {
		writeServiceError(w, err, "get snapshot")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(model)
}

// Export flattens the latest snapshot and serves it as a PDF download.
// Skipped elements are reported in the X-Skipped-Elements header so the
// frontend can surface a warning without failing the download.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	documentID := mux.Vars(r)["id"]

	doc, err := h.service.Get(r.Context(), documentID, userID)
	if err != nil {
		writeServiceError(w, err, "export document")
		return
	}

	pdf, warnings, err := h.service.Export(r.Context(), documentID, userID)
	if err != nil {
		writeServiceError(w, err, "export document")
		return
	}

	for _, warn := range warnings {
		slog.Warn("element skipped during export",
			"document", documentID, "page", warn.Page, "element", warn.ElementID, "reason", warn.Reason)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name+".pdf"))
	w.Header().Set("X-Skipped-Elements", strconv.Itoa(len(warnings)))
	w.Write(pdf)
}

func writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
	case errors.Is(err, ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	default:
		slog.Error(op+" failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
