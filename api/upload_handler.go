package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/GoCodeAlone/capture/session"
)

// maxUploadBytes bounds multipart memory buffering for image uploads.
const maxUploadBytes = 32 << 20

// UploadHandler handles artifact uploads. The target session is derived
// from the ledger on every request; an explicit session_id field overrides
// it for devices that cache /session/current.
type UploadHandler struct {
	alloc   *session.Allocator
	router  *session.Router
	logger  *slog.Logger
	metrics Metrics
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(alloc *session.Allocator, router *session.Router, logger *slog.Logger, metrics Metrics) *UploadHandler {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &UploadHandler{alloc: alloc, router: router, logger: logger, metrics: metrics}
}

// resolveSessionID validates an explicit override or derives the current
// session from the allocator.
func (h *UploadHandler) resolveSessionID(r *http.Request, override string) (string, error) {
	if override != "" {
		if err := session.ValidateRequestID(override); err != nil {
			return "", err
		}
		return override, nil
	}
	state, err := h.alloc.Next(r.Context())
	if err != nil {
		return "", err
	}
	return state.NextID, nil
}

type uploadResponse struct {
	Status  string `json:"status"`
	PhotoID string `json:"photo_id"`
	Path    string `json:"path"`
}

// Image handles POST /upload/image: multipart form with a photo_id field
// and a file part.
func (h *UploadHandler) Image(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid multipart form", err.Error())
		return
	}

	photoID := r.FormValue("photo_id")
	file, _, err := r.FormFile("file")
	if photoID == "" || err != nil {
		WriteError(w, http.StatusBadRequest,
			"Missing required fields: photo_id or file", "")
		return
	}
	defer file.Close()

	sessionID, err := h.resolveSessionID(r, r.FormValue("session_id"))
	if err != nil {
		h.writeUploadError(w, err, "Failed to upload image")
		return
	}

	key, err := h.router.StoreImage(r.Context(), sessionID, photoID, file)
	if err != nil {
		h.writeUploadError(w, err, "Failed to upload image")
		return
	}

	h.metrics.IncUpload(session.ClassImages)
	WriteJSON(w, http.StatusOK, uploadResponse{Status: "success", PhotoID: photoID, Path: key})
}

// Meta handles POST /upload/meta: a JSON metadata document with the
// required capture fields plus arbitrary extension fields.
func (h *UploadHandler) Meta(w http.ResponseWriter, r *http.Request) {
	var doc session.MetadataDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid metadata body", err.Error())
		return
	}

	sessionID, err := h.resolveSessionID(r, doc.SessionID)
	if err != nil {
		h.writeUploadError(w, err, "Failed to upload metadata")
		return
	}

	key, err := h.router.StoreMetadata(r.Context(), sessionID, &doc)
	if err != nil {
		h.writeUploadError(w, err, "Failed to upload metadata")
		return
	}

	h.metrics.IncUpload(session.ClassMetadata)
	WriteJSON(w, http.StatusOK, uploadResponse{Status: "success", PhotoID: doc.PhotoID, Path: key})
}

// writeUploadError maps session-engine errors onto response codes.
func (h *UploadHandler) writeUploadError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, session.ErrMissingField):
		WriteError(w, http.StatusBadRequest, "Missing required fields in metadata", err.Error())
	case errors.Is(err, session.ErrInvalidSessionID):
		WriteError(w, http.StatusBadRequest, "Invalid session_id", err.Error())
	case errors.Is(err, session.ErrInvalidItemID):
		WriteError(w, http.StatusBadRequest, "Invalid photo_id", err.Error())
	default:
		h.logger.Error("upload failed", "error", err)
		WriteError(w, http.StatusInternalServerError, message, err.Error())
	}
}
