package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/GoCodeAlone/capture/session"
)

// SessionHandler handles the session lifecycle endpoints.
type SessionHandler struct {
	alloc      *session.Allocator
	reconciler *session.Reconciler
	packager   *session.Packager
	logger     *slog.Logger
	metrics    Metrics
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(alloc *session.Allocator, reconciler *session.Reconciler, packager *session.Packager, logger *slog.Logger, metrics Metrics) *SessionHandler {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &SessionHandler{
		alloc:      alloc,
		reconciler: reconciler,
		packager:   packager,
		logger:     logger,
		metrics:    metrics,
	}
}

type currentSessionData struct {
	LastCompletedSession *string    `json:"last_completed_session"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	NextSessionID        string     `json:"next_session_id"`
	IsFirstSession       bool       `json:"is_first_session"`
}

// Current handles GET /session/current. The capture device polls this to
// learn the identifier it is recording under.
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	state, err := h.alloc.Next(r.Context())
	if err != nil {
		h.logger.Error("current session lookup failed", "error", err)
		WriteError(w, http.StatusInternalServerError,
			"Failed to retrieve current session status", err.Error())
		return
	}

	if state.First {
		WriteData(w, http.StatusOK,
			"No previous sessions found - this is the first session",
			currentSessionData{
				NextSessionID:  state.NextID,
				IsFirstSession: true,
			})
		return
	}

	WriteData(w, http.StatusOK, "Last completed session retrieved successfully",
		currentSessionData{
			LastCompletedSession: &state.LastCompleted.SessionID,
			CompletedAt:          &state.LastCompleted.CompletedAt,
			NextSessionID:        state.NextID,
			IsFirstSession:       false,
		})
}

type completedSessionData struct {
	CompletedSessionID string    `json:"completed_session_id"`
	CompletedAt        time.Time `json:"completed_at"`
	Status             string    `json:"status"`
}

// End handles POST /session/end: appends a completed-session ledger entry.
// Losing a concurrent completion race yields 409; the caller retries.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	rec, err := h.alloc.Complete(r.Context())
	if err != nil {
		if errors.Is(err, session.ErrDuplicateSession) {
			h.metrics.IncCompletion("duplicate")
			WriteError(w, http.StatusConflict,
				"Session already recorded by a concurrent completion - retry", err.Error())
			return
		}
		h.metrics.IncCompletion("error")
		h.logger.Error("session completion failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to complete session", err.Error())
		return
	}

	h.metrics.IncCompletion("completed")
	h.logger.Info("session completed", "session_id", rec.SessionID)
	WriteData(w, http.StatusOK, "Session completed and recorded successfully",
		completedSessionData{
			CompletedSessionID: rec.SessionID,
			CompletedAt:        rec.CompletedAt,
			Status:             string(rec.Status),
		})
}

// statusResponse is the flat wire shape of the consistency report.
type statusResponse struct {
	Status string `json:"status"`
	*session.Report
}

// Status handles GET /session/status/{session_id}: reconciles image and
// metadata artifacts. Invalid identifiers are rejected before any store
// access.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if err := session.ValidateRequestID(sessionID); err != nil {
		WriteError(w, http.StatusBadRequest,
			"Invalid session_id. Use the actual value, e.g., GET /session/status/session_003", "")
		return
	}

	report, err := h.reconciler.Check(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("consistency check failed", "session_id", sessionID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to check session status", err.Error())
		return
	}

	h.metrics.IncConsistencyCheck(report.Consistent)
	WriteJSON(w, http.StatusOK, statusResponse{Status: "success", Report: report})
}

// Download handles GET /session/download/{session_id}: packages the
// session's objects into a zip archive and streams it. Staging state and
// the archive file are released once the transfer finishes, whether or not
// it succeeded.
func (h *SessionHandler) Download(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if err := session.ValidateRequestID(sessionID); err != nil {
		WriteError(w, http.StatusBadRequest,
			"Invalid session_id. Use the actual value, e.g., GET /session/download/session_003", "")
		return
	}

	arch, err := h.packager.Package(r.Context(), sessionID)
	if err != nil {
		h.metrics.IncArchive("error")
		h.logger.Error("archive packaging failed", "session_id", sessionID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to download session", err.Error())
		return
	}
	defer func() {
		if err := arch.Close(); err != nil {
			h.logger.Warn("archive cleanup failed", "session_id", sessionID, "error", err)
		}
	}()

	f, err := os.Open(arch.Path)
	if err != nil {
		h.metrics.IncArchive("error")
		h.logger.Error("archive open failed", "session_id", sessionID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to download session", err.Error())
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.metrics.IncArchive("error")
		WriteError(w, http.StatusInternalServerError, "Failed to download session", err.Error())
		return
	}

	h.metrics.IncArchive("ok")
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+arch.Name+`"`)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		// Headers are gone; all that is left is to log the broken
		// transfer. Cleanup still runs via the deferred Close.
		h.logger.Warn("archive transfer interrupted", "session_id", sessionID, "error", err)
	}
}
