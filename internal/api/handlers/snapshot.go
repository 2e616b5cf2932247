package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/karalisweb/leadaudit/internal/domain"
	"github.com/karalisweb/leadaudit/internal/storage"
	"github.com/karalisweb/leadaudit/pkg/httputil"
)

// presignExpiry bounds how long a shared snapshot link stays valid.
const presignExpiry = 15 * time.Minute

// SnapshotHandler serves the archived home page HTML of past audits, so
// a reviewer can see exactly what the engine saw when it classified.
type SnapshotHandler struct {
	archive *storage.SnapshotArchive
	logger  *zap.Logger
}

// NewSnapshotHandler creates a snapshot handler. archive may be nil when
// object storage is disabled; every request then answers 503.
func NewSnapshotHandler(archive *storage.SnapshotArchive, logger *zap.Logger) *SnapshotHandler {
	return &SnapshotHandler{archive: archive, logger: logger}
}

// List handles GET /api/v1/leads/{id}/snapshots
func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}

	keys, err := h.archive.ListForLead(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to list snapshots", zap.String("lead_id", id.String()), zap.Error(err))
		httputil.ErrorFromDomain(w, domain.ExternalAPIError("storage", err))
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{"keys": keys})
}

// Content handles GET /api/v1/leads/{id}/snapshots/content?key=...
// and streams the archived HTML itself.
func (h *SnapshotHandler) Content(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}
	key, ok := h.snapshotKey(w, r, id)
	if !ok {
		return
	}

	html, err := h.archive.Download(r.Context(), key)
	if err != nil {
		h.logger.Error("Failed to download snapshot", zap.String("key", key), zap.Error(err))
		httputil.ErrorFromDomain(w, domain.ExternalAPIError("storage", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(html)
}

// Link handles GET /api/v1/leads/{id}/snapshots/link?key=... and returns
// a time-limited download URL.
func (h *SnapshotHandler) Link(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}
	key, ok := h.snapshotKey(w, r, id)
	if !ok {
		return
	}

	url, err := h.archive.PresignedURL(r.Context(), key, presignExpiry)
	if err != nil {
		h.logger.Error("Failed to presign snapshot", zap.String("key", key), zap.Error(err))
		httputil.ErrorFromDomain(w, domain.ExternalAPIError("storage", err))
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"url":       url,
		"expiresIn": presignExpiry.String(),
	})
}

// Delete handles DELETE /api/v1/leads/{id}/snapshots?key=...
func (h *SnapshotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}
	key, ok := h.snapshotKey(w, r, id)
	if !ok {
		return
	}

	if err := h.archive.Delete(r.Context(), key); err != nil {
		h.logger.Error("Failed to delete snapshot", zap.String("key", key), zap.Error(err))
		httputil.ErrorFromDomain(w, domain.ExternalAPIError("storage", err))
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *SnapshotHandler) leadID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if h.archive == nil {
		httputil.JSONError(w, http.StatusServiceUnavailable, "SNAPSHOTS_DISABLED",
			"Snapshot storage is not configured", nil)
		return uuid.Nil, false
	}
	id, err := leadID(r)
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "INVALID_ID", "Invalid lead ID format", nil)
		return uuid.Nil, false
	}
	return id, true
}

// snapshotKey reads the key query parameter and rejects keys outside the
// lead's own archive path.
func (h *SnapshotHandler) snapshotKey(w http.ResponseWriter, r *http.Request, id uuid.UUID) (string, bool) {
	key := r.URL.Query().Get("key")
	if key == "" {
		httputil.ErrorFromDomain(w, domain.ValidationError("key", "key is required"))
		return "", false
	}
	if !strings.Contains(key, id.String()) || strings.Contains(key, "..") {
		httputil.ErrorFromDomain(w, domain.ValidationError("key", "key does not belong to this lead"))
		return "", false
	}
	return key, true
}
