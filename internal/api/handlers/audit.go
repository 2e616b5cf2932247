package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/karalisweb/leadaudit/internal/domain"
	"github.com/karalisweb/leadaudit/internal/repository/postgres"
	rediscache "github.com/karalisweb/leadaudit/internal/repository/redis"
	"github.com/karalisweb/leadaudit/internal/services/audit"
	"github.com/karalisweb/leadaudit/pkg/httputil"
)

// AuditHandler triggers audits and streams their progress
type AuditHandler struct {
	auditor *audit.Auditor
	repo    *postgres.LeadRepository
	cache   *rediscache.Cache
	logger  *zap.Logger
}

// NewAuditHandler creates a new audit handler. cache may be nil, step
// events are then only returned to the direct caller.
func NewAuditHandler(auditor *audit.Auditor, repo *postgres.LeadRepository, cache *rediscache.Cache, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditor: auditor,
		repo:    repo,
		cache:   cache,
		logger:  logger,
	}
}

// AuditResponse bundles the audited lead with the run's step events
type AuditResponse struct {
	Lead   *domain.Lead      `json:"lead"`
	Events []audit.StepEvent `json:"events"`
}

// Trigger handles POST /api/v1/leads/{id}/audit. The audit runs
// synchronously within its crawl budget; pass skip_serp=true to bypass
// the costed SERP corroboration.
func (h *AuditHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	id, err := leadID(r)
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "INVALID_ID", "Invalid lead ID format", nil)
		return
	}

	opts := audit.Options{
		SkipSerp: r.URL.Query().Get("skip_serp") == "true",
		Observer: h.publisher(r, id),
	}

	events, auditErr := h.auditor.AuditLead(r.Context(), id, opts)

	// A FAILED audit is still a persisted outcome: return the lead with
	// its fail reason instead of masking it behind an error envelope.
	if auditErr != nil && !failedOutcome(auditErr) {
		httputil.ErrorFromDomain(w, auditErr)
		return
	}

	lead, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, AuditResponse{Lead: lead, Events: events})
}

// Stream handles POST /api/v1/leads/{id}/audit/stream. The audit runs
// while its step events are pushed to the caller as server-sent events,
// terminated by the complete step.
func (h *AuditHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id, err := leadID(r)
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "INVALID_ID", "Invalid lead ID format", nil)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.JSONError(w, http.StatusInternalServerError, domain.ErrCodeInternal,
			"streaming not supported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	publish := h.publisher(r, id)
	opts := audit.Options{
		SkipSerp: r.URL.Query().Get("skip_serp") == "true",
		Observer: func(ev audit.StepEvent) {
			writeSSE(w, flusher, ev)
			if publish != nil {
				publish(ev)
			}
		},
	}

	if _, auditErr := h.auditor.AuditLead(r.Context(), id, opts); auditErr != nil && !failedOutcome(auditErr) {
		// Rejected before any step ran; the stream carries the only error
		// event the caller will see.
		writeSSE(w, flusher, audit.StepEvent{
			Step:   audit.StepComplete,
			Status: audit.StepError,
			Data:   map[string]any{"reason": auditErr.Error()},
		})
	}
}

// publisher forwards step events to the Redis channel when a cache is
// configured, so other processes can follow the run.
func (h *AuditHandler) publisher(r *http.Request, id uuid.UUID) func(audit.StepEvent) {
	if h.cache == nil {
		return nil
	}
	ctx := r.Context()
	return func(ev audit.StepEvent) {
		if err := h.cache.PublishEvent(ctx, id, ev); err != nil {
			h.logger.Debug("publishing step event", zap.Error(err))
		}
	}
}

// failedOutcome reports whether the audit error was persisted as a
// FAILED lead rather than a rejected invocation.
func failedOutcome(err error) bool {
	if domain.IsSentinelError(err, domain.ErrAuditInProgressVal) {
		return false
	}
	if domain.IsSentinelError(err, domain.ErrInvalidInputVal) {
		return false
	}
	if domain.IsSentinelError(err, domain.ErrNotFoundVal) {
		return false
	}
	return true
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev audit.StepEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	w.Write([]byte("event: " + ev.Step + "\n"))
	w.Write([]byte("data: "))
	w.Write(payload)
	w.Write([]byte("\n\n"))
	flusher.Flush()
}
