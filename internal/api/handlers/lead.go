// Package handlers implements the HTTP handlers of the audit API.
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/karalisweb/leadaudit/internal/artifacts"
	"github.com/karalisweb/leadaudit/internal/domain"
	"github.com/karalisweb/leadaudit/internal/repository/postgres"
	"github.com/karalisweb/leadaudit/pkg/httputil"
)

// LeadHandler handles lead CRUD and pipeline requests
type LeadHandler struct {
	repo   *postgres.LeadRepository
	logger *zap.Logger
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(repo *postgres.LeadRepository, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{repo: repo, logger: logger}
}

// CreateLeadRequest is the request body for creating a lead
type CreateLeadRequest struct {
	Name               string   `json:"name"`
	Website            *string  `json:"website"`
	Address            string   `json:"address,omitempty"`
	Phone              string   `json:"phone,omitempty"`
	GoogleRating       *float64 `json:"googleRating,omitempty"`
	GoogleReviewsCount *int     `json:"googleReviewsCount,omitempty"`
	// TalkingPointsText carries free-form notes from a legacy import.
	TalkingPointsText string `json:"talkingPointsText,omitempty"`
}

// Create handles POST /api/v1/leads
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		httputil.ErrorFromDomain(w, domain.ValidationError("name", "name is required"))
		return
	}

	lead := domain.NewLead(strings.TrimSpace(req.Name), req.Website)
	lead.Address = req.Address
	lead.Phone = req.Phone
	lead.GoogleRating = req.GoogleRating
	lead.GoogleReviewsCount = req.GoogleReviewsCount
	lead.TalkingPointsText = req.TalkingPointsText

	if err := h.repo.Create(r.Context(), lead); err != nil {
		h.logger.Error("Failed to create lead", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	h.logger.Info("Lead created",
		zap.String("lead_id", lead.ID.String()),
		zap.String("stage", string(lead.PipelineStage)),
	)

	httputil.JSON(w, http.StatusCreated, lead)
}

// Get handles GET /api/v1/leads/{id}
func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := leadID(r)
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "INVALID_ID", "Invalid lead ID format", nil)
		return
	}

	lead, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lead)
}

// List handles GET /api/v1/leads with optional stage, audit_status, tag
// and min_score filters.
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := leadFilter(r)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	pagination := httputil.GetPagination(r, 20, 100)

	leads, total, err := h.repo.List(r.Context(), filter, pagination.PerPage, pagination.Offset)
	if err != nil {
		h.logger.Error("Failed to list leads", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, leads, &httputil.Meta{
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		Total:      total,
		TotalPages: httputil.CalculateTotalPages(total, pagination.PerPage),
	})
}

// Delete handles DELETE /api/v1/leads/{id}
func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := leadID(r)
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "INVALID_ID", "Invalid lead ID format", nil)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	h.logger.Info("Lead deleted", zap.String("lead_id", id.String()))

	httputil.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// UpdateStageRequest is the request body for a manual stage move
type UpdateStageRequest struct {
	Stage domain.PipelineStage `json:"stage"`
}

// UpdateStage handles PUT /api/v1/leads/{id}/stage. Manual moves only;
// audits set the stage through the pipeline engine.
func (h *LeadHandler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	id, err := leadID(r)
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "INVALID_ID", "Invalid lead ID format", nil)
		return
	}

	var req UpdateStageRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	if !req.Stage.IsValid() {
		httputil.ErrorFromDomain(w, domain.ValidationError("stage", "unknown pipeline stage: "+string(req.Stage)))
		return
	}

	if err := h.repo.UpdateStage(r.Context(), id, req.Stage); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	h.logger.Info("Lead stage updated",
		zap.String("lead_id", id.String()),
		zap.String("stage", string(req.Stage)),
	)

	lead, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lead)
}

// VerifyRequest is the request body for confirming the checklist
type VerifyRequest struct {
	Checklist []domain.ChecklistItem `json:"checklist"`
}

// Verify handles POST /api/v1/leads/{id}/verify. A reviewer walked the
// verification checklist and confirms the automated tagging.
func (h *LeadHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, err := leadID(r)
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "INVALID_ID", "Invalid lead ID format", nil)
		return
	}

	var req VerifyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	lead, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	if lead.AuditStatus != domain.AuditStatusCompleted {
		httputil.ErrorFromDomain(w, domain.ValidationError("auditStatus",
			"lead cannot be verified before a completed audit"))
		return
	}

	lead.MarkVerified(req.Checklist)

	if err := h.repo.Update(r.Context(), lead); err != nil {
		h.logger.Error("Failed to verify lead", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	h.logger.Info("Lead verified", zap.String("lead_id", id.String()))

	httputil.JSON(w, http.StatusOK, lead)
}

// Auditable handles GET /api/v1/leads/auditable. It returns the queue a
// batch run would pick up: leads with a website and no audit in flight.
func (h *LeadHandler) Auditable(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			httputil.ErrorFromDomain(w, domain.ValidationError("limit", "limit must be an integer in [1,200]"))
			return
		}
		limit = n
	}

	leads, err := h.repo.ListAuditable(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list auditable leads", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, leads)
}

// TalkingPoints handles GET /api/v1/leads/{id}/talking-points. An
// audited lead returns its generated material; a lead carrying only
// imported notes gets the simpler template built on them.
func (h *LeadHandler) TalkingPoints(w http.ResponseWriter, r *http.Request) {
	id, err := leadID(r)
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "INVALID_ID", "Invalid lead ID format", nil)
		return
	}

	lead, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	if lead.TalkingPoints != nil {
		httputil.JSON(w, http.StatusOK, lead.TalkingPoints)
		return
	}

	tp := artifacts.TalkingPoints(lead.Name, lead.TalkingPointsText, nil,
		domain.UnknownSignals(), domain.TagDaApprofondire, 0)
	httputil.JSON(w, http.StatusOK, tp)
}

// StageCounts handles GET /api/v1/leads/stages
func (h *LeadHandler) StageCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.repo.CountByStage(r.Context())
	if err != nil {
		h.logger.Error("Failed to count leads by stage", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, counts)
}

// leadID extracts and parses the {id} URL parameter.
func leadID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

// leadFilter builds the repository filter from query parameters.
func leadFilter(r *http.Request) (postgres.LeadFilter, error) {
	var filter postgres.LeadFilter
	q := r.URL.Query()

	if stage := q.Get("stage"); stage != "" {
		s := domain.PipelineStage(stage)
		if !s.IsValid() {
			return filter, domain.ValidationError("stage", "unknown pipeline stage: "+stage)
		}
		filter.Stage = s
	}

	if status := q.Get("audit_status"); status != "" {
		s := domain.AuditStatus(status)
		if !s.IsValid() {
			return filter, domain.ValidationError("audit_status", "unknown audit status: "+status)
		}
		filter.AuditStatus = s
	}

	if tag := q.Get("tag"); tag != "" {
		tg := domain.CommercialTag(tag)
		if !tg.IsValid() {
			return filter, domain.ValidationError("tag", "unknown commercial tag: "+tag)
		}
		filter.Tag = tg
	}

	if minScore := q.Get("min_score"); minScore != "" {
		n, err := strconv.Atoi(minScore)
		if err != nil || n < 0 || n > 100 {
			return filter, domain.ValidationError("min_score", "min_score must be an integer in [0,100]")
		}
		filter.MinScore = &n
	}

	return filter, nil
}
