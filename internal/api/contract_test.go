package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/karalisweb/leadaudit/internal/repository/postgres"
)

// Contract tests validate API responses match the documented schema.

// LeadResponseSchema is the expected lead payload shape
type LeadResponseSchema struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	Website               *string         `json:"website"`
	AuditStatus           string          `json:"auditStatus"`
	OpportunityScore      *int            `json:"opportunityScore"`
	CommercialTag         *string         `json:"commercialTag"`
	IsCallable            bool            `json:"isCallable"`
	AuditData             json.RawMessage `json:"auditData"`
	CommercialSignals     json.RawMessage `json:"commercialSignals"`
	TalkingPoints         json.RawMessage `json:"talkingPoints"`
	PipelineStage         string          `json:"pipelineStage"`
	VerificationChecklist json.RawMessage `json:"verificationChecklist"`
	Verified              bool            `json:"verified"`
	CreatedAt             string          `json:"created_at"`
	UpdatedAt             string          `json:"updated_at"`
}

// StepEventSchema is the expected audit step event shape
type StepEventSchema struct {
	Step       string         `json:"step"`
	Status     string         `json:"status"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt string         `json:"occurredAt"`
}

// APIResponseSchema represents the standard API response wrapper
type APIResponseSchema struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *APIErrorSchema `json:"error,omitempty"`
	Meta    *APIMetaSchema  `json:"meta,omitempty"`
}

// APIErrorSchema represents the error response schema
type APIErrorSchema struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// APIMetaSchema represents pagination metadata
type APIMetaSchema struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func contractRouter(t *testing.T) *Router {
	t.Helper()
	return NewRouter(RouterConfig{
		Repos:   postgres.NewRepositories(nil),
		Auditor: mustAuditor(t),
		Logger:  zap.NewNop(),
	})
}

func TestContract_HealthResponse(t *testing.T) {
	router := contractRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp APIResponseSchema
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)

	var health struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "leadaudit-api", health.Service)
}

func TestContract_ErrorEnvelope(t *testing.T) {
	router := contractRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/leads/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp APIResponseSchema
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.NotEmpty(t, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Message)
}

func TestContract_ValidationErrorDetails(t *testing.T) {
	router := contractRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp APIResponseSchema
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestContract_ContentType(t *testing.T) {
	router := contractRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
