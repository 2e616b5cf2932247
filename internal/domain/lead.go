package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditStatus is the lifecycle state of a lead's audit execution.
type AuditStatus string

const (
	AuditStatusPending   AuditStatus = "pending"
	AuditStatusRunning   AuditStatus = "running"
	AuditStatusCompleted AuditStatus = "completed"
	AuditStatusFailed    AuditStatus = "failed"
	AuditStatusNoWebsite AuditStatus = "no_website"
)

func (s AuditStatus) IsValid() bool {
	switch s {
	case AuditStatusPending, AuditStatusRunning, AuditStatusCompleted,
		AuditStatusFailed, AuditStatusNoWebsite:
		return true
	}
	return false
}

// Auditable reports whether a new audit may start from this status.
// RUNNING is excluded: at most one audit per lead at a time.
func (s AuditStatus) Auditable() bool {
	switch s {
	case AuditStatusPending, AuditStatusCompleted, AuditStatusFailed:
		return true
	}
	return false
}

// Timestamps provides common time fields.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SetTimestamps sets CreatedAt and UpdatedAt to current time.
func (t *Timestamps) SetTimestamps() {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
}

// Touch refreshes UpdatedAt.
func (t *Timestamps) Touch() {
	t.UpdatedAt = time.Now().UTC()
}

// Lead is the aggregate the audit engine reads and writes. Name, address,
// phone and the Google metadata come from the external import collaborator
// and are never modified here.
type Lead struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"address,omitempty"`
	Phone   string    `json:"phone,omitempty"`

	// Website is nil when the import found none; such leads are archived
	// in SENZA_SITO and never audited.
	Website            *string  `json:"website"`
	GoogleRating       *float64 `json:"googleRating"`
	GoogleReviewsCount *int     `json:"googleReviewsCount"`

	AuditStatus      AuditStatus `json:"auditStatus"`
	AuditFailReason  string      `json:"auditFailReason,omitempty"`
	OpportunityScore *int        `json:"opportunityScore"`

	CommercialTag       *CommercialTag     `json:"commercialTag"`
	CommercialTagReason string             `json:"commercialTagReason,omitempty"`
	CommercialPriority  *int               `json:"commercialPriority"`
	IsCallable          bool               `json:"isCallable"`
	AuditData           *AuditData         `json:"auditData"`
	CommercialSignals   *CommercialSignals `json:"commercialSignals"`

	TalkingPoints *TalkingPoints `json:"talkingPoints"`
	// TalkingPointsText carries free-form notes from legacy imports that
	// predate structured talking points.
	TalkingPointsText string `json:"talkingPointsText,omitempty"`

	PipelineStage PipelineStage `json:"pipelineStage"`

	VerificationChecklist []ChecklistItem `json:"verificationChecklist"`
	Verified              bool            `json:"verified"`
	VerifiedAt            *time.Time      `json:"verifiedAt"`

	Timestamps
}

// NewLead creates a lead in PENDING, or in NO_WEBSITE/SENZA_SITO when the
// import yielded no URL.
func NewLead(name string, website *string) *Lead {
	lead := &Lead{
		ID:            uuid.New(),
		Name:          name,
		Website:       website,
		AuditStatus:   AuditStatusPending,
		PipelineStage: StageNew,
	}
	if website == nil || *website == "" {
		lead.Website = nil
		lead.AuditStatus = AuditStatusNoWebsite
		lead.PipelineStage = StageSenzaSito
	}
	lead.SetTimestamps()
	return lead
}

// StartAudit transitions the lead to RUNNING. Rejected when no website
// exists or an audit is already in flight.
func (l *Lead) StartAudit() error {
	if l.Website == nil {
		return ValidationError("website", "lead has no website to audit")
	}
	if l.AuditStatus == AuditStatusRunning {
		return AuditInProgressError(l.ID)
	}
	if !l.AuditStatus.Auditable() {
		return ValidationError("auditStatus", "lead cannot be audited from status "+string(l.AuditStatus))
	}
	l.AuditStatus = AuditStatusRunning
	l.AuditFailReason = ""
	l.Touch()
	return nil
}

// ApplyAuditResult replaces the whole audit payload atomically: snapshot,
// score, signals, tag, artifacts and stage all come from the same run.
func (l *Lead) ApplyAuditResult(res *AuditResult) {
	score := res.Score
	tag := res.Tag
	priority := res.Priority

	l.AuditStatus = AuditStatusCompleted
	l.AuditFailReason = ""
	l.OpportunityScore = &score
	l.CommercialTag = &tag
	l.CommercialTagReason = res.TagReason
	l.CommercialPriority = &priority
	l.IsCallable = res.IsCallable
	l.AuditData = res.Data
	sig := res.Signals
	l.CommercialSignals = &sig
	tp := res.TalkingPoints
	l.TalkingPoints = &tp
	l.VerificationChecklist = res.Checklist
	l.Verified = false
	l.VerifiedAt = nil
	l.PipelineStage = res.Stage
	l.Touch()
}

// FailAudit marks the audit FAILED with a reason. No partial audit data
// is retained; the lead stays retryable on demand.
func (l *Lead) FailAudit(reason string) {
	l.AuditStatus = AuditStatusFailed
	l.AuditFailReason = reason
	l.Touch()
}

// MarkVerified records that a human confirmed the checklist.
func (l *Lead) MarkVerified(checklist []ChecklistItem) {
	now := time.Now().UTC()
	l.VerificationChecklist = checklist
	l.Verified = true
	l.VerifiedAt = &now
	l.Touch()
}
