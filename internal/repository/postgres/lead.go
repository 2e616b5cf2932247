package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/karalisweb/leadaudit/internal/domain"
)

// LeadRepository persists leads in PostgreSQL. The audit payload columns
// are JSONB and always written together, matching the atomic replacement
// semantics of ApplyAuditResult.
type LeadRepository struct {
	db *sqlx.DB
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *sqlx.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// leadRow represents the database row structure
type leadRow struct {
	ID                 uuid.UUID  `db:"id"`
	Name               string     `db:"name"`
	Address            *string    `db:"address"`
	Phone              *string    `db:"phone"`
	Website            *string    `db:"website"`
	GoogleRating       *float64   `db:"google_rating"`
	GoogleReviewsCount *int       `db:"google_reviews_count"`
	AuditStatus        string     `db:"audit_status"`
	AuditFailReason    *string    `db:"audit_fail_reason"`
	OpportunityScore   *int       `db:"opportunity_score"`
	CommercialTag      *string    `db:"commercial_tag"`
	CommercialReason   *string    `db:"commercial_tag_reason"`
	CommercialPriority *int       `db:"commercial_priority"`
	IsCallable         bool       `db:"is_callable"`
	AuditData          []byte     `db:"audit_data"`
	CommercialSignals  []byte     `db:"commercial_signals"`
	TalkingPoints      []byte     `db:"talking_points"`
	TalkingPointsText  *string    `db:"talking_points_text"`
	PipelineStage      string     `db:"pipeline_stage"`
	Checklist          []byte     `db:"verification_checklist"`
	Verified           bool       `db:"verified"`
	VerifiedAt         *time.Time `db:"verified_at"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

const leadColumns = `
	id, name, address, phone, website, google_rating, google_reviews_count,
	audit_status, audit_fail_reason, opportunity_score,
	commercial_tag, commercial_tag_reason, commercial_priority, is_callable,
	audit_data, commercial_signals, talking_points, talking_points_text,
	pipeline_stage, verification_checklist, verified, verified_at,
	created_at, updated_at`

func (r *leadRow) toDomain() (*domain.Lead, error) {
	lead := &domain.Lead{
		ID:                 r.ID,
		Name:               r.Name,
		Website:            r.Website,
		GoogleRating:       r.GoogleRating,
		GoogleReviewsCount: r.GoogleReviewsCount,
		AuditStatus:        domain.AuditStatus(r.AuditStatus),
		OpportunityScore:   r.OpportunityScore,
		CommercialPriority: r.CommercialPriority,
		IsCallable:         r.IsCallable,
		PipelineStage:      domain.PipelineStage(r.PipelineStage),
		Verified:           r.Verified,
		VerifiedAt:         r.VerifiedAt,
		Timestamps: domain.Timestamps{
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
	}

	if r.Address != nil {
		lead.Address = *r.Address
	}
	if r.Phone != nil {
		lead.Phone = *r.Phone
	}
	if r.AuditFailReason != nil {
		lead.AuditFailReason = *r.AuditFailReason
	}
	if r.CommercialTag != nil {
		tag := domain.CommercialTag(*r.CommercialTag)
		lead.CommercialTag = &tag
	}
	if r.CommercialReason != nil {
		lead.CommercialTagReason = *r.CommercialReason
	}
	if r.TalkingPointsText != nil {
		lead.TalkingPointsText = *r.TalkingPointsText
	}

	if r.AuditData != nil {
		var data domain.AuditData
		if err := json.Unmarshal(r.AuditData, &data); err != nil {
			return nil, err
		}
		lead.AuditData = &data
	}

	if r.CommercialSignals != nil {
		var sig domain.CommercialSignals
		if err := json.Unmarshal(r.CommercialSignals, &sig); err != nil {
			return nil, err
		}
		lead.CommercialSignals = &sig
	}

	if r.TalkingPoints != nil {
		var tp domain.TalkingPoints
		if err := json.Unmarshal(r.TalkingPoints, &tp); err != nil {
			return nil, err
		}
		lead.TalkingPoints = &tp
	}

	if r.Checklist != nil {
		var items []domain.ChecklistItem
		if err := json.Unmarshal(r.Checklist, &items); err != nil {
			return nil, err
		}
		lead.VerificationChecklist = items
	}

	return lead, nil
}

// jsonbArgs marshals the JSONB payload fields, passing NULL for absent ones.
func jsonbArgs(lead *domain.Lead) (auditData, signals, talkingPoints, checklist interface{}, err error) {
	if lead.AuditData != nil {
		if auditData, err = json.Marshal(lead.AuditData); err != nil {
			return
		}
	}
	if lead.CommercialSignals != nil {
		if signals, err = json.Marshal(lead.CommercialSignals); err != nil {
			return
		}
	}
	if lead.TalkingPoints != nil {
		if talkingPoints, err = json.Marshal(lead.TalkingPoints); err != nil {
			return
		}
	}
	if lead.VerificationChecklist != nil {
		if checklist, err = json.Marshal(lead.VerificationChecklist); err != nil {
			return
		}
	}
	return
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Create inserts a new lead
func (r *LeadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	auditData, signals, talkingPoints, checklist, err := jsonbArgs(lead)
	if err != nil {
		return err
	}

	var tag *string
	if lead.CommercialTag != nil {
		s := string(*lead.CommercialTag)
		tag = &s
	}

	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`

	_, err = r.db.ExecContext(ctx, query,
		lead.ID,
		lead.Name,
		nullable(lead.Address),
		nullable(lead.Phone),
		lead.Website,
		lead.GoogleRating,
		lead.GoogleReviewsCount,
		string(lead.AuditStatus),
		nullable(lead.AuditFailReason),
		lead.OpportunityScore,
		tag,
		nullable(lead.CommercialTagReason),
		lead.CommercialPriority,
		lead.IsCallable,
		auditData,
		signals,
		talkingPoints,
		nullable(lead.TalkingPointsText),
		string(lead.PipelineStage),
		checklist,
		lead.Verified,
		lead.VerifiedAt,
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.DomainError{
				Code:    domain.ErrCodeConflict,
				Message: "lead already exists",
				Details: map[string]any{"id": lead.ID.String()},
				Err:     domain.ErrConflictVal,
			}
		}
		return err
	}

	return nil
}

// GetByID retrieves a lead by ID
func (r *LeadRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

	var row leadRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError("lead", id)
		}
		return nil, err
	}

	return row.toDomain()
}

// Update replaces all mutable lead fields
func (r *LeadRepository) Update(ctx context.Context, lead *domain.Lead) error {
	auditData, signals, talkingPoints, checklist, err := jsonbArgs(lead)
	if err != nil {
		return err
	}

	var tag *string
	if lead.CommercialTag != nil {
		s := string(*lead.CommercialTag)
		tag = &s
	}

	query := `
		UPDATE leads
		SET website = $2, audit_status = $3, audit_fail_reason = $4,
		    opportunity_score = $5, commercial_tag = $6, commercial_tag_reason = $7,
		    commercial_priority = $8, is_callable = $9,
		    audit_data = $10, commercial_signals = $11, talking_points = $12,
		    talking_points_text = $13, pipeline_stage = $14,
		    verification_checklist = $15, verified = $16, verified_at = $17,
		    updated_at = $18
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		lead.ID,
		lead.Website,
		string(lead.AuditStatus),
		nullable(lead.AuditFailReason),
		lead.OpportunityScore,
		tag,
		nullable(lead.CommercialTagReason),
		lead.CommercialPriority,
		lead.IsCallable,
		auditData,
		signals,
		talkingPoints,
		nullable(lead.TalkingPointsText),
		string(lead.PipelineStage),
		checklist,
		lead.Verified,
		lead.VerifiedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NotFoundError("lead", lead.ID)
	}

	return nil
}

// LeadFilter narrows List results. Zero values mean no filtering.
type LeadFilter struct {
	Stage       domain.PipelineStage
	AuditStatus domain.AuditStatus
	Tag         domain.CommercialTag
	MinScore    *int
}

// List retrieves paginated leads matching the filter, newest first.
func (r *LeadRepository) List(ctx context.Context, filter LeadFilter, limit, offset int) ([]*domain.Lead, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}

	addArg := func(clause string, v interface{}) {
		args = append(args, v)
		where += clause
	}

	if filter.Stage != "" {
		addArg(` AND pipeline_stage = $`+strconv.Itoa(len(args)+1), string(filter.Stage))
	}
	if filter.AuditStatus != "" {
		addArg(` AND audit_status = $`+strconv.Itoa(len(args)+1), string(filter.AuditStatus))
	}
	if filter.Tag != "" {
		addArg(` AND commercial_tag = $`+strconv.Itoa(len(args)+1), string(filter.Tag))
	}
	if filter.MinScore != nil {
		addArg(` AND opportunity_score >= $`+strconv.Itoa(len(args)+1), *filter.MinScore)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM leads`+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + leadColumns + ` FROM leads` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	var rows []leadRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}

	leads := make([]*domain.Lead, len(rows))
	for i, row := range rows {
		lead, err := row.toDomain()
		if err != nil {
			return nil, 0, err
		}
		leads[i] = lead
	}

	return leads, total, nil
}

// ListAuditable returns leads a batch run may audit: they have a website
// and are not currently RUNNING.
func (r *LeadRepository) ListAuditable(ctx context.Context, limit int) ([]*domain.Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE website IS NOT NULL
		  AND audit_status IN ('pending', 'completed', 'failed')
		ORDER BY updated_at ASC
		LIMIT $1
	`

	var rows []leadRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, err
	}

	leads := make([]*domain.Lead, len(rows))
	for i, row := range rows {
		lead, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		leads[i] = lead
	}

	return leads, nil
}

// UpdateStage moves a lead to a manually chosen pipeline stage.
func (r *LeadRepository) UpdateStage(ctx context.Context, id uuid.UUID, stage domain.PipelineStage) error {
	query := `UPDATE leads SET pipeline_stage = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, string(stage), time.Now().UTC())
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NotFoundError("lead", id)
	}

	return nil
}

// Delete removes a lead
func (r *LeadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NotFoundError("lead", id)
	}

	return nil
}

// CountByStage returns how many leads sit in each pipeline stage.
func (r *LeadRepository) CountByStage(ctx context.Context) (map[domain.PipelineStage]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT pipeline_stage, COUNT(*) FROM leads GROUP BY pipeline_stage`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.PipelineStage]int)
	for rows.Next() {
		var stage string
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, err
		}
		counts[domain.PipelineStage(stage)] = count
	}

	return counts, rows.Err()
}

