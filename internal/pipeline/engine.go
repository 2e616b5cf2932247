// Package pipeline decides sales pipeline stage transitions from audit
// outcomes. Stage assignment is a pure function of the inputs; it never
// touches a lead or a store.
package pipeline

import (
	"github.com/karalisweb/leadaudit/internal/domain"
)

// ValidateThreshold rejects score thresholds outside [0, 100].
func ValidateThreshold(threshold int) error {
	if threshold < 0 || threshold > 100 {
		return domain.ValidationError("scoreThreshold", "must be between 0 and 100")
	}
	return nil
}

// NextStage computes the stage a lead should move to after an audit.
//
// Automatic movement happens only from NEW and only on a completed audit:
// a lead a human has already placed (called, verified, negotiating) is
// never moved by the engine, and a failed or partial audit leaves the
// stage alone. The score rules apply only when a score exists; a lead
// without one stays in NEW unless its tag alone routes it. The caller
// is expected to have validated the threshold.
func NextStage(status domain.AuditStatus, current domain.PipelineStage, tag domain.CommercialTag, score *int, threshold int) domain.PipelineStage {
	if status != domain.AuditStatusCompleted || current != domain.StageNew {
		return current
	}

	switch {
	case tag == domain.TagNonTarget:
		return domain.StageNonTarget
	case tag == domain.TagDaApprofondire:
		return domain.StageDaVerificare
	case score != nil && *score < threshold:
		return domain.StageDaVerificare
	case score != nil && tag.IsCallable():
		return domain.StageDaChiamare
	default:
		return current
	}
}
