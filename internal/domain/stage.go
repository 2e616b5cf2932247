package domain

// PipelineStage is the lead's position in the sales workflow.
type PipelineStage string

const (
	// StageNew: imported, waiting for the audit engine to place it.
	StageNew PipelineStage = "NEW"

	// StageDaChiamare: in the active calling queue.
	StageDaChiamare PipelineStage = "DA_CHIAMARE"

	// StageDaVerificare: needs manual verification before calling.
	StageDaVerificare PipelineStage = "DA_VERIFICARE"

	// StageNonTarget: classified out of the pipeline.
	StageNonTarget PipelineStage = "NON_TARGET"

	// StageSenzaSito: no website, dead archive.
	StageSenzaSito PipelineStage = "SENZA_SITO"

	// Stages below are reached only by human action, never by the engine.

	// StageInTrattativa: negotiation opened by a salesperson.
	StageInTrattativa PipelineStage = "IN_TRATTATIVA"

	// StageChiuso: deal closed (won or lost), terminal.
	StageChiuso PipelineStage = "CHIUSO"
)

func (s PipelineStage) IsValid() bool {
	switch s {
	case StageNew, StageDaChiamare, StageDaVerificare, StageNonTarget,
		StageSenzaSito, StageInTrattativa, StageChiuso:
		return true
	}
	return false
}

// IsManual reports whether the stage can only be set by a human.
func (s PipelineStage) IsManual() bool {
	return s == StageInTrattativa || s == StageChiuso
}

// IsTerminal reports whether the lead can never advance further.
func (s PipelineStage) IsTerminal() bool {
	return s == StageChiuso || s == StageSenzaSito
}
