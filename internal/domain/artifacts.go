package domain

import "time"

// TalkingPoints are generated conversation material for the salesperson.
type TalkingPoints struct {
	MainHook           string   `json:"mainHook"`
	Observations       []string `json:"observations"`
	StrategicQuestions []string `json:"strategicQuestions"`
}

// ChecklistItem is one manual-confirmation entry of the verification
// checklist a reviewer walks before trusting the automated tagging.
type ChecklistItem struct {
	Key string `json:"key"`

	// Label is the short Italian caption shown to the reviewer.
	Label string `json:"label"`

	// DetectedValue is what the engine found; nil when the check could
	// not run and the reviewer starts from nothing.
	DetectedValue *bool `json:"detectedValue"`

	// Hint tells the reviewer how to confirm the detection by hand.
	Hint string `json:"hint"`

	Checked bool `json:"checked"`
}

// AuditResult bundles everything one completed audit produces. It is
// applied to a Lead as a single replacement, never a partial merge.
type AuditResult struct {
	Data          *AuditData        `json:"auditData"`
	Score         int               `json:"opportunityScore"`
	Signals       CommercialSignals `json:"commercialSignals"`
	Tag           CommercialTag     `json:"commercialTag"`
	TagReason     string            `json:"commercialTagReason"`
	Priority      int               `json:"commercialPriority"`
	IsCallable    bool              `json:"isCallable"`
	Stage         PipelineStage     `json:"pipelineStage"`
	TalkingPoints TalkingPoints     `json:"talkingPoints"`
	Checklist     []ChecklistItem   `json:"verificationChecklist"`
	SnapshotURI   string            `json:"snapshotUri,omitempty"`
	CompletedAt   time.Time         `json:"completedAt"`
}
