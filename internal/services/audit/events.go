package audit

import (
	"sync"
	"time"
)

// Audit step names, emitted in execution order.
const (
	StepFetchHome    = "fetch_home"
	StepCrawlPages   = "crawl_pages"
	StepPerformance  = "performance"
	StepScoring      = "scoring"
	StepSignals      = "signals"
	StepClassify     = "classify"
	StepArtifacts    = "artifacts"
	StepSnapshot     = "snapshot"
	StepComplete     = "complete"
)

// Step event statuses.
const (
	StepPending = "pending"
	StepRunning = "running"
	StepDone    = "done"
	StepError   = "error"
)

// StepEvent is one progress notification of a running audit. Events are
// recorded in order and can be replayed to late subscribers.
type StepEvent struct {
	Step       string         `json:"step"`
	Status     string         `json:"status"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// Recorder accumulates the step events of a single audit run and fans them
// out to an optional observer. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	events   []StepEvent
	observer func(StepEvent)
}

// NewRecorder creates an event recorder. observer may be nil.
func NewRecorder(observer func(StepEvent)) *Recorder {
	return &Recorder{observer: observer}
}

// Emit records an event and notifies the observer. The observer runs under
// the recorder lock, so it must not call back into the recorder.
func (r *Recorder) Emit(step, status string, data map[string]any) {
	ev := StepEvent{
		Step:       step,
		Status:     status,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if r.observer != nil {
		r.observer(ev)
	}
}

// Events returns a copy of everything recorded so far, in emission order.
func (r *Recorder) Events() []StepEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StepEvent, len(r.events))
	copy(out, r.events)
	return out
}
