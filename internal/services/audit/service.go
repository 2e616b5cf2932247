// Package audit orchestrates one full website audit: crawl, score,
// signal detection, classification, artifact generation and the pipeline
// stage decision, applied to the lead as a single atomic result.
package audit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/karalisweb/leadaudit/internal/artifacts"
	"github.com/karalisweb/leadaudit/internal/classify"
	"github.com/karalisweb/leadaudit/internal/config"
	"github.com/karalisweb/leadaudit/internal/domain"
	"github.com/karalisweb/leadaudit/internal/observability"
	"github.com/karalisweb/leadaudit/internal/pipeline"
	"github.com/karalisweb/leadaudit/internal/scoring"
	"github.com/karalisweb/leadaudit/internal/signals"
)

// LeadStore is the persistence surface the auditor needs.
type LeadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
	Update(ctx context.Context, lead *domain.Lead) error
}

// Locker serializes audits per lead across processes. Acquire returns
// false when another process already holds the lead.
type Locker interface {
	Acquire(ctx context.Context, leadID uuid.UUID) (bool, error)
	Release(ctx context.Context, leadID uuid.UUID) error
}

// Snapshots archives the fetched home page HTML for later review.
type Snapshots interface {
	Store(ctx context.Context, leadID uuid.UUID, html string, fetchedAt time.Time) (string, error)
}

// Options tune a single audit invocation.
type Options struct {
	// SkipSerp bypasses the costed SERP corroboration for this run.
	SkipSerp bool
	// Observer receives step events as they happen. May be nil.
	Observer func(StepEvent)
}

// Auditor runs audits. Safe for concurrent use; concurrent runs for the
// same lead are rejected, concurrent runs for different leads proceed.
type Auditor struct {
	store     LeadStore
	locker    Locker
	snapshots Snapshots
	crawler   *Crawler
	probe     PerformanceProbe
	scorer    *scoring.Scorer
	detector  *signals.Detector
	cfg       config.AuditConfig
	metrics   *observability.Metrics
	logger    *zap.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

// NewAuditor wires the audit pipeline. snapshots and probe may be nil;
// the corresponding steps degrade to unknowns.
func NewAuditor(
	store LeadStore,
	locker Locker,
	snapshots Snapshots,
	probe PerformanceProbe,
	scorer *scoring.Scorer,
	detector *signals.Detector,
	cfg config.AuditConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*Auditor, error) {
	if err := pipeline.ValidateThreshold(cfg.ScoreThreshold); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NoopLocker{}
	}

	crawler := NewCrawler(CrawlerConfig{
		RequestTimeout:    cfg.RequestTimeout,
		MaxRetries:        cfg.MaxRetries,
		RequestsPerSecond: cfg.RequestsPerSecond,
		UserAgent:         cfg.UserAgent,
	}, logger)

	return &Auditor{
		store:     store,
		locker:    locker,
		snapshots: snapshots,
		crawler:   crawler,
		probe:     probe,
		scorer:    scorer,
		detector:  detector,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
		inFlight:  make(map[uuid.UUID]struct{}),
	}, nil
}

// AuditLead runs a complete audit for one lead and returns the recorded
// step events. The lead ends in COMPLETED or FAILED; a cancelled run is
// marked FAILED explicitly, never left RUNNING.
func (a *Auditor) AuditLead(ctx context.Context, leadID uuid.UUID, opts Options) ([]StepEvent, error) {
	rec := NewRecorder(opts.Observer)

	lead, err := a.store.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	// A malformed stored URL is a rejected invocation, not a failed
	// audit: validate before any state change.
	var siteURL string
	if lead.Website != nil {
		siteURL, err = NormalizeURL(*lead.Website)
		if err != nil {
			return nil, err
		}
	}

	release, err := a.acquire(ctx, leadID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := lead.StartAudit(); err != nil {
		return nil, err
	}
	if err := a.store.Update(ctx, lead); err != nil {
		return nil, err
	}

	if a.metrics != nil {
		a.metrics.AuditsActive.Inc()
		defer a.metrics.AuditsActive.Dec()
	}

	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, a.cfg.CrawlBudget)
	defer cancel()

	result, err := a.run(runCtx, lead, siteURL, rec, opts)
	if err != nil {
		reason := failReason(err)
		rec.Emit(StepComplete, StepError, map[string]any{"reason": reason})
		lead.FailAudit(reason)
		if uerr := a.store.Update(context.WithoutCancel(ctx), lead); uerr != nil {
			a.logger.Error("persisting failed audit", zap.String("lead_id", leadID.String()), zap.Error(uerr))
		}
		if a.metrics != nil {
			a.metrics.RecordAudit("failed", time.Since(start))
		}
		a.logger.Warn("audit failed",
			zap.String("lead_id", leadID.String()),
			zap.String("reason", reason),
			zap.Error(err))
		return rec.Events(), err
	}

	from := lead.PipelineStage
	lead.ApplyAuditResult(result)
	if err := a.store.Update(ctx, lead); err != nil {
		return rec.Events(), err
	}

	if a.metrics != nil {
		a.metrics.RecordAudit("completed", time.Since(start))
		a.metrics.RecordScore(result.Score)
		a.metrics.RecordTag(string(result.Tag))
		if from != result.Stage {
			a.metrics.RecordStageTransition(string(from), string(result.Stage))
		}
	}

	rec.Emit(StepComplete, StepDone, map[string]any{
		"score": result.Score,
		"tag":   string(result.Tag),
		"stage": string(result.Stage),
	})

	a.logger.Info("audit completed",
		zap.String("lead_id", leadID.String()),
		zap.Int("score", result.Score),
		zap.String("tag", string(result.Tag)),
		zap.String("stage", string(result.Stage)),
		zap.Duration("elapsed", time.Since(start)))

	return rec.Events(), nil
}

// run executes the audit steps against a lead already marked RUNNING,
// fetching the normalized siteURL.
func (a *Auditor) run(ctx context.Context, lead *domain.Lead, siteURL string, rec *Recorder, opts Options) (*domain.AuditResult, error) {
	rec.Emit(StepFetchHome, StepRunning, map[string]any{"url": siteURL})
	crawl, err := a.crawler.Crawl(ctx, siteURL)
	if err != nil {
		rec.Emit(StepFetchHome, StepError, nil)
		return nil, err
	}
	rec.Emit(StepFetchHome, StepDone, nil)
	rec.Emit(StepCrawlPages, StepDone, map[string]any{"issues": len(crawl.Data.Issues)})

	a.probePerformance(ctx, crawl, rec)

	rec.Emit(StepScoring, StepRunning, nil)
	score := a.scorer.Score(crawl.Data)
	rec.Emit(StepScoring, StepDone, map[string]any{"score": score})

	rec.Emit(StepSignals, StepRunning, nil)
	sig := a.detector.Detect(ctx, crawl.HomeHTML, crawl.Data,
		hostOf(crawl.FinalURL), lead.Name, opts.SkipSerp || a.cfg.SkipSerp)
	rec.Emit(StepSignals, StepDone, nil)

	cls := classify.Classify(sig, score)
	rec.Emit(StepClassify, StepDone, map[string]any{"tag": string(cls.Tag)})

	stage := pipeline.NextStage(domain.AuditStatusCompleted, lead.PipelineStage, cls.Tag, &score, a.cfg.ScoreThreshold)

	tp := artifacts.TalkingPoints(lead.Name, lead.TalkingPointsText, crawl.Data, sig, cls.Tag, score)
	checklist := artifacts.Checklist(crawl.Data)
	rec.Emit(StepArtifacts, StepDone, nil)

	snapshotURI := a.storeSnapshot(ctx, lead.ID, crawl, rec)

	return &domain.AuditResult{
		Data:          crawl.Data,
		Score:         score,
		Signals:       sig,
		Tag:           cls.Tag,
		TagReason:     cls.Reason,
		Priority:      cls.Priority,
		IsCallable:    cls.IsCallable,
		Stage:         stage,
		TalkingPoints: tp,
		Checklist:     checklist,
		SnapshotURI:   snapshotURI,
		CompletedAt:   time.Now().UTC(),
	}, nil
}

// probePerformance fills the performance fields. Probe failure is an
// issue, not an audit failure.
func (a *Auditor) probePerformance(ctx context.Context, crawl *CrawlResult, rec *Recorder) {
	if a.probe == nil {
		rec.Emit(StepPerformance, StepDone, map[string]any{"skipped": true})
		return
	}

	rec.Emit(StepPerformance, StepRunning, nil)
	res, err := a.probe.Measure(ctx, crawl.FinalURL)
	if err != nil {
		if a.metrics != nil {
			a.metrics.ProbeFailuresTotal.Inc()
		}
		a.logger.Warn("performance probe failed", zap.String("url", crawl.FinalURL), zap.Error(err))
		crawl.Data.AddIssue("Misurazione delle prestazioni non disponibile")
		rec.Emit(StepPerformance, StepError, nil)
		return
	}

	perf := res.Score
	crawl.Data.Website.Performance = &perf
	crawl.Data.Website.LoadTimeSeconds = res.LoadTime.Seconds()
	rec.Emit(StepPerformance, StepDone, map[string]any{"score": perf})
}

func (a *Auditor) storeSnapshot(ctx context.Context, leadID uuid.UUID, crawl *CrawlResult, rec *Recorder) string {
	if a.snapshots == nil || crawl.HomeHTML == "" {
		return ""
	}
	uri, err := a.snapshots.Store(ctx, leadID, crawl.HomeHTML, crawl.Data.FetchedAt)
	if err != nil {
		a.logger.Warn("archiving snapshot failed", zap.String("lead_id", leadID.String()), zap.Error(err))
		rec.Emit(StepSnapshot, StepError, nil)
		return ""
	}
	if a.metrics != nil {
		a.metrics.SnapshotsStored.Inc()
	}
	rec.Emit(StepSnapshot, StepDone, map[string]any{"uri": uri})
	return uri
}

// acquire takes both the in-process guard and the distributed lock.
func (a *Auditor) acquire(ctx context.Context, leadID uuid.UUID) (func(), error) {
	a.mu.Lock()
	if _, busy := a.inFlight[leadID]; busy {
		a.mu.Unlock()
		return nil, domain.AuditInProgressError(leadID)
	}
	a.inFlight[leadID] = struct{}{}
	a.mu.Unlock()

	releaseLocal := func() {
		a.mu.Lock()
		delete(a.inFlight, leadID)
		a.mu.Unlock()
	}

	ok, err := a.locker.Acquire(ctx, leadID)
	if err != nil {
		releaseLocal()
		return nil, err
	}
	if !ok {
		releaseLocal()
		return nil, domain.AuditInProgressError(leadID)
	}

	return func() {
		if err := a.locker.Release(context.WithoutCancel(ctx), leadID); err != nil {
			a.logger.Warn("releasing audit lock", zap.String("lead_id", leadID.String()), zap.Error(err))
		}
		releaseLocal()
	}, nil
}

func failReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "tempo massimo di audit superato"
	case errors.Is(err, context.Canceled):
		return "audit annullato"
	case domain.IsSentinelError(err, domain.ErrUnreachableVal):
		return "sito non raggiungibile"
	default:
		return fmt.Sprintf("errore durante l'audit: %v", err)
	}
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}
