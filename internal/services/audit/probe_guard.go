package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/karalisweb/leadaudit/internal/resilience"
)

// GuardedProbe wraps a PerformanceProbe in a circuit breaker. When the
// probe keeps failing (browser crash loop, timing endpoint down) the
// breaker fails measurements fast and the performance category reads
// unknown without eating into each audit's crawl budget.
type GuardedProbe struct {
	inner   PerformanceProbe
	breaker *resilience.Breaker
}

// NewGuardedProbe wraps inner with default breaker settings.
func NewGuardedProbe(inner PerformanceProbe, logger *zap.Logger) *GuardedProbe {
	if logger == nil {
		logger = zap.NewNop()
	}

	settings := resilience.DefaultSettings("probe")
	settings.OnStateChange = func(name string, from, to resilience.State) {
		logger.Warn("circuit breaker state change",
			zap.String("collaborator", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	}

	return &GuardedProbe{
		inner:   inner,
		breaker: resilience.New(settings),
	}
}

// Measure delegates to the wrapped probe unless the breaker is open.
func (g *GuardedProbe) Measure(ctx context.Context, pageURL string) (ProbeResult, error) {
	var result ProbeResult
	err := g.breaker.Do(ctx, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = g.inner.Measure(ctx, pageURL)
		return innerErr
	})
	if err != nil {
		return ProbeResult{}, err
	}
	return result, nil
}
