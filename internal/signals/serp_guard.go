package signals

import (
	"context"

	"go.uber.org/zap"

	"github.com/karalisweb/leadaudit/internal/resilience"
)

// GuardedSerpChecker wraps a SerpChecker in a circuit breaker. When the
// SERP collaborator degrades, audits keep completing on tag presence
// alone instead of burning the crawl budget on a dead API.
type GuardedSerpChecker struct {
	inner   SerpChecker
	breaker *resilience.Breaker
}

// NewGuardedSerpChecker wraps inner with default breaker settings.
// State transitions are logged so operators can see the collaborator
// flapping.
func NewGuardedSerpChecker(inner SerpChecker, logger *zap.Logger) *GuardedSerpChecker {
	if logger == nil {
		logger = zap.NewNop()
	}

	settings := resilience.DefaultSettings("serp")
	settings.OnStateChange = func(name string, from, to resilience.State) {
		logger.Warn("circuit breaker state change",
			zap.String("collaborator", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	}

	return &GuardedSerpChecker{
		inner:   inner,
		breaker: resilience.New(settings),
	}
}

// PaidListings delegates to the wrapped checker unless the breaker is
// open.
func (g *GuardedSerpChecker) PaidListings(ctx context.Context, siteDomain, brand string) (bool, error) {
	var paid bool
	err := g.breaker.Do(ctx, func(ctx context.Context) error {
		var innerErr error
		paid, innerErr = g.inner.PaidListings(ctx, siteDomain, brand)
		return innerErr
	})
	if err != nil {
		return false, err
	}
	return paid, nil
}
