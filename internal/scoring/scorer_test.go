package scoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karalisweb/leadaudit/internal/domain"
)

func newScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(DefaultWeights())
	require.NoError(t, err)
	return s
}

// allKnownFalse returns a snapshot where every check ran and found nothing.
func allKnownFalse() *domain.AuditData {
	data := domain.NewAuditData()
	data.SEO = domain.SEOCheck{
		HasMetaTitle: domain.TriFalse, HasMetaDescription: domain.TriFalse,
		HasH1: domain.TriFalse, HasSitemap: domain.TriFalse,
		HasRobotsTxt: domain.TriFalse, HasSchemaMarkup: domain.TriFalse,
		HasCanonical: domain.TriFalse, HasOpenGraph: domain.TriFalse,
	}
	data.Tracking = domain.TrackingCheck{
		HasGA4: domain.TriFalse, HasGoogleAnalytics: domain.TriFalse,
		HasGTM: domain.TriFalse, HasFacebookPixel: domain.TriFalse,
		HasGoogleAdsTag: domain.TriFalse, HasHotjar: domain.TriFalse,
		HasClarity: domain.TriFalse,
	}
	for _, p := range domain.AllPlatforms() {
		data.Social[p] = domain.SocialPresence{LinkedFromSite: domain.TriFalse}
	}
	data.Trust = domain.TrustCheck{
		HasCookieBanner: domain.TriFalse, HasPrivacyPolicy: domain.TriFalse,
		HasTerms: domain.TriFalse, HasTestimonials: domain.TriFalse,
	}
	data.Website.HasContactForm = domain.TriFalse
	data.Website.HTTPS = domain.TriFalse
	data.Content.HasBlog = domain.TriFalse
	return data
}

// triFields enumerates every boolean check of the snapshot as a settable
// pointer, for property-style flipping.
func triFields(data *domain.AuditData) []*domain.Tri {
	fields := []*domain.Tri{
		&data.SEO.HasMetaTitle, &data.SEO.HasMetaDescription, &data.SEO.HasH1,
		&data.SEO.HasSitemap, &data.SEO.HasRobotsTxt, &data.SEO.HasSchemaMarkup,
		&data.SEO.HasCanonical, &data.SEO.HasOpenGraph,
		&data.Tracking.HasGA4, &data.Tracking.HasGoogleAnalytics, &data.Tracking.HasGTM,
		&data.Tracking.HasFacebookPixel, &data.Tracking.HasGoogleAdsTag,
		&data.Tracking.HasHotjar, &data.Tracking.HasClarity,
		&data.Trust.HasCookieBanner, &data.Trust.HasPrivacyPolicy,
		&data.Trust.HasTerms, &data.Trust.HasTestimonials,
		&data.Website.HasContactForm, &data.Website.HTTPS,
		&data.Content.HasBlog,
	}
	return fields
}

func TestScore_Monotonicity(t *testing.T) {
	scorer := newScorer(t)

	base := allKnownFalse()
	before := scorer.Score(base)

	// Flipping any single check false→true must never lower the score.
	n := len(triFields(base))
	for i := 0; i < n; i++ {
		data := allKnownFalse()
		field := triFields(data)[i]
		*field = domain.TriTrue

		after := scorer.Score(data)
		assert.GreaterOrEqual(t, after, before, "flipping field %d lowered the score", i)
	}

	// Social map flips go through the map, not struct fields.
	for _, p := range domain.AllPlatforms() {
		data := allKnownFalse()
		data.Social[p] = domain.SocialPresence{LinkedFromSite: domain.TriTrue}
		assert.GreaterOrEqual(t, scorer.Score(data), before, "flipping social %s lowered the score", p)
	}
}

func TestScore_Range(t *testing.T) {
	scorer := newScorer(t)

	assert.Equal(t, 0, scorer.Score(allKnownFalse()))

	data := allKnownFalse()
	for _, f := range triFields(data) {
		*f = domain.TriTrue
	}
	for _, p := range domain.AllPlatforms() {
		data.Social[p] = domain.SocialPresence{LinkedFromSite: domain.TriTrue}
	}
	days := 5
	data.Content.DaysSinceLastPost = &days
	perf := 100
	data.Website.Performance = &perf

	assert.Equal(t, 100, scorer.Score(data))
}

func TestScore_AllUnknown(t *testing.T) {
	scorer := newScorer(t)
	// A snapshot where nothing could be checked scores a defined 0.
	assert.Equal(t, 0, scorer.Score(domain.NewAuditData()))
}

func TestScore_FullSEOOnly(t *testing.T) {
	scorer := newScorer(t)

	// All SEO checks pass, everything else checked and absent,
	// performance unknown: the score reflects the SEO category only.
	data := allKnownFalse()
	data.SEO = domain.SEOCheck{
		HasMetaTitle: domain.TriTrue, HasMetaDescription: domain.TriTrue,
		HasH1: domain.TriTrue, HasSitemap: domain.TriTrue,
		HasRobotsTxt: domain.TriTrue, HasSchemaMarkup: domain.TriTrue,
		HasCanonical: domain.TriTrue, HasOpenGraph: domain.TriTrue,
	}

	b := scorer.SubScores(data)
	require.NotNil(t, b.SEO)
	assert.Equal(t, 100, *b.SEO)
	assert.Nil(t, b.Performance, "unknown probe must exclude the performance category")

	// SEO weighs 25 of the 85 renormalized points (performance excluded).
	assert.Equal(t, 29, scorer.Score(data))
}

func TestScore_UnknownExcludedFromDenominator(t *testing.T) {
	scorer := newScorer(t)

	// Four SEO checks pass, four could not run: the SEO sub-score is
	// 100%, not 50%.
	data := domain.NewAuditData()
	data.SEO.HasMetaTitle = domain.TriTrue
	data.SEO.HasMetaDescription = domain.TriTrue
	data.SEO.HasH1 = domain.TriTrue
	data.SEO.HasOpenGraph = domain.TriTrue

	b := scorer.SubScores(data)
	require.NotNil(t, b.SEO)
	assert.Equal(t, 100, *b.SEO)
}

func TestContentScore_Tiers(t *testing.T) {
	scorer := newScorer(t)

	tiers := []struct {
		days int
		want int
	}{
		{10, 100},
		{29, 100},
		{30, 60},
		{89, 60},
		{90, 30},
		{179, 30},
		{180, 10},
		{900, 10},
	}

	for _, tt := range tiers {
		data := domain.NewAuditData()
		data.Content.HasBlog = domain.TriTrue
		days := tt.days
		data.Content.DaysSinceLastPost = &days

		b := scorer.SubScores(data)
		require.NotNil(t, b.Content)
		assert.Equal(t, tt.want, *b.Content, "days=%d", tt.days)
	}

	// No blog at all scores 0; blog with unreadable dates lands in the
	// lowest tier.
	data := domain.NewAuditData()
	data.Content.HasBlog = domain.TriFalse
	b := scorer.SubScores(data)
	require.NotNil(t, b.Content)
	assert.Equal(t, 0, *b.Content)

	data.Content.HasBlog = domain.TriTrue
	data.Content.DaysSinceLastPost = nil
	b = scorer.SubScores(data)
	assert.Equal(t, 10, *b.Content)
}

func TestWeights_Validate(t *testing.T) {
	require.NoError(t, DefaultWeights().Validate())

	w := DefaultWeights()
	w.SEO = 30
	assert.Error(t, w.Validate(), "weights not summing to 100 must be rejected")

	w = Weights{SEO: 110, Tracking: -10}
	assert.Error(t, w.Validate())
}

func TestLoadWeights(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seo: 40\ntracking: 20\nsocial: 10\ntrust: 10\ncontent: 10\nperformance: 10\n"), 0o644))

	w, err := LoadWeights(path)
	require.NoError(t, err)
	assert.Equal(t, 40, w.SEO)

	_, err = LoadWeights(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
