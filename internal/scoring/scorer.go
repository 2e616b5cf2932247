// Package scoring reduces an audit snapshot to the deterministic 0-100
// opportunity score. Every category sub-score is the share of passed checks
// among the checks that actually ran; unknown checks drop out of the
// denominator instead of counting as failures.
package scoring

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/karalisweb/leadaudit/internal/domain"
)

// Weights holds the fixed percentage weight of each category in the
// composite score. Must sum to 100.
type Weights struct {
	SEO         int `yaml:"seo"`
	Tracking    int `yaml:"tracking"`
	Social      int `yaml:"social"`
	Trust       int `yaml:"trust"`
	Content     int `yaml:"content"`
	Performance int `yaml:"performance"`
}

// DefaultWeights returns the documented production weighting.
func DefaultWeights() Weights {
	return Weights{
		SEO:         25,
		Tracking:    20,
		Social:      10,
		Trust:       15,
		Content:     15,
		Performance: 15,
	}
}

// Validate rejects negative weights and any total other than 100.
func (w Weights) Validate() error {
	for name, v := range map[string]int{
		"seo": w.SEO, "tracking": w.Tracking, "social": w.Social,
		"trust": w.Trust, "content": w.Content, "performance": w.Performance,
	} {
		if v < 0 {
			return domain.ValidationError(name, fmt.Sprintf("weight %s must not be negative", name))
		}
	}
	total := w.SEO + w.Tracking + w.Social + w.Trust + w.Content + w.Performance
	if total != 100 {
		return domain.ValidationError("weights", fmt.Sprintf("weights must sum to 100, got %d", total))
	}
	return nil
}

// LoadWeights reads a weights override file.
func LoadWeights(path string) (Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, fmt.Errorf("reading weights file: %w", err)
	}
	var w Weights
	if err := yaml.Unmarshal(data, &w); err != nil {
		return Weights{}, fmt.Errorf("parsing weights file: %w", err)
	}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}

// Breakdown exposes the per-category sub-scores. A nil entry means every
// check in that category was unknown and the category was excluded.
type Breakdown struct {
	SEO         *int `json:"seo"`
	Tracking    *int `json:"tracking"`
	Social      *int `json:"social"`
	Trust       *int `json:"trust"`
	Content     *int `json:"content"`
	Performance *int `json:"performance"`
}

// Scorer computes opportunity scores with a fixed weighting.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer, validating the weights up front.
func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w}, nil
}

// Score returns the composite opportunity score in [0,100]. Categories
// with no executed checks are excluded and the remaining weights
// renormalized; an all-unknown snapshot scores 0.
func (s *Scorer) Score(data *domain.AuditData) int {
	b := s.SubScores(data)

	type part struct {
		score  *int
		weight int
	}
	parts := []part{
		{b.SEO, s.weights.SEO},
		{b.Tracking, s.weights.Tracking},
		{b.Social, s.weights.Social},
		{b.Trust, s.weights.Trust},
		{b.Content, s.weights.Content},
		{b.Performance, s.weights.Performance},
	}

	sum, weightTotal := 0, 0
	for _, p := range parts {
		if p.score == nil {
			continue
		}
		sum += *p.score * p.weight
		weightTotal += p.weight
	}
	if weightTotal == 0 {
		return 0
	}

	score := int(math.Round(float64(sum) / float64(weightTotal)))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// SubScores computes the per-category sub-scores.
func (s *Scorer) SubScores(data *domain.AuditData) Breakdown {
	return Breakdown{
		SEO:         ratioScore(seoChecks(data.SEO)),
		Tracking:    ratioScore(trackingChecks(data.Tracking)),
		Social:      ratioScore(socialChecks(data.Social)),
		Trust:       ratioScore(trustChecks(data)),
		Content:     contentScore(data.Content),
		Performance: performanceScore(data.Website),
	}
}

func seoChecks(c domain.SEOCheck) []domain.Tri {
	return []domain.Tri{
		c.HasMetaTitle, c.HasMetaDescription, c.HasH1, c.HasSitemap,
		c.HasRobotsTxt, c.HasSchemaMarkup, c.HasCanonical, c.HasOpenGraph,
	}
}

// trackingChecks yields the five tracking checks: analytics (GA4 or
// Universal OR'd), tag manager, Facebook pixel, Google Ads tag and
// session insight (Hotjar or Clarity OR'd).
func trackingChecks(c domain.TrackingCheck) []domain.Tri {
	return []domain.Tri{
		c.HasAnalytics(), c.HasGTM, c.HasFacebookPixel,
		c.HasGoogleAdsTag, c.HasSessionInsight(),
	}
}

func socialChecks(c domain.SocialCheck) []domain.Tri {
	checks := make([]domain.Tri, 0, len(domain.AllPlatforms()))
	for _, platform := range domain.AllPlatforms() {
		checks = append(checks, c[platform].LinkedFromSite)
	}
	return checks
}

// trustChecks spans the trust block plus contact form and HTTPS from the
// website block, six checks in all.
func trustChecks(data *domain.AuditData) []domain.Tri {
	return []domain.Tri{
		data.Trust.HasCookieBanner, data.Trust.HasPrivacyPolicy,
		data.Trust.HasTerms, data.Trust.HasTestimonials,
		data.Website.HasContactForm, data.Website.HTTPS,
	}
}

// ratioScore returns the percentage of passed checks among known ones,
// or nil when nothing ran.
func ratioScore(checks []domain.Tri) *int {
	passed, known := 0, 0
	for _, c := range checks {
		if !c.Known() {
			continue
		}
		known++
		if c.True() {
			passed++
		}
	}
	if known == 0 {
		return nil
	}
	score := int(math.Round(100 * float64(passed) / float64(known)))
	return &score
}

// contentScore tiers freshness by days since the last post. A blog whose
// post dates could not be read lands in the lowest tier rather than zero,
// so flipping hasBlog false→true never lowers the score.
func contentScore(c domain.ContentCheck) *int {
	if !c.HasBlog.Known() {
		return nil
	}
	score := 0
	if c.HasBlog.True() {
		switch days := c.DaysSinceLastPost; {
		case days == nil:
			score = 10
		case *days < 30:
			score = 100
		case *days < 90:
			score = 60
		case *days < 180:
			score = 30
		default:
			score = 10
		}
	}
	return &score
}

// performanceScore passes the probe figure through, or excludes the
// category entirely when the probe was unavailable.
func performanceScore(w domain.WebsiteCheck) *int {
	if w.Performance == nil {
		return nil
	}
	score := *w.Performance
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return &score
}
