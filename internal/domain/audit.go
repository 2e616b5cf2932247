package domain

import (
	"bytes"
	"time"
)

// Tri is a three-valued check result. A field is TriFalse only when the
// check actually ran and found nothing; a check that could not run leaves
// the field TriUnknown. Scoring and checklist generation treat the two
// very differently, so the zero value is deliberately TriUnknown.
type Tri int8

const (
	TriUnknown Tri = iota
	TriFalse
	TriTrue
)

// TriOf converts a check outcome into a known Tri value.
func TriOf(b bool) Tri {
	if b {
		return TriTrue
	}
	return TriFalse
}

// Known reports whether the check was actually executed.
func (t Tri) Known() bool { return t != TriUnknown }

// True reports whether the check ran and passed.
func (t Tri) True() bool { return t == TriTrue }

// False reports whether the check ran and failed.
func (t Tri) False() bool { return t == TriFalse }

// Bool returns the detected value, or nil when unknown.
func (t Tri) Bool() *bool {
	switch t {
	case TriTrue:
		b := true
		return &b
	case TriFalse:
		b := false
		return &b
	}
	return nil
}

func (t Tri) String() string {
	switch t {
	case TriTrue:
		return "true"
	case TriFalse:
		return "false"
	}
	return "unknown"
}

var triNull = []byte("null")

// MarshalJSON encodes unknown as null so collaborators can tell
// "checked and absent" apart from "not checked".
func (t Tri) MarshalJSON() ([]byte, error) {
	switch t {
	case TriTrue:
		return []byte("true"), nil
	case TriFalse:
		return []byte("false"), nil
	}
	return triNull, nil
}

func (t *Tri) UnmarshalJSON(data []byte) error {
	switch {
	case bytes.Equal(data, []byte("true")):
		*t = TriTrue
	case bytes.Equal(data, []byte("false")):
		*t = TriFalse
	default:
		*t = TriUnknown
	}
	return nil
}

// Platform identifies a social platform checked for site linkage.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformTwitter   Platform = "twitter"
)

// AllPlatforms is the fixed, ordered set of platforms an audit checks.
func AllPlatforms() []Platform {
	return []Platform{
		PlatformFacebook, PlatformInstagram, PlatformLinkedIn,
		PlatformYouTube, PlatformTikTok, PlatformTwitter,
	}
}

// WebsiteCheck holds reachability-level findings for the audited site.
type WebsiteCheck struct {
	// Performance is a normalized 0-100 figure from the probe, nil when the
	// probe was unavailable (contributes zero weight to scoring).
	Performance     *int    `json:"performance"`
	LoadTimeSeconds float64 `json:"loadTimeSeconds"`
	HasContactForm  Tri     `json:"hasContactForm"`
	HTTPS           Tri     `json:"https"`
}

// SEOCheck holds the eight on-page SEO hygiene markers.
type SEOCheck struct {
	HasMetaTitle       Tri `json:"hasMetaTitle"`
	HasMetaDescription Tri `json:"hasMetaDescription"`
	HasH1              Tri `json:"hasH1"`
	HasSitemap         Tri `json:"hasSitemap"`
	HasRobotsTxt       Tri `json:"hasRobotsTxt"`
	HasSchemaMarkup    Tri `json:"hasSchemaMarkup"`
	HasCanonical       Tri `json:"hasCanonical"`
	HasOpenGraph       Tri `json:"hasOpenGraph"`
}

// TrackingCheck holds analytics and advertising tag markers.
type TrackingCheck struct {
	HasGA4             Tri `json:"hasGA4"`
	HasGoogleAnalytics Tri `json:"hasGoogleAnalytics"`
	HasGTM             Tri `json:"hasGTM"`
	HasFacebookPixel   Tri `json:"hasFacebookPixel"`
	HasGoogleAdsTag    Tri `json:"hasGoogleAdsTag"`
	HasHotjar          Tri `json:"hasHotjar"`
	HasClarity         Tri `json:"hasClarity"`
}

// HasAnalytics reports the OR of GA4 and Universal Analytics; the two count
// as a single scoring check.
func (t TrackingCheck) HasAnalytics() Tri {
	if t.HasGA4.True() || t.HasGoogleAnalytics.True() {
		return TriTrue
	}
	if t.HasGA4.Known() || t.HasGoogleAnalytics.Known() {
		return TriFalse
	}
	return TriUnknown
}

// HasSessionInsight reports the OR of Hotjar and Clarity.
func (t TrackingCheck) HasSessionInsight() Tri {
	if t.HasHotjar.True() || t.HasClarity.True() {
		return TriTrue
	}
	if t.HasHotjar.Known() || t.HasClarity.Known() {
		return TriFalse
	}
	return TriUnknown
}

// SocialPresence records whether a platform is linked from the site.
type SocialPresence struct {
	LinkedFromSite Tri `json:"linkedFromSite"`
}

// SocialCheck maps each platform to its detected presence.
type SocialCheck map[Platform]SocialPresence

// TrustCheck holds trust and compliance markers.
type TrustCheck struct {
	HasCookieBanner  Tri `json:"hasCookieBanner"`
	HasPrivacyPolicy Tri `json:"hasPrivacyPolicy"`
	HasTerms         Tri `json:"hasTerms"`
	HasTestimonials  Tri `json:"hasTestimonials"`
}

// ContentCheck holds content freshness markers.
type ContentCheck struct {
	HasBlog Tri `json:"hasBlog"`
	// DaysSinceLastPost is nil when no blog exists or no post date was found.
	DaysSinceLastPost *int `json:"daysSinceLastPost"`
}

// AuditData is the immutable snapshot produced by one audit run.
// Re-running an audit replaces the whole structure, never merges.
type AuditData struct {
	Website  WebsiteCheck  `json:"website"`
	SEO      SEOCheck      `json:"seo"`
	Tracking TrackingCheck `json:"tracking"`
	Social   SocialCheck   `json:"social"`
	Trust    TrustCheck    `json:"trust"`
	Content  ContentCheck  `json:"content"`

	// Issues lists one human-readable entry per detected deficiency,
	// in detection order.
	Issues []string `json:"issues"`

	FetchedAt time.Time `json:"fetchedAt"`
}

// NewAuditData returns an empty snapshot with every check unknown.
func NewAuditData() *AuditData {
	return &AuditData{
		Social:    make(SocialCheck, len(AllPlatforms())),
		FetchedAt: time.Now().UTC(),
	}
}

// AddIssue appends a deficiency note. Append-only during the run.
func (d *AuditData) AddIssue(issue string) {
	d.Issues = append(d.Issues, issue)
}

// SocialLinkCount returns how many platforms are known to be linked.
func (d *AuditData) SocialLinkCount() int {
	n := 0
	for _, p := range d.Social {
		if p.LinkedFromSite.True() {
			n++
		}
	}
	return n
}
