package audit

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/karalisweb/leadaudit/internal/domain"
)

// Tracking snippet patterns. These match the tags as embedded in page
// source, not the network requests they generate.
var (
	reGA4       = regexp.MustCompile(`G-[A-Z0-9]{6,}`)
	reUA        = regexp.MustCompile(`UA-\d{4,}-\d+`)
	reGTM       = regexp.MustCompile(`GTM-[A-Z0-9]{4,}`)
	reFBPixel   = regexp.MustCompile(`fbq\s*\(\s*['"]init['"]|connect\.facebook\.net/[^"']+/fbevents\.js`)
	reGoogleAds = regexp.MustCompile(`AW-\d{6,}|googleads\.g\.doubleclick\.net`)
	reHotjar    = regexp.MustCompile(`static\.hotjar\.com|hjid\s*[:=]`)
	reClarity   = regexp.MustCompile(`clarity\.ms/tag|clarity\s*\(\s*['"]`)
)

var socialDomains = map[domain.Platform][]string{
	domain.PlatformFacebook:  {"facebook.com/"},
	domain.PlatformInstagram: {"instagram.com/"},
	domain.PlatformLinkedIn:  {"linkedin.com/"},
	domain.PlatformYouTube:   {"youtube.com/", "youtu.be/"},
	domain.PlatformTikTok:    {"tiktok.com/"},
	domain.PlatformTwitter:   {"twitter.com/", "x.com/"},
}

// Extractor reads audit markers out of fetched HTML. It never fetches
// anything itself; the crawler feeds it documents.
type Extractor struct{}

// NewExtractor creates a marker extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractHome fills the snapshot fields decidable from the home page:
// SEO on-page markers, tracking tags, social links, trust markers and
// the contact form check. Page-level checks that ran and found nothing
// are set to a known false, never left unknown.
func (e *Extractor) ExtractHome(doc *goquery.Document, rawHTML string, data *domain.AuditData) {
	e.extractSEO(doc, data)
	e.extractTracking(rawHTML, data)
	e.extractSocial(doc, data)
	e.extractTrust(doc, rawHTML, data)

	data.Website.HasContactForm = domain.TriOf(hasContactForm(doc))
}

func (e *Extractor) extractSEO(doc *goquery.Document, data *domain.AuditData) {
	title := strings.TrimSpace(doc.Find("head title").First().Text())
	data.SEO.HasMetaTitle = domain.TriOf(title != "")

	desc, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	data.SEO.HasMetaDescription = domain.TriOf(strings.TrimSpace(desc) != "")

	data.SEO.HasH1 = domain.TriOf(doc.Find("h1").Length() > 0)
	data.SEO.HasSchemaMarkup = domain.TriOf(doc.Find(`script[type="application/ld+json"]`).Length() > 0)

	canonical, _ := doc.Find(`link[rel="canonical"]`).First().Attr("href")
	data.SEO.HasCanonical = domain.TriOf(strings.TrimSpace(canonical) != "")

	data.SEO.HasOpenGraph = domain.TriOf(doc.Find(`meta[property^="og:"]`).Length() > 0)
}

func (e *Extractor) extractTracking(rawHTML string, data *domain.AuditData) {
	data.Tracking.HasGA4 = domain.TriOf(reGA4.MatchString(rawHTML))
	data.Tracking.HasGoogleAnalytics = domain.TriOf(reUA.MatchString(rawHTML))
	data.Tracking.HasGTM = domain.TriOf(reGTM.MatchString(rawHTML))
	data.Tracking.HasFacebookPixel = domain.TriOf(reFBPixel.MatchString(rawHTML))
	data.Tracking.HasGoogleAdsTag = domain.TriOf(reGoogleAds.MatchString(rawHTML))
	data.Tracking.HasHotjar = domain.TriOf(reHotjar.MatchString(rawHTML))
	data.Tracking.HasClarity = domain.TriOf(reClarity.MatchString(rawHTML))
}

func (e *Extractor) extractSocial(doc *goquery.Document, data *domain.AuditData) {
	found := make(map[domain.Platform]bool)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.ToLower(href)
		for platform, domains := range socialDomains {
			for _, d := range domains {
				if strings.Contains(href, d) {
					found[platform] = true
				}
			}
		}
	})

	for _, p := range domain.AllPlatforms() {
		data.Social[p] = domain.SocialPresence{LinkedFromSite: domain.TriOf(found[p])}
	}
}

func (e *Extractor) extractTrust(doc *goquery.Document, rawHTML string, data *domain.AuditData) {
	lower := strings.ToLower(rawHTML)

	cookieMarkers := []string{"cookieconsent", "cookie-banner", "cookie_banner", "cookiebot", "iubenda", "onetrust", "cookie-law"}
	data.Trust.HasCookieBanner = domain.TriOf(containsAny(lower, cookieMarkers))

	data.Trust.HasPrivacyPolicy = domain.TriOf(hasLinkMatching(doc, []string{"privacy"}))
	data.Trust.HasTerms = domain.TriOf(hasLinkMatching(doc, []string{"termini", "terms", "condizioni"}))

	testimonialMarkers := []string{"testimonial", "recensioni", "dicono di noi", "cosa dicono"}
	data.Trust.HasTestimonials = domain.TriOf(containsAny(lower, testimonialMarkers))
}

// ExtractBlog inspects a blog or news listing page for the most recent
// post date. It returns whether the page looks like a real post listing
// and, when dates are readable, how many days ago the latest post is.
func (e *Extractor) ExtractBlog(doc *goquery.Document, now time.Time) (hasPosts bool, daysSince *int) {
	var latest time.Time

	doc.Find("time[datetime]").Each(func(_ int, s *goquery.Selection) {
		raw, _ := s.Attr("datetime")
		if t, ok := parseDate(raw); ok && t.After(latest) {
			latest = t
		}
	})

	// Fall back to visible dates in article elements.
	if latest.IsZero() {
		doc.Find("article, .post, .blog-post, .news-item").Each(func(_ int, s *goquery.Selection) {
			hasPosts = true
			if t, ok := findDateInText(s.Text()); ok && t.After(latest) {
				latest = t
			}
		})
	} else {
		hasPosts = true
	}

	if !hasPosts {
		hasPosts = doc.Find("article").Length() > 0
	}
	if latest.IsZero() || latest.After(now) {
		return hasPosts, nil
	}

	days := int(now.Sub(latest).Hours() / 24)
	return true, &days
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006",
	"2 January 2006",
}

var italianMonths = map[string]string{
	"gennaio": "January", "febbraio": "February", "marzo": "March",
	"aprile": "April", "maggio": "May", "giugno": "June",
	"luglio": "July", "agosto": "August", "settembre": "September",
	"ottobre": "October", "novembre": "November", "dicembre": "December",
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var reVisibleDate = regexp.MustCompile(`(?i)(\d{1,2})\s+(gennaio|febbraio|marzo|aprile|maggio|giugno|luglio|agosto|settembre|ottobre|novembre|dicembre)\s+(\d{4})|(\d{1,2})/(\d{1,2})/(\d{4})`)

func findDateInText(text string) (time.Time, bool) {
	m := reVisibleDate.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	if m[2] != "" {
		english := m[1] + " " + italianMonths[strings.ToLower(m[2])] + " " + m[3]
		if t, err := time.Parse("2 January 2006", english); err == nil {
			return t, true
		}
		return time.Time{}, false
	}
	return parseDate(m[4] + "/" + m[5] + "/" + m[6])
}

// FindBlogLink returns the href of a blog or news section link, if any.
func (e *Extractor) FindBlogLink(doc *goquery.Document) (string, bool) {
	return findLink(doc, []string{"blog", "news", "novit", "notizie", "articoli"})
}

// FindContactLink returns the href of a contact page link, if any.
func (e *Extractor) FindContactLink(doc *goquery.Document) (string, bool) {
	return findLink(doc, []string{"contatt", "contact"})
}

func findLink(doc *goquery.Document, markers []string) (string, bool) {
	var href string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		h, _ := s.Attr("href")
		target := strings.ToLower(h + " " + s.Text())
		for _, m := range markers {
			if strings.Contains(target, m) {
				href = h
				return false
			}
		}
		return true
	})
	return href, href != ""
}

func hasLinkMatching(doc *goquery.Document, markers []string) bool {
	_, ok := findLink(doc, markers)
	return ok
}

// hasContactForm looks for a form with an email or message field, or a
// form on a contact-looking action URL. A bare search box is not a
// contact form.
func hasContactForm(doc *goquery.Document) bool {
	found := false
	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		action, _ := form.Attr("action")
		if strings.Contains(strings.ToLower(action), "contact") || strings.Contains(strings.ToLower(action), "contatt") {
			found = true
			return false
		}
		hasEmail := form.Find(`input[type="email"], input[name*="email"]`).Length() > 0
		hasMessage := form.Find(`textarea`).Length() > 0
		if hasEmail && hasMessage {
			found = true
			return false
		}
		return true
	})
	return found
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
