package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/karalisweb/leadaudit/internal/domain"
)

// maxBodyBytes caps how much of a page is read. Marker extraction only
// needs the document, not megabytes of inlined assets.
const maxBodyBytes = 2 << 20

// CrawlerConfig tunes one crawl run.
type CrawlerConfig struct {
	RequestTimeout    time.Duration
	MaxRetries        int
	RequestsPerSecond float64
	UserAgent         string
}

// CrawlResult is everything the crawler hands to the rest of the audit.
type CrawlResult struct {
	Data     *domain.AuditData
	HomeHTML string
	// FinalURL is the home URL after redirects, used for SERP and probes.
	FinalURL string
}

// Crawler fetches the handful of pages an audit inspects: the home page,
// robots.txt, the sitemap, and the contact and blog pages when linked.
// It is a polite sequential fetcher, not a site spider.
type Crawler struct {
	client    *http.Client
	limiter   *rate.Limiter
	extractor *Extractor
	config    CrawlerConfig
	logger    *zap.Logger
}

// NewCrawler creates a crawler. The client follows redirects, so an
// http:// site that upgrades to https:// is recorded as secure.
func NewCrawler(config CrawlerConfig, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	rps := config.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &Crawler{
		client:    &http.Client{Timeout: config.RequestTimeout},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		extractor: NewExtractor(),
		config:    config,
		logger:    logger,
	}
}

// NormalizeURL makes a stored website value fetchable: bare domains get
// an https scheme, surrounding whitespace is dropped.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.ValidationError("website", "is empty")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", domain.ValidationError("website", "is not a valid URL")
	}
	return parsed.String(), nil
}

// Crawl runs the full fetch sequence. A site that cannot be reached at
// all fails with UnreachableError; anything less than that degrades to
// issues and unknown fields on the snapshot.
func (c *Crawler) Crawl(ctx context.Context, siteURL string) (*CrawlResult, error) {
	data := domain.NewAuditData()
	result := &CrawlResult{Data: data, FinalURL: siteURL}

	home, err := c.fetch(ctx, siteURL)
	if err != nil {
		// Nothing answered: the site is gone, not just broken.
		return nil, domain.UnreachableError(siteURL, err)
	}
	result.FinalURL = home.finalURL
	result.HomeHTML = home.body

	data.Website.HTTPS = domain.TriOf(strings.HasPrefix(home.finalURL, "https://"))
	data.Website.LoadTimeSeconds = home.elapsed.Seconds()

	if home.status >= 400 {
		data.AddIssue(fmt.Sprintf("La home page risponde con stato %d", home.status))
	} else if home.body != "" {
		doc, derr := goquery.NewDocumentFromReader(strings.NewReader(home.body))
		if derr != nil {
			c.logger.Warn("parsing home page failed", zap.String("url", siteURL), zap.Error(derr))
			data.AddIssue("Impossibile interpretare il contenuto della home page")
		} else {
			c.extractor.ExtractHome(doc, home.body, data)
			c.crawlContactPage(ctx, doc, home.finalURL, data)
			c.crawlBlogPage(ctx, doc, home.finalURL, data)
		}
	}

	c.checkWellKnown(ctx, home.finalURL, data)
	c.collectIssues(data)

	return result, nil
}

// crawlContactPage refines the contact-form check with the linked contact
// page when the home page itself carries no form.
func (c *Crawler) crawlContactPage(ctx context.Context, homeDoc *goquery.Document, baseURL string, data *domain.AuditData) {
	if data.Website.HasContactForm.True() {
		return
	}
	href, ok := c.extractor.FindContactLink(homeDoc)
	if !ok {
		return
	}
	pageURL, ok := resolveLink(baseURL, href)
	if !ok {
		return
	}

	page, err := c.fetch(ctx, pageURL)
	if err != nil || page.status >= 400 {
		c.logger.Debug("contact page unavailable", zap.String("url", pageURL))
		return
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.body))
	if err != nil {
		return
	}
	if hasContactForm(doc) {
		data.Website.HasContactForm = domain.TriTrue
	}
}

// crawlBlogPage decides the content checks. No blog link on the home page
// means a known absence; a linked page that cannot be fetched leaves the
// checks unknown.
func (c *Crawler) crawlBlogPage(ctx context.Context, homeDoc *goquery.Document, baseURL string, data *domain.AuditData) {
	href, ok := c.extractor.FindBlogLink(homeDoc)
	if !ok {
		data.Content.HasBlog = domain.TriFalse
		return
	}
	pageURL, ok := resolveLink(baseURL, href)
	if !ok {
		data.Content.HasBlog = domain.TriFalse
		return
	}

	page, err := c.fetch(ctx, pageURL)
	if err != nil || page.status >= 400 {
		c.logger.Debug("blog page unavailable", zap.String("url", pageURL))
		return
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.body))
	if err != nil {
		return
	}

	hasPosts, daysSince := c.extractor.ExtractBlog(doc, time.Now().UTC())
	data.Content.HasBlog = domain.TriOf(hasPosts)
	data.Content.DaysSinceLastPost = daysSince
}

// checkWellKnown probes robots.txt and the sitemap at their standard
// locations.
func (c *Crawler) checkWellKnown(ctx context.Context, baseURL string, data *domain.AuditData) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return
	}
	root := parsed.Scheme + "://" + parsed.Host

	robots, err := c.fetch(ctx, root+"/robots.txt")
	if err == nil {
		data.SEO.HasRobotsTxt = domain.TriOf(robots.status == http.StatusOK && looksLikeRobots(robots.body))
	}

	sitemap, err := c.fetch(ctx, root+"/sitemap.xml")
	if err == nil {
		ok := sitemap.status == http.StatusOK && strings.Contains(sitemap.body, "<urlset") ||
			sitemap.status == http.StatusOK && strings.Contains(sitemap.body, "<sitemapindex")
		data.SEO.HasSitemap = domain.TriOf(ok)
	}
}

// collectIssues appends one entry per known-absent marker, in a fixed
// order so two runs over the same site produce the same list.
func (c *Crawler) collectIssues(data *domain.AuditData) {
	checks := []struct {
		absent bool
		text   string
	}{
		{data.Website.HTTPS.False(), "Il sito non usa HTTPS"},
		{data.SEO.HasMetaTitle.False(), "Manca il meta title"},
		{data.SEO.HasMetaDescription.False(), "Manca la meta description"},
		{data.SEO.HasH1.False(), "Manca un titolo H1"},
		{data.SEO.HasSitemap.False(), "Manca la sitemap"},
		{data.SEO.HasRobotsTxt.False(), "Manca il file robots.txt"},
		{data.Tracking.HasAnalytics().False(), "Nessun sistema di analisi del traffico"},
		{data.Website.HasContactForm.False(), "Manca un modulo di contatto"},
		{data.Trust.HasCookieBanner.False(), "Manca il banner cookie"},
		{data.Trust.HasPrivacyPolicy.False(), "Manca la privacy policy"},
		{data.Content.HasBlog.False(), "Nessun blog o sezione news"},
	}
	for _, ch := range checks {
		if ch.absent {
			data.AddIssue(ch.text)
		}
	}
}

type fetchResult struct {
	body     string
	status   int
	finalURL string
	elapsed  time.Duration
}

// fetch GETs one URL with rate limiting and transient-only retries.
// Any HTTP response, including 4xx and 5xx, is returned to the caller
// on first receipt; only network errors are retried.
func (c *Crawler) fetch(ctx context.Context, pageURL string) (*fetchResult, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		res, err := c.fetchOnce(ctx, pageURL)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = err
			continue
		}
		return res, nil
	}

	return nil, lastErr
}

func (c *Crawler) fetchOnce(ctx context.Context, pageURL string) (*fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	return &fetchResult{
		body:     string(body),
		status:   resp.StatusCode,
		finalURL: resp.Request.URL.String(),
		elapsed:  time.Since(start),
	}, nil
}

func resolveLink(baseURL, href string) (string, bool) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Host != base.Host {
		return "", false
	}
	return resolved.String(), true
}

// looksLikeRobots guards against parked-domain servers that answer 200
// with an HTML page for any path.
func looksLikeRobots(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "user-agent") || strings.Contains(lower, "disallow") || strings.Contains(lower, "sitemap:")
}
