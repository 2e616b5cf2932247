package signals

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/karalisweb/leadaudit/internal/domain"
)

type fakeSerp struct {
	paid   bool
	err    error
	called bool
}

func (f *fakeSerp) PaidListings(ctx context.Context, siteDomain, brand string) (bool, error) {
	f.called = true
	return f.paid, f.err
}

func longHTML(markers ...string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>Officina Rossi</title></head><body>")
	for _, m := range markers {
		b.WriteString(m)
	}
	b.WriteString(strings.Repeat("<p>contenuto del sito aziendale</p>", 40))
	b.WriteString("</body></html>")
	return b.String()
}

func checkedData() *domain.AuditData {
	data := domain.NewAuditData()
	data.Website.HasContactForm = domain.TriFalse
	data.Website.HTTPS = domain.TriTrue
	data.Content.HasBlog = domain.TriFalse
	data.Tracking.HasGA4 = domain.TriFalse
	data.Tracking.HasGoogleAnalytics = domain.TriFalse
	data.Tracking.HasGTM = domain.TriFalse
	data.Tracking.HasFacebookPixel = domain.TriFalse
	data.Tracking.HasGoogleAdsTag = domain.TriFalse
	data.SEO.HasMetaTitle = domain.TriTrue
	data.SEO.HasMetaDescription = domain.TriTrue
	data.SEO.HasH1 = domain.TriTrue
	return data
}

func TestDetect_ShortHTML(t *testing.T) {
	d := NewDetector(nil, zap.NewNop())

	sig := d.Detect(context.Background(), "<html></html>", checkedData(), "rossi.it", "Officina Rossi", true)

	assert.False(t, sig.AdsActive.Known())
	assert.False(t, sig.StructureReady.Known())
	assert.True(t, sig.NeedsReview)
}

func TestDetect_NilData(t *testing.T) {
	d := NewDetector(nil, zap.NewNop())

	sig := d.Detect(context.Background(), longHTML(), nil, "rossi.it", "Officina Rossi", true)

	assert.False(t, sig.AdsActive.Known())
	assert.True(t, sig.NeedsReview)
}

func TestDetect_AdsFromTags(t *testing.T) {
	d := NewDetector(nil, zap.NewNop())

	data := checkedData()
	data.Tracking.HasGoogleAdsTag = domain.TriTrue

	sig := d.Detect(context.Background(), longHTML(`<a href="?utm_campaign=promo">chiama ora</a>`), data, "rossi.it", "Officina Rossi", true)

	assert.True(t, sig.AdsActive.True())
	assert.Equal(t, domain.ConfidenceHigh, sig.AdsConfidence, "tag plus landing cues should raise confidence")
	assert.NotEmpty(t, sig.Evidence)
}

func TestDetect_SkipSerpDegradesConfidence(t *testing.T) {
	serp := &fakeSerp{paid: true}
	d := NewDetector(serp, zap.NewNop())

	data := checkedData()
	data.Tracking.HasGoogleAdsTag = domain.TriTrue

	sig := d.Detect(context.Background(), longHTML(), data, "rossi.it", "Officina Rossi", true)

	assert.False(t, serp.called, "skipSerp must bypass the external check")
	assert.False(t, sig.SerpChecked)
	assert.True(t, sig.AdsActive.True())
	assert.Equal(t, domain.ConfidenceMedium, sig.AdsConfidence)
}

func TestDetect_SerpCorroboration(t *testing.T) {
	serp := &fakeSerp{paid: true}
	d := NewDetector(serp, zap.NewNop())

	// No tags found, but the SERP shows paid placements: absence of a
	// tag does not prove absence of ads.
	sig := d.Detect(context.Background(), longHTML(), checkedData(), "rossi.it", "Officina Rossi", false)

	assert.True(t, serp.called)
	assert.True(t, sig.SerpChecked)
	assert.True(t, sig.AdsActive.True())
}

func TestDetect_SerpFailureFallsBack(t *testing.T) {
	serp := &fakeSerp{err: errors.New("quota exceeded")}
	d := NewDetector(serp, zap.NewNop())

	sig := d.Detect(context.Background(), longHTML(), checkedData(), "rossi.it", "Officina Rossi", false)

	assert.True(t, serp.called)
	assert.False(t, sig.SerpChecked)
	assert.True(t, sig.AdsActive.False(), "tags checked and absent, serp unavailable")
}

func TestDetect_StructureReady(t *testing.T) {
	d := NewDetector(nil, zap.NewNop())

	sig := d.Detect(context.Background(), longHTML(), checkedData(), "rossi.it", "Officina Rossi", true)

	assert.True(t, sig.StructureReady.True())
	assert.True(t, sig.TrackingControl.False())
}

func TestDetect_TrafficWithoutDirection(t *testing.T) {
	d := NewDetector(nil, zap.NewNop())

	data := checkedData()
	data.Tracking.HasFacebookPixel = domain.TriTrue // traffic source
	// no contact form, no analytics control

	sig := d.Detect(context.Background(), longHTML(), data, "rossi.it", "Officina Rossi", true)

	assert.True(t, sig.TrafficWithoutDirection.True())
}

func TestDetect_NoCommercialFootprint(t *testing.T) {
	d := NewDetector(nil, zap.NewNop())

	data := checkedData()
	data.SEO.HasMetaTitle = domain.TriFalse
	data.SEO.HasMetaDescription = domain.TriFalse
	data.SEO.HasH1 = domain.TriFalse
	data.Website.HTTPS = domain.TriFalse

	html := "<html><body>" + strings.Repeat("x", 300) + "</body></html>"
	sig := d.Detect(context.Background(), html, data, "rossi.it", "Officina Rossi", true)

	assert.True(t, sig.NoCommercialFootprint.True())
}
