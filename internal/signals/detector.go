// Package signals infers business-relevant commercial signals from an
// audit snapshot and the raw page HTML, independently of the opportunity
// score.
package signals

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/karalisweb/leadaudit/internal/domain"
)

// minHTMLLength is the shortest HTML worth interpreting. Below this the
// detector returns all-unknown signals instead of guessing.
const minHTMLLength = 200

// Detector computes CommercialSignals from audit evidence.
type Detector struct {
	serp   SerpChecker
	logger *zap.Logger
}

// NewDetector creates a detector. serp may be nil, in which case the
// external corroboration is unavailable and tag presence decides alone.
func NewDetector(serp SerpChecker, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{serp: serp, logger: logger}
}

// Detect interprets the snapshot. skipSerp bypasses the costed external
// check; ads confidence degrades to tag-presence-only in that case.
// Missing or short HTML yields all-unknown signals, never an error.
func (d *Detector) Detect(ctx context.Context, html string, data *domain.AuditData, siteDomain, brand string, skipSerp bool) domain.CommercialSignals {
	if data == nil || len(html) < minHTMLLength {
		return domain.UnknownSignals()
	}

	sig := domain.CommercialSignals{AdsConfidence: domain.ConfidenceLow}

	d.detectAds(ctx, &sig, html, data, siteDomain, brand, skipSerp)
	d.detectTrackingControl(&sig, data)
	d.detectTrafficDirection(&sig, data)
	d.detectStructure(&sig, data)
	d.detectFootprint(&sig, html, data)

	sig.NeedsReview = d.needsReview(sig, data)

	return sig
}

// detectAds combines tag presence with landing-page cues. Absence of a
// tag does not prove absence of ads: without skipSerp the external check
// gets the final word.
func (d *Detector) detectAds(ctx context.Context, sig *domain.CommercialSignals, html string, data *domain.AuditData, siteDomain, brand string, skipSerp bool) {
	adsTag := data.Tracking.HasGoogleAdsTag
	pixel := data.Tracking.HasFacebookPixel
	cues := landingCues(html)

	switch {
	case adsTag.True() || pixel.True():
		sig.AdsActive = domain.TriTrue
		sig.AdsConfidence = domain.ConfidenceMedium
		if adsTag.True() {
			sig.Evidence = append(sig.Evidence, "tag Google Ads presente")
		}
		if pixel.True() {
			sig.Evidence = append(sig.Evidence, "pixel Facebook presente")
		}
		if cues > 0 {
			sig.AdsConfidence = domain.ConfidenceHigh
			sig.Evidence = append(sig.Evidence, fmt.Sprintf("%d elementi da landing page rilevati", cues))
		}
	case !adsTag.Known() && !pixel.Known():
		sig.AdsActive = domain.TriUnknown
	default:
		sig.AdsActive = domain.TriFalse
	}

	if skipSerp || sig.AdsActive.True() {
		return
	}
	if d.serp == nil || siteDomain == "" {
		return
	}

	paid, err := d.serp.PaidListings(ctx, siteDomain, brand)
	if err != nil {
		d.logger.Warn("serp check failed, falling back to tag presence",
			zap.String("domain", siteDomain), zap.Error(err))
		return
	}
	sig.SerpChecked = true
	if paid {
		sig.AdsActive = domain.TriTrue
		sig.AdsConfidence = domain.ConfidenceMedium
		sig.Evidence = append(sig.Evidence, "annunci a pagamento rilevati in SERP")
	}
}

func (d *Detector) detectTrackingControl(sig *domain.CommercialSignals, data *domain.AuditData) {
	analytics := data.Tracking.HasAnalytics()
	gtm := data.Tracking.HasGTM

	switch {
	case analytics.True() || gtm.True():
		sig.TrackingControl = domain.TriTrue
	case analytics.Known() || gtm.Known():
		sig.TrackingControl = domain.TriFalse
		sig.Evidence = append(sig.Evidence, "nessun sistema di misurazione attivo")
	default:
		sig.TrackingControl = domain.TriUnknown
	}
}

// detectTrafficDirection flags traffic indicators that land on a site with
// no conversion structure to receive them.
func (d *Detector) detectTrafficDirection(sig *domain.CommercialSignals, data *domain.AuditData) {
	traffic := sig.AdsActive.True() || data.SocialLinkCount() >= 2
	directed := data.Website.HasContactForm.True() || sig.TrackingControl.True()

	switch {
	case traffic && !directed && data.Website.HasContactForm.Known():
		sig.TrafficWithoutDirection = domain.TriTrue
		sig.Evidence = append(sig.Evidence, "traffico in ingresso senza struttura di conversione")
	case !data.Website.HasContactForm.Known() && !sig.TrackingControl.Known():
		sig.TrafficWithoutDirection = domain.TriUnknown
	default:
		sig.TrafficWithoutDirection = domain.TriFalse
	}
}

// detectStructure flags a structurally sound site the business is not
// actively investing in.
func (d *Detector) detectStructure(sig *domain.CommercialSignals, data *domain.AuditData) {
	basics := 0
	for _, c := range []domain.Tri{
		data.SEO.HasMetaTitle, data.SEO.HasMetaDescription, data.SEO.HasH1,
	} {
		if c.True() {
			basics++
		}
	}
	sound := basics >= 2 && data.Website.HTTPS.True()
	investing := sig.AdsActive.True() || sig.TrackingControl.True()

	switch {
	case sound && !investing:
		sig.StructureReady = domain.TriTrue
		sig.Evidence = append(sig.Evidence, "struttura del sito adeguata ma non valorizzata")
	case !data.Website.HTTPS.Known():
		sig.StructureReady = domain.TriUnknown
	default:
		sig.StructureReady = domain.TriFalse
	}
}

// detectFootprint flags the explicit non-fit: nothing commercial to work
// with at all.
func (d *Detector) detectFootprint(sig *domain.CommercialSignals, html string, data *domain.AuditData) {
	known := data.Website.HasContactForm.Known() && data.Content.HasBlog.Known()
	if !known {
		sig.NoCommercialFootprint = domain.TriUnknown
		return
	}

	bare := !data.Website.HasContactForm.True() &&
		data.SocialLinkCount() == 0 &&
		!sig.TrackingControl.True() &&
		!sig.AdsActive.True() &&
		!sig.StructureReady.True() &&
		!data.Content.HasBlog.True() &&
		len(html) < 3000

	if bare {
		sig.NoCommercialFootprint = domain.TriTrue
		sig.Evidence = append(sig.Evidence, "nessuna presenza commerciale rilevabile sul sito")
	} else {
		sig.NoCommercialFootprint = domain.TriFalse
	}
}

// needsReview flags runs where too much is unknown or the evidence pulls
// in opposite directions.
func (d *Detector) needsReview(sig domain.CommercialSignals, data *domain.AuditData) bool {
	unknowns := 0
	for _, t := range []domain.Tri{
		sig.AdsActive, sig.TrackingControl, sig.TrafficWithoutDirection,
		sig.StructureReady, sig.NoCommercialFootprint,
	} {
		if !t.Known() {
			unknowns++
		}
	}
	if unknowns >= 2 {
		return true
	}

	// Ads running on a site that also looks dormant is contradictory.
	if sig.AdsActive.True() && sig.NoCommercialFootprint.True() {
		return true
	}

	return len(data.Issues) > 6
}

// landingCues counts structural hints of a paid landing page in the raw
// HTML: campaign URL parameters, call-to-action anchors, standalone
// conversion sections.
func landingCues(html string) int {
	lower := strings.ToLower(html)
	cues := 0
	for _, marker := range []string{"utm_campaign", "utm_source", "gclid", "fbclid"} {
		if strings.Contains(lower, marker) {
			cues++
			break
		}
	}
	for _, marker := range []string{"cta", "chiama ora", "richiedi preventivo", "prenota", "book now"} {
		if strings.Contains(lower, marker) {
			cues++
			break
		}
	}
	if strings.Contains(lower, "thank-you") || strings.Contains(lower, "grazie") {
		cues++
	}
	return cues
}
