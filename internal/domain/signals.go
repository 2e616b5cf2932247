package domain

// Confidence grades how much evidence backs a detected signal.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// CommercialSignals is the business-level interpretation of an audit,
// computed independently of the opportunity score.
type CommercialSignals struct {
	// AdsActive: the lead is running paid acquisition. Backed by tag
	// presence, landing-page cues and, unless skipped, SERP corroboration.
	AdsActive     Tri        `json:"adsActive"`
	AdsConfidence Confidence `json:"adsConfidence"`

	// TrackingControl: an analytics setup (GA/GA4/GTM) is in place to
	// measure whatever traffic arrives.
	TrackingControl Tri `json:"trackingControl"`

	// TrafficWithoutDirection: traffic indicators without conversion
	// structure to receive it.
	TrafficWithoutDirection Tri `json:"trafficWithoutDirection"`

	// StructureReady: the site is structurally sound but the business is
	// not investing in acquisition on top of it.
	StructureReady Tri `json:"structureReady"`

	// NoCommercialFootprint: explicit non-fit, nothing to sell against.
	NoCommercialFootprint Tri `json:"noCommercialFootprint"`

	// NeedsReview flags ambiguous or conflicting evidence.
	NeedsReview bool `json:"needsReview"`

	// SerpChecked records whether the external SERP check actually ran.
	SerpChecked bool `json:"serpChecked"`

	// Evidence lists the concrete observations the signals rest on,
	// in detection order. Feeds the classifier's reason strings.
	Evidence []string `json:"evidence"`
}

// Unknown returns signals with every field unknown, used when the HTML is
// missing or too short to interpret.
func UnknownSignals() CommercialSignals {
	return CommercialSignals{
		AdsConfidence: ConfidenceLow,
		NeedsReview:   true,
	}
}
