package artifacts

import (
	"github.com/karalisweb/leadaudit/internal/domain"
)

const maxDetectedItems = 5

// Checklist builds the manual verification list a reviewer walks before
// trusting the automated tag. Detected items come first in a fixed order,
// capped at five; the manual site-open confirmation always closes the
// list and is the sole item when no snapshot exists.
func Checklist(data *domain.AuditData) []domain.ChecklistItem {
	manual := domain.ChecklistItem{
		Key:   "manual_site_check",
		Label: "Sito aperto manualmente e funzionante",
		Hint:  "Apri il sito nel browser e verifica che carichi correttamente.",
	}

	if data == nil {
		return []domain.ChecklistItem{manual}
	}

	candidates := []struct {
		key   string
		label string
		value domain.Tri
		hint  string
	}{
		{"analytics", "Sistema di analisi traffico presente", data.Tracking.HasAnalytics(),
			"Cerca gtag.js o analytics.js nel sorgente della home page."},
		{"facebook_pixel", "Pixel Facebook presente", data.Tracking.HasFacebookPixel,
			"Cerca fbq( nel sorgente oppure usa il Meta Pixel Helper."},
		{"google_ads_tag", "Tag Google Ads presente", data.Tracking.HasGoogleAdsTag,
			"Cerca AW- nel sorgente della home page."},
		{"cookie_banner", "Banner cookie presente", data.Trust.HasCookieBanner,
			"Apri il sito in navigazione anonima e verifica che appaia il banner."},
		{"contact_form", "Modulo di contatto presente", data.Website.HasContactForm,
			"Cerca una pagina contatti con un form funzionante."},
		{"blog", "Blog o sezione news presente", data.Content.HasBlog,
			"Controlla il menu per voci come Blog, News o Novità."},
	}

	items := make([]domain.ChecklistItem, 0, maxDetectedItems+1)
	for _, c := range candidates {
		if len(items) == maxDetectedItems {
			break
		}
		items = append(items, domain.ChecklistItem{
			Key:           c.key,
			Label:         c.label,
			DetectedValue: c.value.Bool(),
			Hint:          c.hint,
		})
	}

	return append(items, manual)
}
