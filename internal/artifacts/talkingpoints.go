// Package artifacts renders the sales-facing material a completed audit
// produces: talking points for the call and a manual verification
// checklist for the reviewer.
package artifacts

import (
	"fmt"
	"strings"

	"github.com/karalisweb/leadaudit/internal/domain"
)

const maxObservations = 5

// TalkingPoints builds conversation material from the audit outcome.
// Without a snapshot the output degrades: imported legacy notes, when
// present, become the single observation of a simpler template, and a
// lead with neither gets a generic opener instead of fabricated
// observations.
func TalkingPoints(businessName, legacyText string, data *domain.AuditData, sig domain.CommercialSignals, tag domain.CommercialTag, score int) domain.TalkingPoints {
	if data == nil {
		if notes := strings.TrimSpace(legacyText); notes != "" {
			return domain.TalkingPoints{
				MainHook:     fmt.Sprintf("Ci sono appunti esistenti su %s da riprendere in chiamata.", businessName),
				Observations: []string{notes},
				StrategicQuestions: []string{
					"Come acquisite nuovi clienti oggi?",
				},
			}
		}
		return domain.TalkingPoints{
			MainHook: fmt.Sprintf("Ho dato un'occhiata alla presenza online di %s e ci sono alcuni aspetti che vale la pena discutere.", businessName),
			StrategicQuestions: []string{
				"Come acquisite nuovi clienti oggi?",
				"Il sito web porta richieste di contatto?",
			},
		}
	}

	tp := domain.TalkingPoints{
		MainHook:           mainHook(businessName, sig, tag),
		Observations:       observations(data, sig),
		StrategicQuestions: strategicQuestions(sig, tag, score),
	}
	return tp
}

func mainHook(businessName string, sig domain.CommercialSignals, tag domain.CommercialTag) string {
	switch tag {
	case domain.TagAdsAttiveControlloAssente:
		return fmt.Sprintf("%s sta investendo in pubblicità online, ma senza sistemi di misurazione non può sapere cosa rende e cosa no.", businessName)
	case domain.TagTrafficoSenzaDirezione:
		return fmt.Sprintf("%s ha visibilità online, ma il sito non è attrezzato per trasformarla in richieste di contatto.", businessName)
	case domain.TagStrutturaOkNonPrioritizzata:
		return fmt.Sprintf("Il sito di %s ha buone fondamenta tecniche: con poco lavoro mirato può iniziare a portare clienti.", businessName)
	default:
		return fmt.Sprintf("Ho analizzato la presenza online di %s e ho raccolto alcuni dati concreti da discutere.", businessName)
	}
}

// observations lists up to five specific, verifiable findings. Unknowns
// are never presented as facts.
func observations(data *domain.AuditData, sig domain.CommercialSignals) []string {
	var out []string

	add := func(s string) {
		if len(out) < maxObservations {
			out = append(out, s)
		}
	}

	if data.Website.HTTPS.False() {
		add("Il sito non usa una connessione sicura (HTTPS): i browser lo segnalano come non sicuro.")
	}
	if !data.Tracking.HasAnalytics().True() && data.Tracking.HasAnalytics().Known() {
		add("Non risulta alcun sistema di analisi del traffico: le visite al sito non vengono misurate.")
	}
	if sig.AdsActive.True() && !sig.TrackingControl.True() {
		add("Ci sono campagne pubblicitarie attive ma nessuno strumento per misurarne il ritorno.")
	}
	if data.Website.HasContactForm.False() {
		add("Manca un modulo di contatto: chi visita il sito non ha un modo semplice per chiedere informazioni.")
	}
	if data.SEO.HasMetaDescription.False() {
		add("Le pagine non hanno descrizioni per i motori di ricerca: Google mostra testo scelto a caso.")
	}
	if data.Content.HasBlog.True() && data.Content.DaysSinceLastPost != nil && *data.Content.DaysSinceLastPost > 180 {
		add(fmt.Sprintf("L'ultimo contenuto pubblicato risale a oltre %d giorni fa: il sito appare abbandonato.", *data.Content.DaysSinceLastPost))
	}
	if data.SocialLinkCount() >= 2 && !sig.TrackingControl.True() {
		add("I canali social portano visite al sito, ma nessuno sta misurando cosa succede dopo.")
	}
	if lt := data.Website.LoadTimeSeconds; lt > 3 {
		add(fmt.Sprintf("La pagina impiega circa %.0f secondi a caricare: una parte dei visitatori abbandona prima.", lt))
	}

	return out
}

func strategicQuestions(sig domain.CommercialSignals, tag domain.CommercialTag, score int) []string {
	var qs []string

	switch tag {
	case domain.TagAdsAttiveControlloAssente:
		qs = append(qs,
			"Quanto state investendo in pubblicità al mese, e come misurate oggi il ritorno?",
			"Quante richieste di contatto arrivano dalle campagne?")
	case domain.TagTrafficoSenzaDirezione:
		qs = append(qs,
			"Quando una persona arriva sul sito, cosa vi aspettate che faccia?",
			"Quante richieste vi arrivano dal sito in un mese tipo?")
	case domain.TagStrutturaOkNonPrioritizzata:
		qs = append(qs,
			"Il sito è stato fatto bene: c'è un motivo per cui non state investendo per farlo trovare?",
			"Chi si occupa oggi della presenza online dell'azienda?")
	default:
		qs = append(qs,
			"Come acquisite nuovi clienti oggi?",
			"Che ruolo ha il sito nel vostro processo commerciale?")
	}

	if score < 40 {
		qs = append(qs, "Se il sito iniziasse a portare anche solo due clienti al mese, cosa cambierebbe?")
	}
	return qs
}

// LegacyText flattens talking points into the single-text form older
// integrations read.
func LegacyText(tp domain.TalkingPoints) string {
	var b strings.Builder
	b.WriteString(tp.MainHook)
	if len(tp.Observations) > 0 {
		b.WriteString("\n\nOsservazioni:\n")
		for _, o := range tp.Observations {
			b.WriteString("- ")
			b.WriteString(o)
			b.WriteString("\n")
		}
	}
	if len(tp.StrategicQuestions) > 0 {
		b.WriteString("\nDomande:\n")
		for _, q := range tp.StrategicQuestions {
			b.WriteString("- ")
			b.WriteString(q)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
