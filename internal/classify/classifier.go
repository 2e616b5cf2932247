// Package classify maps commercial signals and the opportunity score to
// exactly one commercial tag. The rules are a fixed, ordered list; the
// first match wins and there is always a match, so classification is a
// total function.
package classify

import (
	"fmt"
	"strings"

	"github.com/karalisweb/leadaudit/internal/domain"
)

// Result is the classification outcome attached to a lead.
type Result struct {
	Tag        domain.CommercialTag `json:"tag"`
	Reason     string               `json:"reason"`
	Priority   int                  `json:"priority"`
	IsCallable bool                 `json:"isCallable"`
}

// Classify applies the decision rules top-down:
//
//  1. no commercial footprint        → NON_TARGET
//  2. ads active, no tracking        → ADS_ATTIVE_CONTROLLO_ASSENTE
//  3. traffic without direction      → TRAFFICO_SENZA_DIREZIONE
//  4. structure sound, not invested  → STRUTTURA_OK_NON_PRIORITIZZATA
//  5. anything else                  → DA_APPROFONDIRE
//
// Ambiguity is not an error; it is the deliberate DA_APPROFONDIRE outcome.
func Classify(sig domain.CommercialSignals, score int) Result {
	switch {
	case sig.NoCommercialFootprint.True():
		return build(domain.TagNonTarget,
			"nessun presidio commerciale rilevato: %s", sig)

	case sig.AdsActive.True() && !sig.TrackingControl.True():
		return build(domain.TagAdsAttiveControlloAssente,
			"campagne attive senza controllo dei risultati: %s", sig)

	case sig.TrafficWithoutDirection.True():
		return build(domain.TagTrafficoSenzaDirezione,
			"traffico presente ma senza direzione di conversione: %s", sig)

	case sig.StructureReady.True():
		return build(domain.TagStrutturaOkNonPrioritizzata,
			"struttura adeguata ma non prioritizzata dall'azienda: %s", sig)

	default:
		reason := fmt.Sprintf("segnali ambigui o incompleti (punteggio %d): da verificare manualmente", score)
		if ev := evidence(sig); ev != "" {
			reason = fmt.Sprintf("segnali ambigui o incompleti (punteggio %d): %s", score, ev)
		}
		return Result{
			Tag:        domain.TagDaApprofondire,
			Reason:     reason,
			Priority:   domain.TagDaApprofondire.Priority(),
			IsCallable: domain.TagDaApprofondire.IsCallable(),
		}
	}
}

func build(tag domain.CommercialTag, template string, sig domain.CommercialSignals) Result {
	ev := evidence(sig)
	if ev == "" {
		ev = "nessuna evidenza aggiuntiva"
	}
	return Result{
		Tag:        tag,
		Reason:     fmt.Sprintf(template, ev),
		Priority:   tag.Priority(),
		IsCallable: tag.IsCallable(),
	}
}

func evidence(sig domain.CommercialSignals) string {
	return strings.Join(sig.Evidence, "; ")
}
