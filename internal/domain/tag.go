package domain

// CommercialTag is the closed classification of a lead's business posture.
// Values mirror the CRM's Italian labels and are stable wire values.
type CommercialTag string

const (
	// TagAdsAttiveControlloAssente: paid acquisition running with no
	// measurement in place. Highest-priority call.
	TagAdsAttiveControlloAssente CommercialTag = "ADS_ATTIVE_CONTROLLO_ASSENTE"

	// TagTrafficoSenzaDirezione: traffic indicators without conversion
	// structure to direct it.
	TagTrafficoSenzaDirezione CommercialTag = "TRAFFICO_SENZA_DIREZIONE"

	// TagStrutturaOkNonPrioritizzata: sound structure the business is not
	// actively investing in.
	TagStrutturaOkNonPrioritizzata CommercialTag = "STRUTTURA_OK_NON_PRIORITIZZATA"

	// TagDaApprofondire: ambiguous or conflicting signals, routed to the
	// manual verification stage before calling.
	TagDaApprofondire CommercialTag = "DA_APPROFONDIRE"

	// TagNonTarget: no meaningful commercial footprint, never called.
	TagNonTarget CommercialTag = "NON_TARGET"
)

func (t CommercialTag) IsValid() bool {
	switch t {
	case TagAdsAttiveControlloAssente, TagTrafficoSenzaDirezione,
		TagStrutturaOkNonPrioritizzata, TagDaApprofondire, TagNonTarget:
		return true
	}
	return false
}

// IsCallable reports whether the tag admits the lead to the calling queue.
func (t CommercialTag) IsCallable() bool {
	switch t {
	case TagAdsAttiveControlloAssente, TagTrafficoSenzaDirezione,
		TagStrutturaOkNonPrioritizzata, TagDaApprofondire:
		return true
	}
	return false
}

// Priority returns the outreach rank, 1 = highest. 0 for NON_TARGET,
// which never enters the queue.
func (t CommercialTag) Priority() int {
	switch t {
	case TagAdsAttiveControlloAssente:
		return 1
	case TagTrafficoSenzaDirezione:
		return 2
	case TagStrutturaOkNonPrioritizzata:
		return 3
	case TagDaApprofondire:
		return 4
	}
	return 0
}

// RoutesToVerification reports whether the tag sends the lead to manual
// verification before it can be called.
func (t CommercialTag) RoutesToVerification() bool {
	return t == TagDaApprofondire
}
