package domain

import "testing"

func TestCommercialTag_Priority(t *testing.T) {
	tests := []struct {
		tag      CommercialTag
		priority int
		callable bool
	}{
		{TagAdsAttiveControlloAssente, 1, true},
		{TagTrafficoSenzaDirezione, 2, true},
		{TagStrutturaOkNonPrioritizzata, 3, true},
		{TagDaApprofondire, 4, true},
		{TagNonTarget, 0, false},
	}

	for _, tt := range tests {
		if got := tt.tag.Priority(); got != tt.priority {
			t.Errorf("%s.Priority() = %d, want %d", tt.tag, got, tt.priority)
		}
		if got := tt.tag.IsCallable(); got != tt.callable {
			t.Errorf("%s.IsCallable() = %v, want %v", tt.tag, got, tt.callable)
		}
		if !tt.tag.IsValid() {
			t.Errorf("%s.IsValid() = false", tt.tag)
		}
	}

	if CommercialTag("SOMETHING_ELSE").IsValid() {
		t.Error("unknown tag should not be valid")
	}
}

func TestCommercialTag_RoutesToVerification(t *testing.T) {
	if !TagDaApprofondire.RoutesToVerification() {
		t.Error("DA_APPROFONDIRE must route to verification")
	}
	if TagAdsAttiveControlloAssente.RoutesToVerification() {
		t.Error("ADS_ATTIVE_CONTROLLO_ASSENTE must not route to verification")
	}
}

func TestPipelineStage(t *testing.T) {
	engineStages := []PipelineStage{StageNew, StageDaChiamare, StageDaVerificare, StageNonTarget, StageSenzaSito}
	for _, s := range engineStages {
		if !s.IsValid() {
			t.Errorf("%s.IsValid() = false", s)
		}
		if s.IsManual() {
			t.Errorf("%s.IsManual() = true, engine-reachable stage", s)
		}
	}

	for _, s := range []PipelineStage{StageInTrattativa, StageChiuso} {
		if !s.IsManual() {
			t.Errorf("%s.IsManual() = false", s)
		}
	}

	if !StageChiuso.IsTerminal() || !StageSenzaSito.IsTerminal() {
		t.Error("CHIUSO and SENZA_SITO are terminal")
	}
	if StageNew.IsTerminal() {
		t.Error("NEW is not terminal")
	}
}
